// Package month содержит календарную арифметику в месяцах.
package month

import (
	"time"
)

// Add прибавляет к t n месяцев. Если в целевом месяце нет такого дня,
// результат приходится на последний день месяца: 31 января + 1 = 29 февраля.
// time.AddDate в этом случае переносит дату в следующий месяц.
func Add(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
