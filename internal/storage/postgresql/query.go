package postgresql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
)

// query накапливает текст SQL и позиционные аргументы.
type query struct {
	sb   strings.Builder
	args []any
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) write(s string) {
	q.sb.WriteString(s)
}

func (q *query) String() string {
	return q.sb.String()
}

// jsonPath превращает "author.id" в литерал пути '{author,id}'.
// Путь заранее проверен storage.ValidField, поэтому экранирование не требуется.
func jsonPath(field string) string {
	return "'{" + strings.ReplaceAll(field, ".", ",") + "}'"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// where дописывает к запросу условие фильтра.
func (q *query) where(f storage.Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	for _, c := range f.All {
		q.write(" AND ")
		if err := q.cond(c); err != nil {
			return err
		}
	}
	if len(f.Any) == 0 {
		return nil
	}
	q.write(" AND (")
	for i, c := range f.Any {
		if i > 0 {
			q.write(" OR ")
		}
		if err := q.cond(c); err != nil {
			return err
		}
	}
	q.write(")")
	return nil
}

func (q *query) cond(c storage.Cond) error {
	path := jsonPath(c.Field)
	switch c.Op {
	case storage.OpEq:
		raw, err := json.Marshal(c.Value)
		if err != nil {
			return err
		}
		if string(raw) == "null" {
			q.write(fmt.Sprintf("COALESCE(body #> %s, 'null'::jsonb) = 'null'::jsonb", path))
			return nil
		}
		q.write(fmt.Sprintf("body #> %s = %s::jsonb", path, q.arg(string(raw))))
	case storage.OpIn:
		values, ok := c.Value.([]any)
		if !ok {
			return storage.ErrInvalidFilter
		}
		if len(values) == 0 {
			q.write("FALSE")
			return nil
		}
		placeholders := make([]string, 0, len(values))
		for _, v := range values {
			raw, err := json.Marshal(v)
			if err != nil {
				return err
			}
			placeholders = append(placeholders, q.arg(string(raw))+"::jsonb")
		}
		q.write(fmt.Sprintf("body #> %s IN (%s)", path, strings.Join(placeholders, ", ")))
	case storage.OpContains:
		s, ok := c.Value.(string)
		if !ok {
			return storage.ErrInvalidFilter
		}
		q.write(fmt.Sprintf("body #>> %s ILIKE %s", path, q.arg("%"+likeEscaper.Replace(s)+"%")))
	case storage.OpExists:
		q.write(fmt.Sprintf("COALESCE(jsonb_typeof(body #> %s), 'null') <> 'null'", path))
	default:
		return storage.ErrInvalidFilter
	}
	return nil
}

func selectQuery(kind storage.Kind, f storage.Filter, limit int) (*query, error) {
	q := &query{}
	q.write("SELECT body FROM documents WHERE kind = ")
	q.write(q.arg(string(kind)))
	if err := q.where(f); err != nil {
		return nil, err
	}
	q.write(" ORDER BY seq")
	if limit > 0 {
		q.write(fmt.Sprintf(" LIMIT %d", limit))
	}
	return q, nil
}
