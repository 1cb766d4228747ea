package storage

import "strings"

// Op оператор условия фильтра.
type Op int

const (
	// OpEq поле равно значению.
	OpEq Op = iota
	// OpIn поле равно одному из значений.
	OpIn
	// OpContains строковое поле содержит подстроку без учета регистра.
	OpContains
	// OpExists поле присутствует и не равно null.
	OpExists
)

// Cond условие на одно поле. Field задается путем через точку, например "author.id".
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Eq условие равенства.
func Eq(field string, value any) Cond {
	return Cond{Field: field, Op: OpEq, Value: value}
}

// In условие вхождения в список значений. Пустой список не совпадает ни с чем.
func In[T any](field string, values []T) Cond {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Cond{Field: field, Op: OpIn, Value: vs}
}

// Contains условие вхождения подстроки.
func Contains(field, substr string) Cond {
	return Cond{Field: field, Op: OpContains, Value: substr}
}

// Exists условие присутствия непустого значения.
func Exists(field string) Cond {
	return Cond{Field: field, Op: OpExists}
}

// Filter документ подходит, если выполнены все условия All и,
// когда Any не пуст, хотя бы одно из условий Any.
type Filter struct {
	All []Cond
	Any []Cond
}

// Where фильтр из условий, объединенных через И.
func Where(conds ...Cond) Filter {
	return Filter{All: conds}
}

// AnyOf фильтр из условий, объединенных через ИЛИ.
func AnyOf(conds ...Cond) Filter {
	return Filter{Any: conds}
}

// And добавляет к фильтру условия через И.
func (f Filter) And(conds ...Cond) Filter {
	all := make([]Cond, 0, len(f.All)+len(conds))
	all = append(all, f.All...)
	all = append(all, conds...)
	return Filter{All: all, Any: f.Any}
}

// Empty сообщает, что фильтр подходит под любой документ.
func (f Filter) Empty() bool {
	return len(f.All) == 0 && len(f.Any) == 0
}

// Validate проверяет пути полей фильтра.
func (f Filter) Validate() error {
	for _, groups := range [][]Cond{f.All, f.Any} {
		for _, c := range groups {
			if !ValidField(c.Field) {
				return ErrInvalidFilter
			}
		}
	}
	return nil
}

// Lookup возвращает значение поля документа по пути через точку.
func Lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
