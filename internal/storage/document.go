// Package storage описывает порт документного хранилища: документы разных видов,
// адресуемые по идентификатору, с поиском по фильтру и частичным обновлением.
// Каждая операция атомарна в пределах одного документа.
package storage

import (
	"context"
	"errors"
	"regexp"
)

var (
	// ErrNotFound документ не найден.
	ErrNotFound = errors.New("document not found")
	// ErrConflict нарушен уникальный индекс хранилища.
	ErrConflict = errors.New("document conflicts with an existing one")
	// ErrInvalidFilter фильтр ссылается на недопустимое поле.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Kind вид документа, аналог коллекции.
type Kind string

const (
	KindUser     Kind = "users"
	KindProvider Kind = "providers"
	KindHobby    Kind = "hobbies"
	KindComment  Kind = "comments"
)

// IDField имя поля с идентификатором документа.
const IDField = "id"

// Document JSON-объект документа.
type Document map[string]any

// ID возвращает идентификатор документа.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Fields набор полей верхнего уровня для частичного обновления.
type Fields map[string]any

// Store документное хранилище.
type Store interface {
	// Create сохраняет документ и возвращает его с присвоенным идентификатором.
	Create(ctx context.Context, kind Kind, doc Document) (Document, error)
	// FindByID возвращает документ по идентификатору или ErrNotFound.
	FindByID(ctx context.Context, kind Kind, id string) (Document, error)
	// FindOne возвращает первый в порядке создания документ, подходящий под фильтр, или ErrNotFound.
	FindOne(ctx context.Context, kind Kind, filter Filter) (Document, error)
	// Find возвращает все подходящие документы в порядке создания.
	Find(ctx context.Context, kind Kind, filter Filter) ([]Document, error)
	// UpdateByID заменяет поля верхнего уровня и возвращает обновленный документ или ErrNotFound.
	UpdateByID(ctx context.Context, kind Kind, id string, fields Fields) (Document, error)
}

var fieldPathRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidField проверяет, что путь к полю состоит из идентификаторов, разделенных точками.
func ValidField(path string) bool {
	return fieldPathRe.MatchString(path)
}
