// Package repository предоставляет типизированный доступ к сущностям поверх
// документного хранилища. Бизнес-логики здесь нет: пакет только переводит
// документы в доменные структуры и ошибки хранилища в ошибки apperr.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
)

// Collection доступ к сущностям одного вида.
type Collection[T any] struct {
	store    storage.Store
	kind     storage.Kind
	notFound string // сообщение при отсутствии сущности
}

// NewCollection создает доступ к документам вида kind.
func NewCollection[T any](store storage.Store, kind storage.Kind, notFound string) *Collection[T] {
	return &Collection[T]{store: store, kind: kind, notFound: notFound}
}

// FindByID возвращает сущность по идентификатору.
func (c *Collection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	op := "repository." + string(c.kind) + ".FindByID"

	doc, err := c.store.FindByID(ctx, c.kind, id)
	if err != nil {
		return nil, c.translate(op, err)
	}
	return c.decode(op, doc)
}

// FindOne возвращает первую сущность, подходящую под фильтр.
func (c *Collection[T]) FindOne(ctx context.Context, filter storage.Filter) (*T, error) {
	op := "repository." + string(c.kind) + ".FindOne"

	doc, err := c.store.FindOne(ctx, c.kind, filter)
	if err != nil {
		return nil, c.translate(op, err)
	}
	return c.decode(op, doc)
}

// Find возвращает все сущности, подходящие под фильтр, в порядке создания.
func (c *Collection[T]) Find(ctx context.Context, filter storage.Filter) ([]*T, error) {
	op := "repository." + string(c.kind) + ".Find"

	docs, err := c.store.Find(ctx, c.kind, filter)
	if err != nil {
		return nil, c.translate(op, err)
	}
	result := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v, err := c.decode(op, doc)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// Create сохраняет новую сущность и возвращает ее с присвоенным идентификатором.
func (c *Collection[T]) Create(ctx context.Context, v *T) (*T, error) {
	op := "repository." + string(c.kind) + ".Create"

	doc, err := encode(v)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, op, err)
	}
	if doc.ID() == "" {
		delete(doc, storage.IDField)
	}
	created, err := c.store.Create(ctx, c.kind, doc)
	if err != nil {
		return nil, c.translate(op, err)
	}
	return c.decode(op, created)
}

// UpdateByID частично обновляет сущность и возвращает ее новое состояние.
func (c *Collection[T]) UpdateByID(ctx context.Context, id string, fields storage.Fields) (*T, error) {
	op := "repository." + string(c.kind) + ".UpdateByID"

	doc, err := c.store.UpdateByID(ctx, c.kind, id, fields)
	if err != nil {
		return nil, c.translate(op, err)
	}
	return c.decode(op, doc)
}

func (c *Collection[T]) translate(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &apperr.Error{Kind: apperr.NotFound, Op: op, Msg: c.notFound, Err: err}
	case errors.Is(err, storage.ErrConflict):
		return &apperr.Error{Kind: apperr.Conflict, Op: op, Msg: "Такая запись уже существует", Err: err}
	case errors.Is(err, storage.ErrInvalidFilter):
		return &apperr.Error{Kind: apperr.InvalidArgument, Op: op, Msg: "Некорректный фильтр", Err: err}
	default:
		return apperr.Wrap(apperr.Storage, op, err)
	}
}

func (c *Collection[T]) decode(op string, doc storage.Document) (*T, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, op, err)
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, apperr.Wrap(apperr.Storage, op, fmt.Errorf("decode %s: %w", c.kind, err))
	}
	return v, nil
}

func encode(v any) (storage.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := make(storage.Document)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Repository доступ ко всем видам сущностей.
type Repository struct {
	Users     *Collection[models.User]
	Providers *Collection[models.Provider]
	Hobbies   *Collection[models.Hobby]
	Comments  *Collection[models.Comment]
}

// New создает репозиторий поверх хранилища store.
func New(store storage.Store) *Repository {
	return &Repository{
		Users:     NewCollection[models.User](store, storage.KindUser, "Не найден такой пользователь"),
		Providers: NewCollection[models.Provider](store, storage.KindProvider, "Не найден такой партнер"),
		Hobbies:   NewCollection[models.Hobby](store, storage.KindHobby, "Хобби не найдено"),
		Comments:  NewCollection[models.Comment](store, storage.KindComment, "Комментарий не найден"),
	}
}

// UniqueFields уникальные поля по видам документов, для хранилищ без собственных индексов.
func UniqueFields() map[storage.Kind][]string {
	return map[storage.Kind][]string{
		storage.KindUser:     {"email"},
		storage.KindProvider: {"email", "phone"},
	}
}
