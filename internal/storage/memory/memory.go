// Package memory реализует документное хранилище в памяти процесса.
// Используется в тестах и при локальном запуске без базы данных.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
)

type collection struct {
	order []string
	docs  map[string][]byte
}

// Store документное хранилище в памяти. Документы хранятся в JSON,
// поэтому вызывающий код не может изменить их в обход UpdateByID.
type Store struct {
	mu     sync.RWMutex
	kinds  map[storage.Kind]*collection
	unique map[storage.Kind][]string
}

// New создает пустое хранилище. unique задает уникальные поля по видам документов.
func New(unique map[storage.Kind][]string) *Store {
	return &Store{
		kinds:  make(map[storage.Kind]*collection),
		unique: unique,
	}
}

func (s *Store) collection(kind storage.Kind) *collection {
	c, ok := s.kinds[kind]
	if !ok {
		c = &collection{docs: make(map[string][]byte)}
		s.kinds[kind] = c
	}
	return c
}

// Create сохраняет документ.
func (s *Store) Create(_ context.Context, kind storage.Kind, doc storage.Document) (storage.Document, error) {
	const op = "storage.memory.Create"

	normalized, err := normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if normalized.ID() == "" {
		normalized[storage.IDField] = uuid.NewString()
	}
	id := normalized.ID()

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(kind)
	if _, exists := c.docs[id]; exists {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}
	if err := s.checkUnique(kind, c, id, normalized); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.docs[id] = raw
	c.order = append(c.order, id)
	return normalized, nil
}

// FindByID возвращает документ по идентификатору.
func (s *Store) FindByID(_ context.Context, kind storage.Kind, id string) (storage.Document, error) {
	const op = "storage.memory.FindByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	raw, ok := c.docs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return decode(raw)
}

// FindOne возвращает первый подходящий документ.
func (s *Store) FindOne(ctx context.Context, kind storage.Kind, filter storage.Filter) (storage.Document, error) {
	const op = "storage.memory.FindOne"

	docs, err := s.find(kind, filter, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return docs[0], nil
}

// Find возвращает подходящие документы в порядке создания.
func (s *Store) Find(_ context.Context, kind storage.Kind, filter storage.Filter) ([]storage.Document, error) {
	const op = "storage.memory.Find"

	docs, err := s.find(kind, filter, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return docs, nil
}

// UpdateByID заменяет поля верхнего уровня документа.
func (s *Store) UpdateByID(_ context.Context, kind storage.Kind, id string, fields storage.Fields) (storage.Document, error) {
	const op = "storage.memory.UpdateByID"

	patch, err := normalize(storage.Document(fields))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	delete(patch, storage.IDField)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	raw, ok := c.docs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	doc, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for k, v := range patch {
		doc[k] = v
	}
	if err := s.checkUnique(kind, c, id, doc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updated, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.docs[id] = updated
	return doc, nil
}

func (s *Store) find(kind storage.Kind, filter storage.Filter, limit int) ([]storage.Document, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	m, err := compile(filter)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.Document, 0)
	c, ok := s.kinds[kind]
	if !ok {
		return result, nil
	}
	for _, id := range c.order {
		doc, err := decode(c.docs[id])
		if err != nil {
			return nil, err
		}
		if !m.match(doc) {
			continue
		}
		result = append(result, doc)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// checkUnique вызывается под блокировкой записи.
func (s *Store) checkUnique(kind storage.Kind, c *collection, id string, doc storage.Document) error {
	for _, field := range s.unique[kind] {
		value, ok := storage.Lookup(doc, field)
		if !ok || value == nil || value == "" {
			continue
		}
		for otherID, raw := range c.docs {
			if otherID == id {
				continue
			}
			other, err := decode(raw)
			if err != nil {
				return err
			}
			if v, ok := storage.Lookup(other, field); ok && reflect.DeepEqual(v, value) {
				return storage.ErrConflict
			}
		}
	}
	return nil
}

type matcher struct {
	all []compiledCond
	any []compiledCond
}

type compiledCond struct {
	field  string
	op     storage.Op
	values []any
	substr string
}

func compile(f storage.Filter) (matcher, error) {
	var m matcher
	for _, c := range f.All {
		cc, err := compileCond(c)
		if err != nil {
			return m, err
		}
		m.all = append(m.all, cc)
	}
	for _, c := range f.Any {
		cc, err := compileCond(c)
		if err != nil {
			return m, err
		}
		m.any = append(m.any, cc)
	}
	return m, nil
}

func compileCond(c storage.Cond) (compiledCond, error) {
	cc := compiledCond{field: c.Field, op: c.Op}
	switch c.Op {
	case storage.OpEq:
		v, err := normalizeValue(c.Value)
		if err != nil {
			return cc, err
		}
		cc.values = []any{v}
	case storage.OpIn:
		vs, ok := c.Value.([]any)
		if !ok {
			return cc, storage.ErrInvalidFilter
		}
		for _, raw := range vs {
			v, err := normalizeValue(raw)
			if err != nil {
				return cc, err
			}
			cc.values = append(cc.values, v)
		}
	case storage.OpContains:
		s, ok := c.Value.(string)
		if !ok {
			return cc, storage.ErrInvalidFilter
		}
		cc.substr = strings.ToLower(s)
	case storage.OpExists:
	default:
		return cc, storage.ErrInvalidFilter
	}
	return cc, nil
}

func (m matcher) match(doc storage.Document) bool {
	for _, c := range m.all {
		if !c.match(doc) {
			return false
		}
	}
	if len(m.any) == 0 {
		return true
	}
	for _, c := range m.any {
		if c.match(doc) {
			return true
		}
	}
	return false
}

func (c compiledCond) match(doc storage.Document) bool {
	value, ok := storage.Lookup(doc, c.field)
	switch c.op {
	case storage.OpExists:
		return ok && value != nil
	case storage.OpContains:
		s, isString := value.(string)
		return ok && isString && strings.Contains(strings.ToLower(s), c.substr)
	default:
		if !ok {
			value = nil
		}
		for _, want := range c.values {
			if reflect.DeepEqual(value, want) {
				return true
			}
		}
		return false
	}
}

// normalize приводит документ к виду, который дает json.Unmarshal.
func normalize(doc storage.Document) (storage.Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decode(raw []byte) (storage.Document, error) {
	doc := make(storage.Document)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
