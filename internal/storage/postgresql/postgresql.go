// Package postgresql реализует документное хранилище поверх PostgreSQL.
// Документы всех видов лежат в таблице documents в колонке body типа jsonb,
// частичное обновление выполняется слиянием верхнего уровня (body || patch).
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
)

// Storage инкапсулирует соединение с PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New открывает соединение и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{DB: db}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// Create сохраняет документ, присваивая ему идентификатор при необходимости.
func (s *Storage) Create(ctx context.Context, kind storage.Kind, doc storage.Document) (storage.Document, error) {
	const op = "storage.postgresql.Create"

	body := make(storage.Document, len(doc)+1)
	for k, v := range doc {
		body[k] = v
	}
	if body.ID() == "" {
		body[storage.IDField] = uuid.NewString()
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO documents (kind, id, body)
			  VALUES ($1, $2, $3::jsonb)
			  RETURNING body`
	var out []byte
	if err := s.DB.QueryRowContext(ctx, query, string(kind), body.ID(), string(raw)).Scan(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return decode(out)
}

// FindByID возвращает документ по идентификатору.
func (s *Storage) FindByID(ctx context.Context, kind storage.Kind, id string) (storage.Document, error) {
	const op = "storage.postgresql.FindByID"

	query := `SELECT body FROM documents WHERE kind = $1 AND id = $2`
	var out []byte
	if err := s.DB.QueryRowContext(ctx, query, string(kind), id).Scan(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return decode(out)
}

// FindOne возвращает первый подходящий документ.
func (s *Storage) FindOne(ctx context.Context, kind storage.Kind, filter storage.Filter) (storage.Document, error) {
	const op = "storage.postgresql.FindOne"

	docs, err := s.find(ctx, kind, filter, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return docs[0], nil
}

// Find возвращает подходящие документы в порядке создания.
func (s *Storage) Find(ctx context.Context, kind storage.Kind, filter storage.Filter) ([]storage.Document, error) {
	const op = "storage.postgresql.Find"

	docs, err := s.find(ctx, kind, filter, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return docs, nil
}

// UpdateByID сливает fields с документом на верхнем уровне.
func (s *Storage) UpdateByID(ctx context.Context, kind storage.Kind, id string, fields storage.Fields) (storage.Document, error) {
	const op = "storage.postgresql.UpdateByID"

	patch := make(storage.Fields, len(fields))
	for k, v := range fields {
		if k != storage.IDField {
			patch[k] = v
		}
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE documents
			  SET body = body || $3::jsonb, updated_at = NOW()
			  WHERE kind = $1 AND id = $2
			  RETURNING body`
	var out []byte
	if err := s.DB.QueryRowContext(ctx, query, string(kind), id, string(raw)).Scan(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return decode(out)
}

func (s *Storage) find(ctx context.Context, kind storage.Kind, filter storage.Filter, limit int) ([]storage.Document, error) {
	q, err := selectQuery(kind, filter, limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	docs := make([]storage.Document, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func decode(raw []byte) (storage.Document, error) {
	doc := make(storage.Document)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
