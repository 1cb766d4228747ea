// Package apperr описывает закрытый набор типизированных ошибок бизнес-логики.
//
// Сервисы возвращают *Error с одним из видов Kind, а HTTP-слой переводит вид
// ошибки в статус ответа. Остальные ошибки считаются ошибками хранилища.
package apperr

import (
	"errors"
	"fmt"
)

// Kind вид ошибки.
type Kind int

const (
	// Storage сбой хранилища или сети, локально не восстанавливается.
	Storage Kind = iota
	// NotFound упомянутая сущность не существует.
	NotFound
	// InvalidArgument не передан обязательный идентификатор или поле.
	InvalidArgument
	// Forbidden у участника нет прав на изменение сущности.
	Forbidden
	// Unauthorized операция требует авторизации.
	Unauthorized
	// Conflict нарушено ограничение уникальности.
	Conflict
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case InvalidArgument:
		return "invalid argument"
	case Forbidden:
		return "forbidden"
	case Unauthorized:
		return "unauthorized"
	case Conflict:
		return "conflict"
	default:
		return "storage error"
	}
}

// Error типизированная ошибка бизнес-логики.
type Error struct {
	Kind Kind
	Op   string // операция, в которой возникла ошибка
	Msg  string // сообщение для пользователя
	Err  error  // исходная ошибка, если есть
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New создает ошибку вида kind с сообщением msg.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap оборачивает err в ошибку вида kind. Возвращает nil, если err == nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf возвращает вид ошибки. Ошибки без вида считаются ошибками хранилища.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Storage
}

// Is сообщает, относится ли err к виду kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message возвращает сообщение для пользователя из первой типизированной ошибки в цепочке.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return KindOf(err).String()
}
