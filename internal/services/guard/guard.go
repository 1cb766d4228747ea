// Package guard содержит проверки доступа: авторизацию участника, владение хобби
// и уникальность контактных данных перед записью.
package guard

import (
	"context"
	"strings"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
)

// RequireAuthenticated проверяет, что запрос выполняется от имени участника типа t.
func RequireAuthenticated(identity models.Identity, t models.ParticipantType) error {
	const op = "guard.RequireAuthenticated"
	if identity.Authenticated(t) {
		return nil
	}
	if t == models.ParticipantProvider {
		return apperr.New(apperr.Unauthorized, op, "Требуется авторизация партнера")
	}
	return apperr.New(apperr.Unauthorized, op, "Требуется авторизация пользователя")
}

// RequireOwnership проверяет, что хобби принадлежит партнеру providerID.
func RequireOwnership(hobby *models.Hobby, providerID string) error {
	const op = "guard.RequireOwnership"
	if hobby == nil || providerID == "" || hobby.Owner != providerID {
		return apperr.New(apperr.Forbidden, op, "Нет прав на изменение этого хобби")
	}
	return nil
}

// NormalizeEmail приводит почту к виду, в котором она хранится и ищется.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserFinder ищет пользователей по фильтру.
type UserFinder interface {
	Find(ctx context.Context, filter storage.Filter) ([]*models.User, error)
}

// ProviderFinder ищет партнеров по фильтру.
type ProviderFinder interface {
	Find(ctx context.Context, filter storage.Filter) ([]*models.Provider, error)
}

// Uniqueness проверяет, что контактные данные не заняты другими участниками.
// Проверки идут через Find с исключением exceptID: FindOne по альтернативам при
// редактировании вернул бы собственную запись участника и скрыл бы чужую.
type Uniqueness struct {
	users     UserFinder
	providers ProviderFinder
}

// NewUniqueness создает проверку уникальности.
func NewUniqueness(users UserFinder, providers ProviderFinder) *Uniqueness {
	return &Uniqueness{users: users, providers: providers}
}

// UserEmailFree возвращает Conflict, если почта занята пользователем, отличным от exceptID.
func (u *Uniqueness) UserEmailFree(ctx context.Context, email, exceptID string) error {
	const op = "guard.UserEmailFree"
	email = NormalizeEmail(email)
	if email == "" {
		return nil
	}

	found, err := u.users.Find(ctx, storage.Where(storage.Eq("email", email)))
	if err != nil {
		return err
	}
	for _, user := range found {
		if user.ID != exceptID {
			return apperr.New(apperr.Conflict, op, "Пользователь с такой почтой уже существует")
		}
	}
	return nil
}

// ProviderContacts поля партнера, которые должны быть уникальными.
// Пустые поля не проверяются.
type ProviderContacts struct {
	Email string
	Name  string
	Phone string
}

// ProviderFree возвращает Conflict, если почта, имя или телефон заняты партнером, отличным от exceptID.
func (u *Uniqueness) ProviderFree(ctx context.Context, contacts ProviderContacts, exceptID string) error {
	const op = "guard.ProviderFree"

	var conds []storage.Cond
	if email := NormalizeEmail(contacts.Email); email != "" {
		conds = append(conds, storage.Eq("email", email))
	}
	if contacts.Name != "" {
		conds = append(conds, storage.Eq("name", contacts.Name))
	}
	if contacts.Phone != "" {
		conds = append(conds, storage.Eq("phone", contacts.Phone))
	}
	if len(conds) == 0 {
		return nil
	}

	found, err := u.providers.Find(ctx, storage.AnyOf(conds...))
	if err != nil {
		return err
	}
	for _, provider := range found {
		if provider.ID != exceptID {
			return apperr.New(apperr.Conflict, op, "Партнер с такой почтой, именем или телефоном уже существует")
		}
	}
	return nil
}
