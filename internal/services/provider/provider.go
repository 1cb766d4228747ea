// Package provider реализует регистрацию, вход и профиль партнера.
package provider

import (
	"context"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/guard"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/media"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
)

// ProviderRepository хранилище партнеров.
type ProviderRepository interface {
	FindByID(ctx context.Context, id string) (*models.Provider, error)
	FindOne(ctx context.Context, filter storage.Filter) (*models.Provider, error)
	Create(ctx context.Context, p *models.Provider) (*models.Provider, error)
	UpdateByID(ctx context.Context, id string, fields storage.Fields) (*models.Provider, error)
}

// HobbyFinder поиск хобби.
type HobbyFinder interface {
	Find(ctx context.Context, filter storage.Filter) ([]*models.Hobby, error)
}

// Hasher хэширует и проверяет пароли.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(plain, digest string) bool
}

// ContactsChecker проверяет, что почта, имя и телефон не заняты другим партнером.
type ContactsChecker interface {
	ProviderFree(ctx context.Context, contacts guard.ProviderContacts, exceptID string) error
}

// TokenIssuer выпускает токены сессии.
type TokenIssuer interface {
	Issue(identity models.Identity) (string, error)
}

// Service сервис партнеров.
type Service struct {
	providers ProviderRepository
	hobbies   HobbyFinder
	hasher    Hasher
	unique    ContactsChecker
	uploader  media.Uploader
	tokens    TokenIssuer
	log       *slog.Logger
}

// NewService создает сервис партнеров.
func NewService(
	providers ProviderRepository,
	hobbies HobbyFinder,
	hasher Hasher,
	unique ContactsChecker,
	uploader media.Uploader,
	tokens TokenIssuer,
	log *slog.Logger,
) *Service {
	return &Service{
		providers: providers,
		hobbies:   hobbies,
		hasher:    hasher,
		unique:    unique,
		uploader:  uploader,
		tokens:    tokens,
		log:       log,
	}
}

// CreateProvider регистрирует партнера. avatar может быть nil.
func (s *Service) CreateProvider(ctx context.Context, profile models.ProviderProfile, avatar *blob.File) (*models.Provider, error) {
	const op = "provider.CreateProvider"

	email := guard.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указана почта")
	}
	if profile.Password == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указан пароль")
	}
	name := strings.TrimSpace(profile.Name)
	phone := strings.TrimSpace(profile.Phone)
	contacts := guard.ProviderContacts{Email: email, Name: name, Phone: phone}
	if err := s.unique.ProviderFree(ctx, contacts, ""); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(profile.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, op, err)
	}
	p := &models.Provider{
		Name:            name,
		Email:           email,
		Phone:           phone,
		Password:        hashed,
		Info:            profile.Info,
		FollowedHobbies: []string{},
	}
	if avatar != nil {
		if p.Avatar, err = media.UploadImage(ctx, s.uploader, media.BucketProviders, *avatar); err != nil {
			return nil, err
		}
	}

	created, err := s.providers.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.Info("provider created", slog.String("op", op), slog.String("provider_id", created.ID))
	return created, nil
}

// LoginProvider проверяет почту и пароль и возвращает токен сессии.
func (s *Service) LoginProvider(ctx context.Context, email, password string) (string, *models.Provider, error) {
	const op = "provider.LoginProvider"
	invalid := apperr.New(apperr.Unauthorized, op, "Неверная почта или пароль")

	email = guard.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, invalid
	}
	p, err := s.providers.FindOne(ctx, storage.Where(storage.Eq("email", email)))
	if apperr.Is(err, apperr.NotFound) {
		return "", nil, invalid
	}
	if err != nil {
		return "", nil, err
	}
	if !s.hasher.Compare(password, p.Password) {
		return "", nil, invalid
	}

	token, err := s.tokens.Issue(models.ProviderIdentity(p.ID))
	if err != nil {
		return "", nil, err
	}
	return token, p, nil
}

// ProviderInfo возвращает публичное представление партнера.
func (s *Service) ProviderInfo(ctx context.Context, providerID string) (models.ProviderInfo, error) {
	p, err := s.providers.FindByID(ctx, providerID)
	if err != nil {
		return models.ProviderInfo{}, err
	}
	return p.Public(), nil
}

// EditProvider частично обновляет профиль партнера. Уникальность проверяется
// только для переданных полей и без учета самого партнера.
func (s *Service) EditProvider(ctx context.Context, providerID string, patch models.ProviderPatch, avatar *blob.File) (*models.Provider, error) {
	const op = "provider.EditProvider"

	if _, err := s.providers.FindByID(ctx, providerID); err != nil {
		return nil, err
	}

	fields := storage.Fields{}
	var contacts guard.ProviderContacts
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.New(apperr.InvalidArgument, op, "Имя не может быть пустым")
		}
		contacts.Name = name
		fields["name"] = name
	}
	if patch.Email != nil {
		email := guard.NormalizeEmail(*patch.Email)
		if email == "" {
			return nil, apperr.New(apperr.InvalidArgument, op, "Почта не может быть пустой")
		}
		contacts.Email = email
		fields["email"] = email
	}
	if patch.Phone != nil {
		phone := strings.TrimSpace(*patch.Phone)
		contacts.Phone = phone
		fields["phone"] = phone
	}
	if patch.Info != nil {
		fields["info"] = *patch.Info
	}
	if err := s.unique.ProviderFree(ctx, contacts, providerID); err != nil {
		return nil, err
	}
	if patch.Password != nil {
		if *patch.Password == "" {
			return nil, apperr.New(apperr.InvalidArgument, op, "Пароль не может быть пустым")
		}
		hashed, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, apperr.Wrap(apperr.Storage, op, err)
		}
		fields["password"] = hashed
	}
	if avatar != nil {
		url, err := media.UploadImage(ctx, s.uploader, media.BucketProviders, *avatar)
		if err != nil {
			return nil, err
		}
		fields["avatar"] = url
	}
	if len(fields) == 0 {
		return nil, apperr.New(apperr.InvalidArgument, op, "Нет полей для обновления")
	}

	updated, err := s.providers.UpdateByID(ctx, providerID, fields)
	if err != nil {
		return nil, err
	}
	s.log.Info("provider updated", slog.String("op", op), slog.String("provider_id", providerID))
	return updated, nil
}

// GetHobbies возвращает хобби, принадлежащие партнеру.
func (s *Service) GetHobbies(ctx context.Context, providerID string) ([]*models.Hobby, error) {
	if _, err := s.providers.FindByID(ctx, providerID); err != nil {
		return nil, err
	}
	return s.hobbies.Find(ctx, storage.Where(storage.Eq("owner", providerID)))
}

// FollowedHobbies возвращает хобби, на которые подписан партнер.
func (s *Service) FollowedHobbies(ctx context.Context, providerID string) ([]*models.Hobby, error) {
	p, err := s.providers.FindByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if len(p.FollowedHobbies) == 0 {
		return []*models.Hobby{}, nil
	}
	return s.hobbies.Find(ctx, storage.Where(storage.In("id", p.FollowedHobbies)))
}
