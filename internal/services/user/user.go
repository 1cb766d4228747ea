// Package user реализует регистрацию, вход и профиль пользователя.
package user

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/guard"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/media"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
)

// UserRepository хранилище пользователей.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindOne(ctx context.Context, filter storage.Filter) (*models.User, error)
	Create(ctx context.Context, u *models.User) (*models.User, error)
	UpdateByID(ctx context.Context, id string, fields storage.Fields) (*models.User, error)
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

// EmailChecker проверяет, что почта не занята другим пользователем.
type EmailChecker interface {
	UserEmailFree(ctx context.Context, email, exceptID string) error
}

// TokenIssuer выпускает токены сессии.
type TokenIssuer interface {
	Issue(identity models.Identity) (string, error)
}

// Service сервис пользователей.
type Service struct {
	users    UserRepository
	hobbies  HobbyFinder
	hasher   Hasher
	unique   EmailChecker
	uploader media.Uploader
	tokens   TokenIssuer
	log      *slog.Logger
}

// NewService создает сервис пользователей.
func NewService(
	users UserRepository,
	hobbies HobbyFinder,
	hasher Hasher,
	unique EmailChecker,
	uploader media.Uploader,
	tokens TokenIssuer,
	log *slog.Logger,
) *Service {
	return &Service{
		users:    users,
		hobbies:  hobbies,
		hasher:   hasher,
		unique:   unique,
		uploader: uploader,
		tokens:   tokens,
		log:      log,
	}
}

// CreateUser регистрирует пользователя. avatar может быть nil.
func (s *Service) CreateUser(ctx context.Context, profile models.UserProfile, avatar *blob.File) (*models.User, error) {
	const op = "user.CreateUser"

	email := guard.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указана почта")
	}
	if profile.Password == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указан пароль")
	}
	if err := s.unique.UserEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(profile.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, op, err)
	}
	u := &models.User{
		Name:     profile.Name,
		Email:    email,
		Password: hashed,
		Hobbies:  []string{},
		Comments: []string{},
	}
	if avatar != nil {
		if u.Avatar, err = media.UploadImage(ctx, s.uploader, media.BucketUsers, *avatar); err != nil {
			return nil, err
		}
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	s.log.Info("user created", slog.String("op", op), slog.String("user_id", created.ID))
	return created, nil
}

// LoginUser проверяет почту и пароль и возвращает токен сессии.
func (s *Service) LoginUser(ctx context.Context, email, password string) (string, *models.User, error) {
	const op = "user.LoginUser"
	invalid := apperr.New(apperr.Unauthorized, op, "Неверная почта или пароль")

	email = guard.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, invalid
	}
	u, err := s.users.FindOne(ctx, storage.Where(storage.Eq("email", email)))
	if apperr.Is(err, apperr.NotFound) {
		return "", nil, invalid
	}
	if err != nil {
		return "", nil, err
	}
	if !s.hasher.Compare(password, u.Password) {
		return "", nil, invalid
	}

	token, err := s.tokens.Issue(models.UserIdentity(u.ID))
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// EditUser частично обновляет профиль. avatar может быть nil.
func (s *Service) EditUser(ctx context.Context, userID string, patch models.UserPatch, avatar *blob.File) (*models.User, error) {
	const op = "user.EditUser"

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	fields := storage.Fields{}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Email != nil {
		email := guard.NormalizeEmail(*patch.Email)
		if email == "" {
			return nil, apperr.New(apperr.InvalidArgument, op, "Почта не может быть пустой")
		}
		if err := s.unique.UserEmailFree(ctx, email, userID); err != nil {
			return nil, err
		}
		fields["email"] = email
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
		url, err := media.UploadImage(ctx, s.uploader, media.BucketUsers, *avatar)
		if err != nil {
			return nil, err
		}
		fields["avatar"] = url
	}
	if len(fields) == 0 {
		return nil, apperr.New(apperr.InvalidArgument, op, "Нет полей для обновления")
	}

	updated, err := s.users.UpdateByID(ctx, userID, fields)
	if err != nil {
		return nil, err
	}
	s.log.Info("user updated", slog.String("op", op), slog.String("user_id", userID))
	return updated, nil
}

// AvatarUpload заменяет аватар пользователя.
func (s *Service) AvatarUpload(ctx context.Context, userID string, file *blob.File) (*models.User, error) {
	const op = "user.AvatarUpload"
	if file == nil {
		return nil, apperr.New(apperr.InvalidArgument, op, "Файл не передан")
	}
	return s.EditUser(ctx, userID, models.UserPatch{}, file)
}

// UserInfo возвращает публичное представление пользователя.
func (s *Service) UserInfo(ctx context.Context, userID string) (models.UserInfo, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.UserInfo{}, err
	}
	return u.Info(), nil
}

// GetHobbies возвращает хобби, на которые подписан пользователь.
func (s *Service) GetHobbies(ctx context.Context, userID string) ([]*models.Hobby, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.Hobbies) == 0 {
		return []*models.Hobby{}, nil
	}
	return s.hobbies.Find(ctx, storage.Where(storage.In("id", u.Hobbies)))
}
