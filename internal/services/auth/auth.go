// Package auth выпускает токены сессии участников, проверяет их и отзывает при выходе.
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/lib/jwt"
	"github.com/magabrotheeeer/hobbyfinder/internal/lib/sl"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
)

// Revoker хранит отозванные токены.
type Revoker interface {
	// Revoke помечает токен отозванным на время ttl.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	// IsRevoked сообщает, был ли токен отозван.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Service отвечает за сессии участников.
type Service struct {
	jwtMaker jwt.Maker
	revoker  Revoker
	log      *slog.Logger
}

// NewService создает сервис сессий. revoker может быть nil: тогда выход
// не отзывает токен и он действует до истечения срока.
func NewService(jwtMaker jwt.Maker, revoker Revoker, log *slog.Logger) *Service {
	return &Service{
		jwtMaker: jwtMaker,
		revoker:  revoker,
		log:      log,
	}
}

// Issue выпускает токен для участника.
func (s *Service) Issue(identity models.Identity) (string, error) {
	const op = "auth.Issue"
	token, err := s.jwtMaker.GenerateToken(identity)
	if err != nil {
		return "", apperr.Wrap(apperr.Storage, op, err)
	}
	return token, nil
}

// Authenticate проверяет токен и возвращает участника, от имени которого он выпущен.
func (s *Service) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	const op = "auth.Authenticate"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return models.Identity{}, &apperr.Error{Kind: apperr.Unauthorized, Op: op, Msg: "Недействительный токен", Err: err}
	}
	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return models.Identity{}, apperr.Wrap(apperr.Storage, op, err)
		}
		if revoked {
			return models.Identity{}, apperr.New(apperr.Unauthorized, op, "Сессия завершена")
		}
	}
	return claims.Identity(), nil
}

// Logout отзывает токен до истечения его срока действия.
func (s *Service) Logout(ctx context.Context, token string) error {
	const op = "auth.Logout"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return &apperr.Error{Kind: apperr.Unauthorized, Op: op, Msg: "Недействительный токен", Err: err}
	}
	if s.revoker == nil {
		return nil
	}

	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		s.log.Error("failed to revoke token", slog.String("op", op), sl.Err(err))
		return apperr.Wrap(apperr.Storage, op, err)
	}
	s.log.Info("session closed", slog.String("op", op), slog.String("subject", claims.Subject))
	return nil
}
