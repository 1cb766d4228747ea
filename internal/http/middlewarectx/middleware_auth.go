// Package middlewarectx содержит HTTP middleware для аутентификации по JWT,
// проверки типа участника и ограничения частоты запросов.
//
// IdentityMiddleware читает необязательный заголовок Authorization. Если токен
// передан и валиден, идентичность участника и сам токен кладутся в контекст.
// Невалидный или отозванный токен приводит к ответу 401 Unauthorized.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/hobbyfinder/internal/http/response"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/guard"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// IdentityKey ключ идентичности участника в контексте.
	IdentityKey Key = "identity"
	// TokenKey ключ исходного bearer-токена в контексте.
	TokenKey Key = "token"
)

const bearerPrefix = "Bearer "

// Authenticator проверяет токен и возвращает идентичность участника.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Identity, error)
}

// IdentityMiddleware возвращает middleware, который определяет участника запроса.
// Запросы без заголовка Authorization проходят как анонимные.
func IdentityMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.IdentityMiddleware"

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if !strings.HasPrefix(authHeader, bearerPrefix) {
				log.Warn("invalid authorization header")
				response.RenderError(w, r, log, errInvalidHeader)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))

			identity, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				response.RenderError(w, r, log, err)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			ctx = context.WithValue(ctx, TokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParticipant пропускает только запросы участника типа t.
func RequireParticipant(t models.ParticipantType, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := guard.RequireAuthenticated(IdentityFrom(r.Context()), t); err != nil {
				response.RenderError(w, r, log.With(
					slog.String("op", "middlewarectx.RequireParticipant"),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				), err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFrom возвращает идентичность участника из контекста.
// Для анонимного запроса возвращается нулевое значение.
func IdentityFrom(ctx context.Context) models.Identity {
	identity, _ := ctx.Value(IdentityKey).(models.Identity)
	return identity
}

// TokenFrom возвращает bearer-токен текущего запроса.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

// WithIdentity кладет идентичность в контекст. Используется в тестах обработчиков.
func WithIdentity(ctx context.Context, identity models.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, IdentityKey, identity)
	return context.WithValue(ctx, TokenKey, token)
}
