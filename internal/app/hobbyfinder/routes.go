// Package hobbyfinder собирает HTTP-приложение: хранилище, сервисы и маршруты.
package hobbyfinder

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/hobbyfinder/internal/http/handlers/comment"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/handlers/hobby"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/handlers/provider"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/handlers/user"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hobbyfinder/internal/metrics"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
)

// Routes обработчики и параметры, из которых строится роутер.
type Routes struct {
	Users     *user.Handler
	Providers *provider.Handler
	Hobbies   *hobby.Handler
	Comments  *comment.Handler
	Auth      middlewarectx.Authenticator

	RateRPS   float64
	RateBurst int

	// StaticURL и StaticDir задают раздачу загруженных файлов.
	// StaticURL вида "/static", абсолютный URL отключает раздачу.
	StaticURL string
	StaticDir string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, rt Routes) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		metrics.Middleware,
	)

	requireUser := middlewarectx.RequireParticipant(models.ParticipantUser, logger)
	requireProvider := middlewarectx.RequireParticipant(models.ParticipantProvider, logger)

	r.Route("/restapi", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, rt.RateRPS, rt.RateBurst))
		r.Use(middlewarectx.IdentityMiddleware(rt.Auth, logger))

		r.Route("/user", func(r chi.Router) {
			r.Post("/create", rt.Users.Create)
			r.Post("/login", rt.Users.Login)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Get("/logout", rt.Users.Logout)
				r.Get("/info", rt.Users.Info)
				r.Get("/subscribe", rt.Users.Subscribe)
				r.Get("/hobbies", rt.Users.Hobbies)
				r.Get("/comments", rt.Users.Comments)
				r.Post("/edit", rt.Users.Edit)
				r.Post("/upload", rt.Users.Upload)
			})
		})

		r.Route("/provider", func(r chi.Router) {
			r.Post("/create", rt.Providers.Create)
			r.Post("/login", rt.Providers.Login)
			// Без id возвращает профиль текущего партнера.
			r.Get("/info", rt.Providers.Info)

			r.Group(func(r chi.Router) {
				r.Use(requireProvider)
				r.Get("/logout", rt.Providers.Logout)
				r.Post("/edit", rt.Providers.Edit)
				r.Get("/hobbies", rt.Providers.Hobbies)
				r.Get("/followed", rt.Providers.Followed)
				r.Get("/comments", rt.Providers.Comments)
				r.Get("/subscribe", rt.Providers.Subscribe)
			})
		})

		r.Route("/hobby", func(r chi.Router) {
			r.Get("/find", rt.Hobbies.Find)
			r.Get("/filter", rt.Hobbies.Filter)
			r.Get("/all", rt.Hobbies.All)
			r.Get("/info", rt.Hobbies.Info)
			r.Get("/comments", rt.Hobbies.Comments)

			r.Group(func(r chi.Router) {
				r.Use(requireProvider)
				r.Post("/add", rt.Hobbies.Add)
				r.Post("/edit", rt.Hobbies.Edit)
				r.Post("/activate", rt.Hobbies.Activate)
			})
		})

		r.Post("/comment/create", rt.Comments.ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())

	if strings.HasPrefix(rt.StaticURL, "/") && rt.StaticDir != "" {
		prefix := strings.TrimSuffix(rt.StaticURL, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(rt.StaticDir))))
	}
}
