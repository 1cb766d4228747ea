// Package provider реализует HTTP-обработчики маршрутов /restapi/provider.
package provider

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/handlers"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/response"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/guard"
)

// Service описывает бизнес-логику партнеров.
type Service interface {
	CreateProvider(ctx context.Context, profile models.ProviderProfile, avatar *blob.File) (*models.Provider, error)
	LoginProvider(ctx context.Context, email, password string) (string, *models.Provider, error)
	ProviderInfo(ctx context.Context, providerID string) (models.ProviderInfo, error)
	EditProvider(ctx context.Context, providerID string, patch models.ProviderPatch, avatar *blob.File) (*models.Provider, error)
	GetHobbies(ctx context.Context, providerID string) ([]*models.Hobby, error)
	FollowedHobbies(ctx context.Context, providerID string) ([]*models.Hobby, error)
}

// Subscriptions переключение подписки партнера на чужое хобби.
type Subscriptions interface {
	ToggleProvider(ctx context.Context, providerID, hobbyID string) (*models.Provider, error)
}

// Comments комментарии к хобби партнера.
type Comments interface {
	ForProvider(ctx context.Context, providerID string) ([]models.CommentInfo, error)
}

// Sessions завершение сессии по токену.
type Sessions interface {
	Logout(ctx context.Context, token string) error
}

// LoginRequest учетные данные партнера.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Handler обрабатывает запросы партнеров.
type Handler struct {
	log           *slog.Logger
	service       Service
	subscriptions Subscriptions
	comments      Comments
	sessions      Sessions
	validate      *validator.Validate
	maxMemory     int64
}

// New создает обработчики маршрутов партнера.
func New(log *slog.Logger, service Service, subscriptions Subscriptions, comments Comments, sessions Sessions) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		subscriptions: subscriptions,
		comments:      comments,
		sessions:      sessions,
		validate:      validator.New(),
		maxMemory:     handlers.DefaultMaxMemory,
	}
}

// Create POST /provider/create.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.provider.Create"
	log := handlers.RequestLogger(h.log, r, op)

	var req models.ProviderProfile
	avatar, ok := handlers.Bind(w, r, log, h.validate, &req, h.maxMemory)
	if !ok {
		return
	}

	p, err := h.service.CreateProvider(r.Context(), req, avatar)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Info("provider created", slog.String("provider_id", p.ID))
	handlers.Created(w, r, map[string]any{"provider": p.Public()})
}

// Login POST /provider/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.provider.Login"
	log := handlers.RequestLogger(h.log, r, op)

	var req LoginRequest
	if _, ok := handlers.Bind(w, r, log, h.validate, &req, h.maxMemory); !ok {
		return
	}

	token, p, err := h.service.LoginProvider(r.Context(), req.Email, req.Password)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Info("login success", slog.String("provider_id", p.ID))
	handlers.OK(w, r, map[string]any{
		"token":    token,
		"provider": p.Public(),
	})
}

// Logout GET /provider/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.provider.Logout"
	log := handlers.RequestLogger(h.log, r, op)

	if err := h.sessions.Logout(r.Context(), middlewarectx.TokenFrom(r.Context())); err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, nil)
}

// Info GET /provider/info[?id=]. Без id возвращает профиль текущего партнера.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.provider.Info"
	log := handlers.RequestLogger(h.log, r, op)

	providerID := r.URL.Query().Get("id")
	if providerID == "" {
		identity := middlewarectx.IdentityFrom(r.Context())
		if err := guard.RequireAuthenticated(identity, models.ParticipantProvider); err != nil {
			response.RenderError(w, r, log, err)
			return
		}
		providerID = identity.ID
	}

	info, err := h.service.ProviderInfo(r.Context(), providerID)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"provider": info})
}

// Edit POST /provider/edit.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.provider.Edit"
	log := handlers.RequestLogger(h.log, r, op)

	var req models.ProviderPatch
	avatar, ok := handlers.Bind(w, r, log, h.validate, &req, h.maxMemory)
	if !ok {
		return
	}

	p, err := h.service.EditProvider(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID, req, avatar)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"provider": p.Public()})
}

// Hobbies GET /provider/hobbies. Хобби, которыми владеет партнер.
func (h *Handler) Hobbies(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.provider.Hobbies"
	log := handlers.RequestLogger(h.log, r, op)

	hobbies, err := h.service.GetHobbies(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"hobbies": hobbies})
}

// Followed GET /provider/followed. Хобби, на которые подписан партнер.
func (h *Handler) Followed(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.provider.Followed"
	log := handlers.RequestLogger(h.log, r, op)

	hobbies, err := h.service.FollowedHobbies(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"hobbies": hobbies})
}

// Comments GET /provider/comments.
func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.provider.Comments"
	log := handlers.RequestLogger(h.log, r, op)

	comments, err := h.comments.ForProvider(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"comments": comments})
}

// Subscribe GET /provider/subscribe?id=.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.provider.Subscribe"
	log := handlers.RequestLogger(h.log, r, op)

	p, err := h.subscriptions.ToggleProvider(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID, r.URL.Query().Get("id"))
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"followedHobbies": p.FollowedHobbies})
}
