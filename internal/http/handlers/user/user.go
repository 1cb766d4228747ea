// Package user реализует HTTP-обработчики маршрутов /restapi/user.
//
// Регистрация и вход доступны анонимно, остальные маршруты требуют
// токена пользователя, идентичность берется из контекста запроса.
package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/handlers"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/request"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/response"
	"github.com/magabrotheeeer/hobbyfinder/internal/lib/sl"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
)

// Service описывает бизнес-логику пользователей.
type Service interface {
	CreateUser(ctx context.Context, profile models.UserProfile, avatar *blob.File) (*models.User, error)
	LoginUser(ctx context.Context, email, password string) (string, *models.User, error)
	EditUser(ctx context.Context, userID string, patch models.UserPatch, avatar *blob.File) (*models.User, error)
	AvatarUpload(ctx context.Context, userID string, file *blob.File) (*models.User, error)
	UserInfo(ctx context.Context, userID string) (models.UserInfo, error)
	GetHobbies(ctx context.Context, userID string) ([]*models.Hobby, error)
}

// Subscriptions переключение подписки пользователя на хобби.
type Subscriptions interface {
	ToggleUser(ctx context.Context, userID, hobbyID string) (*models.User, error)
}

// Comments комментарии пользователя.
type Comments interface {
	ByUser(ctx context.Context, userID string) ([]models.CommentInfo, error)
}

// Sessions завершение сессии по токену.
type Sessions interface {
	Logout(ctx context.Context, token string) error
}

// LoginRequest учетные данные для входа.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Handler обрабатывает запросы пользователей.
type Handler struct {
	log           *slog.Logger
	service       Service
	subscriptions Subscriptions
	comments      Comments
	sessions      Sessions
	validate      *validator.Validate
	maxMemory     int64
}

// New создает обработчики пользовательских маршрутов.
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

// Create POST /user/create.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Create"
	log := handlers.RequestLogger(h.log, r, op)

	var req models.UserProfile
	avatar, ok := handlers.Bind(w, r, log, h.validate, &req, h.maxMemory)
	if !ok {
		return
	}

	u, err := h.service.CreateUser(r.Context(), req, avatar)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Info("user created", slog.String("user_id", u.ID))
	handlers.Created(w, r, map[string]any{"user": u.Info()})
}

// Login POST /user/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Login"
	log := handlers.RequestLogger(h.log, r, op)

	var req LoginRequest
	if _, ok := handlers.Bind(w, r, log, h.validate, &req, h.maxMemory); !ok {
		return
	}

	token, u, err := h.service.LoginUser(r.Context(), req.Email, req.Password)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Info("login success", slog.String("user_id", u.ID))
	handlers.OK(w, r, map[string]any{
		"token": token,
		"user":  u.Info(),
	})
}

// Logout GET /user/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Logout"
	log := handlers.RequestLogger(h.log, r, op)

	if err := h.sessions.Logout(r.Context(), middlewarectx.TokenFrom(r.Context())); err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	log.Info("user logged out", slog.String("user_id", middlewarectx.IdentityFrom(r.Context()).ID))
	handlers.OK(w, r, nil)
}

// Info GET /user/info.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Info"
	log := handlers.RequestLogger(h.log, r, op)

	info, err := h.service.UserInfo(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"user": info})
}

// Subscribe GET /user/subscribe?id=.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Subscribe"
	log := handlers.RequestLogger(h.log, r, op)

	u, err := h.subscriptions.ToggleUser(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID, r.URL.Query().Get("id"))
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"hobbies": u.Hobbies})
}

// Hobbies GET /user/hobbies.
func (h *Handler) Hobbies(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Hobbies"
	log := handlers.RequestLogger(h.log, r, op)

	hobbies, err := h.service.GetHobbies(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"hobbies": hobbies})
}

// Comments GET /user/comments.
func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Comments"
	log := handlers.RequestLogger(h.log, r, op)

	comments, err := h.comments.ByUser(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"comments": comments})
}

// Edit POST /user/edit.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Edit"
	log := handlers.RequestLogger(h.log, r, op)

	var req models.UserPatch
	avatar, ok := handlers.Bind(w, r, log, h.validate, &req, h.maxMemory)
	if !ok {
		return
	}

	u, err := h.service.EditUser(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID, req, avatar)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"user": u.Info()})
}

// Upload POST /user/upload. Принимает только multipart с частью avatar.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Upload"
	log := handlers.RequestLogger(h.log, r, op)

	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		log.Error("failed to parse multipart form", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	file, err := request.Avatar(r)
	if err != nil {
		log.Error("failed to read avatar", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	u, err := h.service.AvatarUpload(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID, file)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"user": u.Info()})
}
