// Package hobby реализует HTTP-обработчики маршрутов /restapi/hobby.
//
// Поиск и просмотр доступны всем, создание, редактирование и подключение
// тарифа выполняются от имени партнера-владельца.
package hobby

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/handlers"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/response"
	"github.com/magabrotheeeer/hobbyfinder/internal/lib/sl"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
)

// Service описывает бизнес-логику хобби.
type Service interface {
	AddHobby(ctx context.Context, providerID string, fields models.HobbyFields, avatar *blob.File) (*models.Hobby, error)
	FindByLabel(ctx context.Context, label, metroID string) ([]*models.Hobby, error)
	HobbyInfo(ctx context.Context, hobbyID string) (*models.Hobby, error)
	All(ctx context.Context) ([]*models.Hobby, error)
	Filtered(ctx context.Context, filters map[string]string) ([]*models.Hobby, error)
	EditHobby(ctx context.Context, providerID, hobbyID string, patch map[string]any) (*models.Hobby, error)
	AddTariff(ctx context.Context, hobbyID, providerID string, tariff models.TariffPlan) (*models.Hobby, error)
}

// Comments комментарии к хобби.
type Comments interface {
	ForHobby(ctx context.Context, hobbyID string) ([]models.CommentInfo, error)
}

// Handler обрабатывает запросы к хобби.
type Handler struct {
	log       *slog.Logger
	service   Service
	comments  Comments
	validate  *validator.Validate
	maxMemory int64
}

// New создает обработчики маршрутов хобби.
func New(log *slog.Logger, service Service, comments Comments) *Handler {
	return &Handler{
		log:       log,
		service:   service,
		comments:  comments,
		validate:  validator.New(),
		maxMemory: handlers.DefaultMaxMemory,
	}
}

// Add POST /hobby/add.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.hobby.Add"
	log := handlers.RequestLogger(h.log, r, op)

	var req models.HobbyFields
	avatar, ok := handlers.Bind(w, r, log, h.validate, &req, h.maxMemory)
	if !ok {
		return
	}

	hobby, err := h.service.AddHobby(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID, req, avatar)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Info("hobby created", slog.String("hobby_id", hobby.ID))
	handlers.Created(w, r, map[string]any{"hobby": hobby})
}

// Edit POST /hobby/edit?id=. Тело JSON-объект с изменяемыми полями.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.hobby.Edit"
	log := handlers.RequestLogger(h.log, r, op)

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	hobby, err := h.service.EditHobby(r.Context(), middlewarectx.IdentityFrom(r.Context()).ID, r.URL.Query().Get("id"), patch)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"hobby": hobby})
}

// Activate POST /hobby/activate?hobbyId=&tariff=.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.hobby.Activate"
	log := handlers.RequestLogger(h.log, r, op)

	query := r.URL.Query()
	tariff, err := strconv.Atoi(query.Get("tariff"))
	if err != nil {
		log.Error("failed to parse tariff", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("Неизвестный тариф"))
		return
	}

	hobby, err := h.service.AddTariff(r.Context(), query.Get("hobbyId"), middlewarectx.IdentityFrom(r.Context()).ID, models.TariffPlan(tariff))
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"hobby": hobby})
}

// Find GET /hobby/find?label=&metroId=.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.hobby.Find"
	log := handlers.RequestLogger(h.log, r, op)

	query := r.URL.Query()
	hobbies, err := h.service.FindByLabel(r.Context(), query.Get("label"), query.Get("metroId"))
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"hobbies": hobbies})
}

// Filter GET /hobby/filter?field=value.
func (h *Handler) Filter(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.hobby.Filter"
	log := handlers.RequestLogger(h.log, r, op)

	filters := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}

	hobbies, err := h.service.Filtered(r.Context(), filters)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"hobbies": hobbies})
}

// All GET /hobby/all.
func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.hobby.All"
	log := handlers.RequestLogger(h.log, r, op)

	hobbies, err := h.service.All(r.Context())
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"hobbies": hobbies})
}

// Info GET /hobby/info?id=.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.hobby.Info"
	log := handlers.RequestLogger(h.log, r, op)

	hobby, err := h.service.HobbyInfo(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"hobby": hobby})
}

// Comments GET /hobby/comments?id=.
func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.hobby.Comments"
	log := handlers.RequestLogger(h.log, r, op)

	comments, err := h.comments.ForHobby(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"comments": comments})
}
