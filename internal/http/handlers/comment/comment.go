// Package comment реализует HTTP-обработчик создания комментария.
package comment

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hobbyfinder/internal/http/handlers"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/response"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
)

// Service создание комментария к хобби.
type Service interface {
	CreateComment(ctx context.Context, hobbyID string, fields models.CommentFields) (*models.Hobby, error)
}

// Handler обрабатывает POST /comment/create?hobbyId=&relatedId=.
// Автором становится участник из токена запроса.
type Handler struct {
	log       *slog.Logger
	service   Service
	validate  *validator.Validate
	maxMemory int64
}

// New создает обработчик комментариев.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:       log,
		service:   service,
		validate:  validator.New(),
		maxMemory: handlers.DefaultMaxMemory,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.comment.Create"
	log := handlers.RequestLogger(h.log, r, op)

	var req models.CommentFields
	if _, ok := handlers.Bind(w, r, log, h.validate, &req, h.maxMemory); !ok {
		return
	}

	identity := middlewarectx.IdentityFrom(r.Context())
	req.Author = models.Author{Type: identity.Type, ID: identity.ID}
	query := r.URL.Query()
	req.RelatedComment = query.Get("relatedId")

	hobby, err := h.service.CreateComment(r.Context(), query.Get("hobbyId"), req)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Info("comment created", slog.String("hobby_id", hobby.ID))
	handlers.Created(w, r, map[string]any{"hobby": hobby})
}
