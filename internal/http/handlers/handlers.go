// Package handlers содержит общие части HTTP-обработчиков ресурсов:
// логгер запроса, разбор и валидацию тела, ответы в едином формате.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/request"
	"github.com/magabrotheeeer/hobbyfinder/internal/http/response"
	"github.com/magabrotheeeer/hobbyfinder/internal/lib/sl"
)

// DefaultMaxMemory объем multipart-запроса, который держится в памяти.
const DefaultMaxMemory = 8 << 20

// RequestLogger возвращает логгер с операцией и идентификатором запроса.
func RequestLogger(log *slog.Logger, r *http.Request, op string) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Bind разбирает тело запроса в dst и валидирует его. При ошибке пишет ответ
// и возвращает false.
func Bind(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, dst any, maxMemory int64) (*blob.File, bool) {
	file, err := request.Decode(r, dst, maxMemory)
	if err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		status := http.StatusBadRequest
		if errors.Is(err, request.ErrUnsupportedMediaType) {
			status = http.StatusUnsupportedMediaType
		}
		render.Status(r, status)
		render.JSON(w, r, response.Error("invalid request body"))
		return nil, false
	}

	if err := validate.Struct(dst); err != nil {
		log.Error("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return nil, false
		}
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return nil, false
	}
	return file, true
}

// OK пишет успешный ответ с данными.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	render.JSON(w, r, response.OK(data))
}

// Created пишет ответ 201 с данными.
func Created(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(data))
}
