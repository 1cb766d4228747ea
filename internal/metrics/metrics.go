// Package metrics содержит метрики Prometheus сервиса: HTTP-запросы и доменные операции.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hobbyfinder_http_requests_total",
		Help: "Общее количество HTTP-запросов.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hobbyfinder_http_request_duration_seconds",
		Help:    "Длительность HTTP-запросов.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// SubscriptionToggles число переключений подписки по типу участника и действию.
	SubscriptionToggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hobbyfinder_subscription_toggles_total",
		Help: "Количество подписок и отписок на хобби.",
	}, []string{"participant", "action"})

	// CommentsCreated число созданных комментариев по типу автора.
	CommentsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hobbyfinder_comments_created_total",
		Help: "Количество созданных комментариев.",
	}, []string{"author"})

	// EventPublishErrors число неудачных публикаций событий.
	EventPublishErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hobbyfinder_event_publish_errors_total",
		Help: "Количество ошибок публикации доменных событий.",
	}, []string{"routing_key"})
)

// MustRegister регистрирует метрики пакета в переданном реестре.
func MustRegister(registerer prometheus.Registerer) {
	registerOnce.Do(func() {
		registerer.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			SubscriptionToggles,
			CommentsCreated,
			EventPublishErrors,
		)
	})
}

// Middleware собирает метрики HTTP-запросов. Путь берется из шаблона маршрута chi,
// чтобы значения параметров не раздували число серий.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
