package hobbyfinder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
	"github.com/magabrotheeeer/hobbyfinder/internal/cache"
	"github.com/magabrotheeeer/hobbyfinder/internal/config"
	"github.com/magabrotheeeer/hobbyfinder/internal/events"
	commenthandler "github.com/magabrotheeeer/hobbyfinder/internal/http/handlers/comment"
	hobbyhandler "github.com/magabrotheeeer/hobbyfinder/internal/http/handlers/hobby"
	providerhandler "github.com/magabrotheeeer/hobbyfinder/internal/http/handlers/provider"
	userhandler "github.com/magabrotheeeer/hobbyfinder/internal/http/handlers/user"
	"github.com/magabrotheeeer/hobbyfinder/internal/lib/jwt"
	"github.com/magabrotheeeer/hobbyfinder/internal/lib/password"
	"github.com/magabrotheeeer/hobbyfinder/internal/lib/sl"
	"github.com/magabrotheeeer/hobbyfinder/internal/metrics"
	"github.com/magabrotheeeer/hobbyfinder/internal/migrations"
	"github.com/magabrotheeeer/hobbyfinder/internal/rabbitmq"
	"github.com/magabrotheeeer/hobbyfinder/internal/repository"
	authservice "github.com/magabrotheeeer/hobbyfinder/internal/services/auth"
	commentservice "github.com/magabrotheeeer/hobbyfinder/internal/services/comment"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/guard"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/media"
	hobbyservice "github.com/magabrotheeeer/hobbyfinder/internal/services/hobby"
	providerservice "github.com/magabrotheeeer/hobbyfinder/internal/services/provider"
	subscriptionservice "github.com/magabrotheeeer/hobbyfinder/internal/services/subscription"
	userservice "github.com/magabrotheeeer/hobbyfinder/internal/services/user"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage/memory"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage/postgresql"
)

// App HTTP-приложение вместе с инфраструктурой, которую нужно закрыть при остановке.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	closers []io.Closer
}

// Deps внешние зависимости сервисов. Revoker и Publisher могут быть nil.
// Без Uploader файлы пишутся на локальный диск из cfg.Blob и раздаются под /static.
type Deps struct {
	Store     storage.Store
	Revoker   authservice.Revoker
	Publisher events.Publisher
	Uploader  media.Uploader
}

// New поднимает хранилище, redis и rabbitmq по конфигу и собирает сервер.
// Без строки подключения к базе используется хранилище в памяти.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger}
	deps := Deps{}

	if cfg.StorageConnectionString != "" {
		db, err := postgresql.New(cfg.StorageConnectionString)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db)
		if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			app.close()
			return nil, err
		}
		deps.Store = db
	} else {
		logger.Warn("storage connection string is empty, using in-memory store")
		deps.Store = memory.New(repository.UniqueFields())
	}

	if cfg.RedisConnection.Address != "" {
		cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			app.close()
			return nil, err
		}
		app.closers = append(app.closers, cacheRedis)
		deps.Revoker = cacheRedis
	} else {
		logger.Warn("redis address is empty, logout will not revoke tokens")
	}

	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			app.close()
			return nil, err
		}
		app.closers = append(app.closers, conn)
		ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange)
		if err != nil {
			app.close()
			return nil, err
		}
		publisher := rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange)
		// Канал закрывается раньше соединения.
		app.closers = append(app.closers, publisher)
		deps.Publisher = publisher
	}

	if cfg.Blob.S3.Endpoint != "" {
		uploader, err := blob.NewS3(cfg.Blob.S3, cfg.Blob.MaxSize)
		if err != nil {
			app.close()
			return nil, err
		}
		deps.Uploader = uploader
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	router := NewRouter(cfg, logger, deps)

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return app, nil
}

// NewRouter связывает сервисы с обработчиками поверх переданных зависимостей.
func NewRouter(cfg *config.Config, logger *slog.Logger, deps Deps) chi.Router {
	repo := repository.New(deps.Store)
	uploader, staticDir := deps.Uploader, ""
	if uploader == nil {
		local := blob.NewLocal(cfg.Blob.Dir, cfg.Blob.PublicURL, cfg.Blob.MaxSize)
		uploader, staticDir = local, local.Dir()
	}
	hasher := password.NewHasher(cfg.Password.Cost)
	unique := guard.NewUniqueness(repo.Users, repo.Providers)

	auth := authservice.NewService(jwt.NewJWTMaker(cfg.JWTToken.SecretKey, cfg.JWTToken.TokenTTL), deps.Revoker, logger)

	users := userservice.NewService(repo.Users, repo.Hobbies, hasher, unique, uploader, auth, logger)
	providers := providerservice.NewService(repo.Providers, repo.Hobbies, hasher, unique, uploader, auth, logger)
	hobbies := hobbyservice.NewService(repo.Hobbies, repo.Providers, uploader, logger)
	subscriptions := subscriptionservice.NewService(repo.Hobbies, repo.Users, repo.Providers, deps.Publisher, logger)
	comments := commentservice.NewService(repo.Comments, repo.Hobbies, repo.Users, repo.Providers, deps.Publisher, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Routes{
		Users:     userhandler.New(logger, users, subscriptions, comments, auth),
		Providers: providerhandler.New(logger, providers, subscriptions, comments, auth),
		Hobbies:   hobbyhandler.New(logger, hobbies, comments),
		Comments:  commenthandler.New(logger, comments),
		Auth:      auth,
		RateRPS:   cfg.RateLimit.RPS,
		RateBurst: cfg.RateLimit.Burst,
		StaticURL: cfg.Blob.PublicURL,
		StaticDir: staticDir,
	})
	return router
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}
