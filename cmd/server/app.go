package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/crewboard/crewboard-api/internal/api"
	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/config"
	"github.com/crewboard/crewboard-api/internal/notify"
	"github.com/crewboard/crewboard-api/internal/platform/postgres"
	"github.com/crewboard/crewboard-api/internal/platform/redisstore"
	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/queue/handlers"
	"github.com/crewboard/crewboard-api/internal/service"
)

const shutdownTimeout = 15 * time.Second

// application holds the wired-up components of the server process.
type application struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         *sql.DB
	redis      *redis.Client
	dispatcher *queue.Dispatcher
	server     *http.Server

	// Service layer, exposed for HTTP handlers as the API surface grows.
	Users    *service.UserService
	Auth     *service.AuthService
	Projects *service.ProjectService
	Tasks    *service.TaskService
}

// newApplication wires configuration into a runnable server: database and
// migrations, Redis-backed cache and job store, the handler registry,
// dispatcher, services and the HTTP router.
func newApplication(ctx context.Context, cfg *config.Config, logg *slog.Logger) (*application, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := runMigrations(db, logg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	rdb, err := redisstore.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	cacheStore := redisstore.NewCache(rdb, logg)
	invalidator := cache.NewInvalidator(cacheStore)

	users := postgres.NewUserStore(db)
	projects := postgres.NewProjectStore(db)
	tasks := postgres.NewTaskStore(db)
	comments := postgres.NewCommentStore(db)
	stats := postgres.NewStatsStore(db)
	notifications := postgres.NewNotificationStore(db)

	var email notify.EmailSender
	if cfg.Email.SMTPAddr != "" {
		email = notify.NewSMTPSender(cfg.Email.SMTPAddr, cfg.Email.From)
	} else {
		email = notify.NewLogSender(logg)
	}

	registry := queue.NewRegistry(queue.Declared())
	if err := handlers.RegisterAll(registry, handlers.Deps{
		Users:         users,
		Tasks:         tasks,
		Comments:      comments,
		Stats:         stats,
		Notifications: notifications,
		Cache:         cacheStore,
		Email:         email,
	}); err != nil {
		return nil, fmt.Errorf("failed to register job handlers: %w", err)
	}

	jobStore := redisstore.NewJobStore(rdb)
	jobs := queue.NewClient(registry, jobStore, logg)
	dispatcher := queue.NewDispatcher(registry, jobStore, queue.DispatcherConfig{
		PollInterval:         cfg.Queue.PollInterval,
		PromoteInterval:      cfg.Queue.PromoteInterval,
		StalledAfter:         cfg.Queue.StalledAfter,
		StalledCheckInterval: cfg.Queue.StalledCheckInterval,
	}, logg)
	monitor := queue.NewMonitor(registry, jobStore)

	admin := api.NewAdminHandler(monitor, db, rdb)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(admin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &application{
		cfg:        cfg,
		logger:     logg,
		db:         db,
		redis:      rdb,
		dispatcher: dispatcher,
		server:     server,
		Users:      service.NewUserService(users, projects, invalidator, jobs, logg),
		Auth:       service.NewAuthService(users, cacheStore, invalidator, cfg.Auth, logg),
		Projects:   service.NewProjectService(projects, stats, cacheStore, invalidator, jobs, logg),
		Tasks:      service.NewTaskService(tasks, comments, cacheStore, invalidator, jobs, logg),
	}, nil
}

// Run starts the dispatcher and the HTTP server and blocks until ctx is
// cancelled, then shuts both down: the HTTP server first so no new work
// arrives, then the dispatcher so in-flight jobs finish their writes.
func (a *application) Run(ctx context.Context) error {
	a.dispatcher.Start()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.dispatcher.Stop()
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown failed", "error", err)
	}

	a.dispatcher.Stop()
	return nil
}

// Close releases the connection pools.
func (a *application) Close() {
	if err := a.redis.Close(); err != nil {
		a.logger.Error("failed to close redis client", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database pool", "error", err)
	}
}
