// Package server initializes and runs the sessiond server. It wires the
// configuration, storage backends, token service and HTTP endpoint together
// and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comdesk/sessiond/internal/logging"
	"github.com/comdesk/sessiond/internal/server/config"
	"github.com/comdesk/sessiond/internal/server/httpapi"
	"github.com/comdesk/sessiond/internal/server/repositories/credentials"
	"github.com/comdesk/sessiond/internal/server/repositories/users"
	"github.com/comdesk/sessiond/internal/server/services"
	"github.com/comdesk/sessiond/internal/server/storage"
	"github.com/comdesk/sessiond/internal/server/token"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	tokenService *services.TokenService
	closers      []func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	app := &App{config: cfg, logger: logger}

	db, backend, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, db.Close)

	if err := storage.Migrate(ctx, db, backend); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	var userRepo users.Repository
	var credRepo credentials.Repository
	if backend == storage.BackendPostgres {
		userRepo = users.NewPostgresRepository(db)
		credRepo = credentials.NewPostgresRepository(db)
	} else {
		userRepo = users.NewSQLiteRepository(db)
		credRepo = credentials.NewSQLiteRepository(db)
	}

	// Refresh tokens can live in Redis instead of SQL; users stay in SQL.
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.closers = append(app.closers, client.Close)
		credRepo = credentials.NewRedisRepository(client)
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", cfg.TimeZone, err)
	}

	codec, err := token.NewCodec([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration, loc)
	if err != nil {
		return nil, fmt.Errorf("token codec init error: %w", err)
	}

	app.tokenService = services.NewTokenService(userRepo, credRepo, codec, logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddr, app.logger, app.tokenService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	for _, closeFn := range app.closers {
		if err := closeFn(); err != nil {
			app.logger.Error(ctx, err.Error())
		}
	}

	app.logger.Info(ctx, "App stopped")
}
