package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/layered-config/internal/api"
	"github.com/eugenenazirov/layered-config/internal/config"
	"github.com/eugenenazirov/layered-config/internal/hosting"
	"github.com/eugenenazirov/layered-config/internal/watch"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	host    *hosting.Host
	handler *api.Handler
	router  http.Handler
	watcher *watch.Watcher
	logger  *zap.Logger
	server  *http.Server

	stopWatch context.CancelFunc
}

// New initializes the application from the resolved configuration and the
// host whose store it serves.
func New(cfg config.Config, host *hosting.Host, logger *zap.Logger) (*App, error) {
	if host == nil || host.Store == nil {
		return nil, errors.New("application requires a built configuration host")
	}

	var handlerOpts []api.HandlerOption
	if cfg.RedactSecrets {
		handlerOpts = append(handlerOpts, api.WithRedactedSources(host.SensitiveSources()...))
	}
	handler := api.NewHandler(host.Store, host, handlerOpts...)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithAllowedOrigins(cfg.AllowedOrigins...),
	)

	app := &App{
		host:    host,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter)),
	}

	if files := host.WatchedFiles(); cfg.Watch && len(files) > 0 {
		w, err := watch.New(files, host, cfg.WatchDebounce, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to start settings watcher: %w", err)
		}
		app.watcher = w
	}

	return app, nil
}

// BuildRootHandler mounts the API under /api/ and answers 404 elsewhere.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.NotFoundHandler())
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the settings watcher and the HTTP server in goroutines.
func (a *App) Start() error {
	if a.watcher != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopWatch = cancel
		go a.watcher.Run(ctx)
		a.logger.Info("watching settings files", zap.Int("files", len(a.host.WatchedFiles())))
	}

	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.String("environment", a.host.Environment),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Close stops the settings watcher. The HTTP server is shut down separately
// through Server.
func (a *App) Close() error {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.watcher != nil {
		return a.watcher.Close()
	}
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}
