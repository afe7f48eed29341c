package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lychee-technology/formadmin"
	"github.com/lychee-technology/formadmin/factory"
	"github.com/lychee-technology/formadmin/internal"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// adminService is the part of factory.Admin the HTTP layer depends on.
type adminService interface {
	Controller(name string) (formadmin.Controller, error)
	Models() []string
	HealthCheck(ctx context.Context, timeout time.Duration) map[string]error
}

// Server represents the HTTP server in front of the admin controllers
type Server struct {
	admin  adminService
	config *formadmin.Config
	router chi.Router
}

// NewServer creates a new Server instance with all routes registered
func NewServer(admin adminService, config *formadmin.Config) *Server {
	s := &Server{
		admin:  admin,
		config: config,
		router: chi.NewRouter(),
	}
	s.RegisterRoutes()
	return s
}

// RegisterRoutes registers the admin, health and metrics routes
func (s *Server) RegisterRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(zap.L()))
	r.Use(metricsMiddleware())
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route(s.config.Admin.RoutePrefix, func(r chi.Router) {
		r.Get("/", s.handleIndex)
		r.Get("/_fixtures/vulninjection", s.handleFixtures)
		r.Get("/_fixtures/vulninjection/{context}", s.handleFixture)
		r.Route("/{model}", func(r chi.Router) {
			r.Get("/", s.handleAction(formadmin.Controller.List))
			r.HandleFunc("/new", s.handleAction(formadmin.Controller.New))
			r.HandleFunc("/edit", s.handleAction(formadmin.Controller.Edit))
			r.HandleFunc("/edit/{id}", s.handleAction(formadmin.Controller.Edit))
			r.HandleFunc("/delete", s.handleAction(formadmin.Controller.Delete))
			r.HandleFunc("/delete/{id}", s.handleAction(formadmin.Controller.Delete))
		})
	})

	// Local uploads are served from the web root.
	if s.config.Upload.Backend == formadmin.UploadBackendLocal && s.config.Admin.WebRoot != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.Admin.WebRoot)))
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("starting server", "addr", srv.Addr, "routePrefix", s.config.Admin.RoutePrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		zap.S().Infow("shutdown requested")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	zap.S().Infow("server stopped")
	return nil
}

func main() {
	config := loadConfig()

	logger, err := newLogger(config.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if err := config.Validate(); err != nil {
		sugar.Fatalf("invalid configuration: %v", err)
	}
	if err := internal.ValidatePostgresConfig(config.Database); err != nil {
		sugar.Fatalf("invalid database configuration: %v", err)
	}

	ctx := context.Background()

	pool, err := internal.NewPostgresPool(ctx, config.Database)
	if err != nil {
		sugar.Fatalf("failed to create database pool: %v", err)
	}
	defer pool.Close()

	admin, err := factory.NewAdminWithConfig(ctx, config, pool, nil)
	if err != nil {
		sugar.Fatalf("failed to initialize admin: %v", err)
	}

	server := NewServer(admin, config)
	if err := server.Run(ctx); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}

// loadConfig overlays environment variables on the defaults
func loadConfig() *formadmin.Config {
	config := formadmin.DefaultConfig()

	config.Database = formadmin.DatabaseConfig{
		Host:            getEnv("DB_HOST", config.Database.Host),
		Port:            getEnvInt("DB_PORT", config.Database.Port),
		Database:        getEnv("DB_NAME", config.Database.Database),
		Username:        getEnv("DB_USER", config.Database.Username),
		Password:        getEnv("DB_PASSWORD", ""),
		SSLMode:         getEnv("DB_SSL_MODE", config.Database.SSLMode),
		MaxConnections:  getEnvInt("DB_MAX_CONNECTIONS", config.Database.MaxConnections),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", config.Database.MaxIdleConns),
		ConnMaxLifetime: getEnvSeconds("DB_CONN_MAX_LIFETIME_SECONDS", config.Database.ConnMaxLifetime),
		ConnMaxIdleTime: getEnvSeconds("DB_CONN_MAX_IDLE_TIME_SECONDS", config.Database.ConnMaxIdleTime),
		Timeout:         getEnvSeconds("DB_TIMEOUT_SECONDS", config.Database.Timeout),
		UseIAM:          getEnvBool("DB_USE_IAM", false),
		Region:          getEnv("DB_REGION", getEnv("AWS_REGION", "")),
	}

	config.Query.DefaultTimeout = getEnvSeconds("QUERY_TIMEOUT_SECONDS", config.Query.DefaultTimeout)
	config.Query.DefaultPageSize = getEnvInt("QUERY_DEFAULT_PAGE_SIZE", config.Query.DefaultPageSize)
	config.Query.MaxPageSize = getEnvInt("QUERY_MAX_PAGE_SIZE", config.Query.MaxPageSize)

	config.Admin.RoutePrefix = getEnv("ADMIN_ROUTE_PREFIX", config.Admin.RoutePrefix)
	config.Admin.ModelDirectory = getEnv("ADMIN_MODEL_DIR", config.Admin.ModelDirectory)
	config.Admin.WebRoot = getEnv("ADMIN_WEB_ROOT", config.Admin.WebRoot)

	config.Upload.Backend = formadmin.UploadBackend(strings.ToLower(getEnv("UPLOAD_BACKEND", string(config.Upload.Backend))))
	config.Upload.MaxUploadSize = int64(getEnvInt("UPLOAD_MAX_BYTES", int(config.Upload.MaxUploadSize)))
	config.Upload.S3 = formadmin.S3Config{
		Bucket:       getEnv("S3_BUCKET", ""),
		Region:       getEnv("S3_REGION", getEnv("AWS_REGION", "")),
		Endpoint:     getEnv("S3_ENDPOINT", ""),
		Prefix:       getEnv("S3_PREFIX", ""),
		AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		SecretKey:    getEnv("S3_SECRET_KEY", ""),
		UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),
	}

	config.Server.Port = getEnvInt("PORT", config.Server.Port)
	config.Server.ShutdownTimeout = getEnvSeconds("SHUTDOWN_TIMEOUT_SECONDS", config.Server.ShutdownTimeout)

	config.Logging.Level = getEnv("LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getEnv("LOG_FORMAT", config.Logging.Format)
	return config
}

// newLogger builds a production logger, or a development one for the console format.
func newLogger(cfg formadmin.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.OutputPaths = []string{"stdout"}
	if os.Getenv("LOG_FILE") != "" {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, os.Getenv("LOG_FILE"))
	}
	return zapConfig.Build()
}
