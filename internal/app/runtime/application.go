// Package runtime builds a FrameStore server from configuration: storage
// backend, optional Redis cache, session tokens, services and HTTP listener.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	app "github.com/R3E-Network/framestore/internal/app"
	"github.com/R3E-Network/framestore/internal/app/httpapi"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/internal/app/storage/cache"
	"github.com/R3E-Network/framestore/internal/app/storage/memory"
	"github.com/R3E-Network/framestore/internal/app/storage/postgres"
	supastore "github.com/R3E-Network/framestore/internal/app/storage/supabase"
	"github.com/R3E-Network/framestore/internal/auth"
	"github.com/R3E-Network/framestore/internal/config"
	"github.com/R3E-Network/framestore/internal/middleware"
	"github.com/R3E-Network/framestore/internal/platform/migrations"
	"github.com/R3E-Network/framestore/pkg/logger"
	"github.com/R3E-Network/framestore/supabase/client"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	limiter    *middleware.RateLimiter
	auditSink  *httpapi.FileAuditSink
	db         *sqlx.DB
	rdb        *redis.Client
}

// NewApplication constructs an application from cfg. A nil log is built from
// cfg.Logging.
func NewApplication(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if log == nil {
		log = logger.New(logger.LoggingConfig{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			Output:     cfg.Logging.Output,
			FilePrefix: cfg.Logging.FilePrefix,
		})
	}

	rt := &Application{cfg: cfg, log: log}
	store, err := rt.buildStore(ctx)
	if err != nil {
		rt.closeBackends()
		return nil, fmt.Errorf("configure storage: %w", err)
	}

	tokens, err := buildTokens(cfg.Auth, log)
	if err != nil {
		rt.closeBackends()
		return nil, err
	}

	schedulerSpec := ""
	if cfg.Scheduler.Enabled {
		schedulerSpec = cfg.Scheduler.Spec
	}
	rt.app, err = app.New(store, app.Options{
		Tokens:        tokens,
		EmbedBaseURL:  cfg.Embed.BaseURL,
		SchedulerSpec: schedulerSpec,
	}, log.Named("app"))
	if err != nil {
		rt.closeBackends()
		return nil, err
	}

	opts := httpapi.Options{
		Logger:         log.Named("http"),
		AllowedOrigins: cfg.CORS.Origins(),
	}
	if cfg.RateLimit.Enabled {
		rt.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log.Named("ratelimit"))
		opts.RateLimiter = rt.limiter
	}
	if cfg.Server.AuditLog != "" {
		sink, err := httpapi.NewFileAuditSink(cfg.Server.AuditLog)
		if err != nil {
			rt.closeBackends()
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		rt.auditSink = sink
		opts.Audit = httpapi.NewAuditLog(0, sink, log.Named("audit"))
	}

	rt.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewHandler(rt.app, opts),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return rt, nil
}

// App exposes the wired services.
func (a *Application) App() *app.Application { return a.app }

// Handler returns the HTTP handler served by Run.
func (a *Application) Handler() http.Handler { return a.httpServer.Handler }

func (a *Application) buildStore(ctx context.Context) (storage.Store, error) {
	var store storage.Store
	switch a.cfg.Storage.Backend {
	case config.StorageMemory, "":
		store = memory.New()
	case config.StoragePostgres:
		db, err := postgres.Open(ctx, a.cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		db.SetMaxOpenConns(a.cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(a.cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(a.cfg.Database.ConnMaxLifetime)
		if a.cfg.Database.MigrateOnStart {
			version, err := migrations.Up(db.DB)
			if err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			a.log.WithField("version", version).Info("database schema migrated")
		}
		store = postgres.New(db)
	case config.StorageSupabase:
		retry := client.DefaultRetryConfig()
		if a.cfg.Supabase.MaxRetries >= 0 {
			retry.MaxRetries = a.cfg.Supabase.MaxRetries
		}
		c, err := client.NewEnhanced(client.EnhancedConfig{
			Config: client.Config{
				URL:     a.cfg.Supabase.URL,
				APIKey:  a.cfg.Supabase.ServiceRoleKey,
				Timeout: a.cfg.Supabase.Timeout,
				Logger:  a.log.Named("supabase"),
			},
			RetryConfig:          retry,
			CircuitBreakerConfig: client.DefaultCircuitBreakerConfig(),
			EnableResilience:     true,
		})
		if err != nil {
			return nil, fmt.Errorf("supabase client: %w", err)
		}
		store = supastore.New(c)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}

	if a.cfg.Redis.Addr != "" {
		a.rdb = cache.NewClient(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		store = cache.New(store, a.rdb, a.cfg.Redis.TTL, a.log.Named("frame-cache"))
	}
	a.log.WithField("backend", a.cfg.Storage.Backend).WithField("cache", a.rdb != nil).Info("storage configured")
	return store, nil
}

// buildTokens uses the configured secret, or an ephemeral one that
// invalidates every session on restart.
func buildTokens(cfg config.AuthConfig, log *logger.Logger) (*auth.Tokens, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
		log.Warn("FRAMESTORE_JWT_SECRET not set; using an ephemeral signing secret")
	}
	tokens, err := auth.NewTokens(secret, cfg.Issuer, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("configure session tokens: %w", err)
	}
	return tokens, nil
}

// Run starts background services and the HTTP server, and blocks until ctx
// is cancelled or the listener fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	if a.limiter != nil {
		a.limiter.StartCleanup(ctx, time.Minute)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.cfg.Server.Addr).Info("HTTP server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server, then background services, then closes the
// storage connections.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop services: %w", err))
	}
	if err := a.auditSink.Close(); err != nil {
		a.log.WithError(err).Warn("error closing audit log")
	}
	a.closeBackends()
	return errors.Join(errs...)
}

func (a *Application) closeBackends() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis client")
		}
		a.rdb = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
		a.db = nil
	}
}
