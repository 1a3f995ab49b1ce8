// Package app assembles the service from configuration and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/timmy/artgen/internal/api"
	"github.com/timmy/artgen/internal/auth"
	"github.com/timmy/artgen/internal/config"
	"github.com/timmy/artgen/internal/logger"
	"github.com/timmy/artgen/internal/provider"
	"github.com/timmy/artgen/internal/repository"
	"github.com/timmy/artgen/internal/service"
	"github.com/timmy/artgen/internal/storage"
	"gorm.io/gorm"
)

// App holds every long-lived component of the server process.
type App struct {
	cfg    *config.Config
	db     *gorm.DB
	redis  *redis.Client
	server *http.Server

	Repo      *repository.MetadataRepository
	Generated storage.ObjectStorage
	Uploaded  storage.ObjectStorage
	Registry  *provider.Registry
	Sweeper   *service.Sweeper
	Gate      *auth.Gate
}

// New builds the application from cfg. Nothing is started yet.
// Parameters:
//   - ctx: context for startup calls such as bucket creation.
//   - cfg: validated configuration.
//   - log: base logger.
//
// Returns:
//   - *App: assembled application.
//   - error: non-nil if any dependency fails to initialise.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{cfg: cfg}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db
	a.Repo = repository.NewMetadataRepository(db)

	if a.Generated, err = newStore(ctx, &cfg.Storage, cfg.Storage.GeneratedDir, "generated_images/"); err != nil {
		_ = a.close()
		return nil, fmt.Errorf("failed to initialize generated image store: %w", err)
	}
	if a.Uploaded, err = newStore(ctx, &cfg.Storage, cfg.Storage.UploadedDir, "uploaded_images/"); err != nil {
		_ = a.close()
		return nil, fmt.Errorf("failed to initialize uploaded image store: %w", err)
	}

	a.Registry = NewRegistry(&cfg.Providers)
	logger.Info("Registered providers: %v", a.Registry.Models())

	a.Sweeper = service.NewSweeper(a.Repo, a.Generated, a.Uploaded, service.SweeperConfig{
		Interval:   cfg.Retention.Interval,
		MaxAge:     cfg.Retention.MaxAge,
		RunOnStart: cfg.Retention.RunOnStart,
	})

	if cfg.Auth.Enabled() {
		store, err := a.sessionStore(ctx)
		if err != nil {
			_ = a.close()
			return nil, err
		}
		a.Gate = auth.NewGate(auth.Config{
			ClientID:      cfg.Auth.ClientID,
			ClientSecret:  cfg.Auth.ClientSecret,
			Domain:        cfg.Auth.Domain,
			ServerDomain:  cfg.Server.Domain,
			SessionSecret: cfg.Auth.SessionSecret,
		}, store)
		logger.Info("Login enabled: domain=%s, session_store=%s", cfg.Auth.Domain, cfg.Auth.SessionStore)
	}

	fetcher := service.NewFetcher(cfg.Providers.Timeout)
	router := api.SetupRouter(&api.Dependencies{
		GenerateService: service.NewGenerateService(a.Registry, fetcher, a.Generated, a.Repo),
		UploadService:   service.NewUploadService(fetcher, a.Uploaded, a.Repo),
		ImageService:    service.NewImageService(a.Generated, a.Uploaded, a.Repo),
		Sweeper:         a.Sweeper,
		Gate:            a.Gate,
		SessionTTL:      cfg.Auth.SessionTTL,
		CookieSecure:    cfg.Auth.CookieSecure,
		CORS:            cfg.Server.CORS,
		Logger:          log,
	}, cfg.Server.Mode)

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// NewRegistry registers DALL-E and, when enabled, Stable Diffusion.
func NewRegistry(cfg *config.ProvidersConfig) *provider.Registry {
	providers := []provider.Provider{
		provider.NewDALLE(&provider.DALLEConfig{
			APIKey:  cfg.DALLE.APIKey,
			BaseURL: cfg.DALLE.BaseURL,
			Model:   cfg.DALLE.Model,
			Timeout: cfg.Timeout,
		}),
	}
	if cfg.Stability.Enabled {
		providers = append(providers, provider.NewStability(&provider.StabilityConfig{
			APIKey:  cfg.Stability.APIKey,
			BaseURL: cfg.Stability.BaseURL,
			Timeout: cfg.Timeout,
		}))
	}
	return provider.NewRegistry(providers...)
}

// newStore creates one image store. Remote stores share a bucket and are
// separated by prefix.
func newStore(ctx context.Context, cfg *config.StorageConfig, dir, prefix string) (storage.ObjectStorage, error) {
	store, err := storage.NewStorage(&storage.Config{
		Type: storage.StorageType(cfg.Type),
		Dir:  dir,
		S3: storage.S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Prefix:    prefix,
		},
	})
	if err != nil {
		return nil, err
	}
	if ensurer, ok := store.(storage.BucketEnsurer); ok {
		if err := ensurer.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (a *App) sessionStore(ctx context.Context) (auth.SessionStore, error) {
	if a.cfg.Auth.SessionStore != "redis" {
		return auth.NewMemoryStore(a.cfg.Auth.SessionTTL), nil
	}
	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return auth.NewRedisStore(a.redis, a.cfg.Auth.SessionTTL), nil
}

// Handler returns the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Start launches the sweeper and the HTTP listener. Listener errors are
// reported on the returned channel.
func (a *App) Start(ctx context.Context) <-chan error {
	if a.cfg.Retention.Enabled {
		a.Sweeper.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.CtxInfo(ctx, "Starting API server: port=%d, mode=%s", a.cfg.Server.Port, a.cfg.Server.Mode)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Stop shuts the server down, stops the sweeper and releases connections.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if err := a.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) close() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if a.db != nil {
		if err := repository.Close(a.db); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}
	return errors.Join(errs...)
}
