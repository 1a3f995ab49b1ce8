package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/artgen/internal/config"
	"github.com/timmy/artgen/internal/logger"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{Port: 0, Mode: "test", Domain: "http://localhost:8001"},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			Path:        filepath.Join(dir, "artgen.db"),
			AutoMigrate: true,
		},
		Storage: config.StorageConfig{
			Type:         "local",
			GeneratedDir: filepath.Join(dir, "generated_images"),
			UploadedDir:  filepath.Join(dir, "uploaded_images"),
		},
		Providers: config.ProvidersConfig{
			Timeout: 10 * time.Second,
			DALLE:   config.DALLEConfig{APIKey: "k"},
		},
		Retention: config.RetentionConfig{Enabled: true, Interval: time.Hour, MaxAge: 48 * time.Hour},
		Auth:      config.AuthConfig{SessionStore: "memory", SessionTTL: time.Hour},
	}
}

func TestNewWiresRoutes(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, logger.NewDefault())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })

	assert.Equal(t, []string{"dalle"}, a.Registry.Models())
	assert.Nil(t, a.Gate)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewWithRedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Auth.ClientID = "client"
	cfg.Auth.Domain = "idp.example.com"
	cfg.Auth.SessionStore = "redis"
	cfg.Redis.Addr = mr.Addr()
	cfg.Providers.Stability.Enabled = true

	a, err := New(context.Background(), cfg, logger.NewDefault())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })

	assert.Equal(t, []string{"dalle", "stable-diffusion"}, a.Registry.Models())
	require.NotNil(t, a.Gate)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.NotEmpty(t, mr.Keys())
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.ClientID = "client"
	cfg.Auth.Domain = "idp.example.com"
	cfg.Auth.SessionStore = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := New(context.Background(), cfg, logger.NewDefault())
	assert.Error(t, err)
}
