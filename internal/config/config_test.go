package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDatabaseConfig_DriverAndDSN(t *testing.T) {
	tests := []struct {
		name       string
		cfg        DatabaseConfig
		wantDriver string
		wantDSN    string
	}{
		{
			name:       "path only",
			cfg:        DatabaseConfig{Path: "./data/artgen.db"},
			wantDriver: "sqlite",
			wantDSN:    "./data/artgen.db",
		},
		{
			name:       "postgres url",
			cfg:        DatabaseConfig{URL: "postgres://u:p@db:5432/art?sslmode=disable"},
			wantDriver: "postgres",
			wantDSN:    "postgres://u:p@db:5432/art?sslmode=disable",
		},
		{
			name:       "sqlalchemy postgres dialect",
			cfg:        DatabaseConfig{URL: "postgresql+psycopg2://u:p@db/art"},
			wantDriver: "postgres",
			wantDSN:    "postgres://u:p@db/art",
		},
		{
			name:       "postgresql scheme",
			cfg:        DatabaseConfig{URL: "postgresql://u:p@db/art"},
			wantDriver: "postgres",
			wantDSN:    "postgres://u:p@db/art",
		},
		{
			name:       "sqlalchemy postgres dialect with query",
			cfg:        DatabaseConfig{URL: "postgresql+psycopg2://u:p@db:5432/art?sslmode=require"},
			wantDriver: "postgres",
			wantDSN:    "postgres://u:p@db:5432/art?sslmode=require",
		},
		{
			name:       "sqlalchemy relative sqlite",
			cfg:        DatabaseConfig{URL: "sqlite:///data/images.db"},
			wantDriver: "sqlite",
			wantDSN:    "data/images.db",
		},
		{
			name:       "sqlalchemy absolute sqlite",
			cfg:        DatabaseConfig{URL: "sqlite:////var/lib/images.db"},
			wantDriver: "sqlite",
			wantDSN:    "/var/lib/images.db",
		},
		{
			name:       "explicit driver wins",
			cfg:        DatabaseConfig{Driver: "postgres", Path: "ignored"},
			wantDriver: "postgres",
			wantDSN:    "ignored",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ResolveDriver(); got != tt.wantDriver {
				t.Errorf("ResolveDriver() = %q, want %q", got, tt.wantDriver)
			}
			if got := tt.cfg.DSN(); got != tt.wantDSN {
				t.Errorf("DSN() = %q, want %q", got, tt.wantDSN)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Type:         "local",
			GeneratedDir: "gen",
			UploadedDir:  "up",
		},
		Retention: RetentionConfig{Enabled: true, Interval: time.Hour, MaxAge: time.Hour},
		Auth:      AuthConfig{SessionStore: "memory"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Type = "ftp" }, wantErr: true},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Storage.Type = "s3" }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.Retention.Interval = 0 }, wantErr: true},
		{name: "retention disabled ignores interval", mutate: func(c *Config) {
			c.Retention.Enabled = false
			c.Retention.Interval = 0
		}},
		{name: "auth without domain", mutate: func(c *Config) { c.Auth.ClientID = "id" }, wantErr: true},
		{name: "redis sessions without addr", mutate: func(c *Config) {
			c.Auth.ClientID = "id"
			c.Auth.Domain = "idp.example.com"
			c.Auth.SessionStore = "redis"
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
server:
  port: 9100
storage:
  type: local
  generated_dir: /tmp/gen
  uploaded_dir: /tmp/up
retention:
  max_age: 72h
`)
	if err := os.WriteFile(path, yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SQLALCHEMY_DATABASE_URI", "sqlite:///art.db")
	t.Setenv("SERVER_DOMAIN", "https://art.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Providers.DALLE.APIKey != "sk-test" {
		t.Errorf("dalle api key = %q", cfg.Providers.DALLE.APIKey)
	}
	if cfg.Database.DSN() != "art.db" {
		t.Errorf("dsn = %q, want art.db", cfg.Database.DSN())
	}
	if cfg.Server.Domain != "https://art.example.com" {
		t.Errorf("domain = %q", cfg.Server.Domain)
	}
	if cfg.Retention.MaxAge != 72*time.Hour {
		t.Errorf("max_age = %v, want 72h", cfg.Retention.MaxAge)
	}
	if cfg.Retention.Interval != 48*time.Hour {
		t.Errorf("interval default = %v, want 48h", cfg.Retention.Interval)
	}
	if cfg.Providers.Stability.Enabled {
		t.Error("stability provider must be disabled by default")
	}
	if cfg.Auth.Enabled() {
		t.Error("auth must be disabled without a client id")
	}
}
