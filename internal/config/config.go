package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Retention RetentionConfig `mapstructure:"retention"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// Domain is the externally visible base URL, used for OAuth redirects.
	Domain string     `mapstructure:"domain"`
	CORS   CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres". Empty means infer from URL.
	Driver string `mapstructure:"driver"`
	// URL is a connection string (postgres://..., sqlite:///path). Takes precedence over Path.
	URL             string        `mapstructure:"url"`
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type StorageConfig struct {
	// Type is one of local, s3, r2, s3compatible, minio.
	Type         string `mapstructure:"type"`
	GeneratedDir string `mapstructure:"generated_dir"`
	UploadedDir  string `mapstructure:"uploaded_dir"`

	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

type ProvidersConfig struct {
	Timeout   time.Duration   `mapstructure:"timeout"`
	DALLE     DALLEConfig     `mapstructure:"dalle"`
	Stability StabilityConfig `mapstructure:"stability"`
}

type DALLEConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type StabilityConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type RetentionConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

type AuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	// Domain is the identity provider host, e.g. dev-123.okta.com.
	Domain        string        `mapstructure:"domain"`
	SessionSecret string        `mapstructure:"session_secret"`
	SessionStore  string        `mapstructure:"session_store"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
}

// Enabled reports whether the OAuth2 login flow should be mounted.
func (a *AuthConfig) Enabled() bool {
	return a.ClientID != ""
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ResolveDriver returns the effective database driver, inferring it from URL when Driver is empty.
func (c *DatabaseConfig) ResolveDriver() string {
	if c.Driver != "" {
		return c.Driver
	}
	scheme := urlScheme(c.URL)
	switch {
	case strings.HasPrefix(scheme, "postgres"):
		return "postgres"
	default:
		return "sqlite"
	}
}

// DSN returns the connection string for the resolved driver.
// SQLAlchemy-style URLs (postgresql+psycopg2://, sqlite:///path) are normalised.
func (c *DatabaseConfig) DSN() string {
	if c.URL == "" {
		return c.Path
	}
	scheme := urlScheme(c.URL)
	_, rest, found := strings.Cut(c.URL, "://")
	if !found {
		return c.URL
	}

	switch {
	case strings.HasPrefix(scheme, "postgres"):
		return "postgres://" + rest
	case scheme == "sqlite":
		// sqlite:///relative/path keeps one leading slash for the absolute form
		return strings.TrimPrefix(rest, "/")
	default:
		return c.URL
	}
}

func urlScheme(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if idx := strings.Index(scheme, "+"); idx != -1 {
		scheme = scheme[:idx]
	}
	return scheme
}

// Validate checks option combinations that cannot be expressed as defaults.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "local":
		if c.Storage.GeneratedDir == "" || c.Storage.UploadedDir == "" {
			return fmt.Errorf("storage: generated_dir and uploaded_dir are required for local storage")
		}
	case "s3", "r2", "s3compatible", "minio":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage: bucket is required for %s storage", c.Storage.Type)
		}
	default:
		return fmt.Errorf("storage: unknown type %q", c.Storage.Type)
	}

	if c.Retention.Enabled {
		if c.Retention.Interval <= 0 {
			return fmt.Errorf("retention: interval must be positive")
		}
		if c.Retention.MaxAge <= 0 {
			return fmt.Errorf("retention: max_age must be positive")
		}
	}

	if c.Auth.Enabled() {
		if c.Auth.Domain == "" {
			return fmt.Errorf("auth: domain is required when client_id is set")
		}
		switch c.Auth.SessionStore {
		case "memory":
		case "redis":
			if c.Redis.Addr == "" {
				return fmt.Errorf("auth: redis session store requires redis.addr")
			}
		default:
			return fmt.Errorf("auth: unknown session_store %q", c.Auth.SessionStore)
		}
	}

	return nil
}

// Load reads configuration from an optional YAML file, .env and the environment.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Legacy deployment variable names
	v.BindEnv("database.url", "DATABASE_URL", "SQLALCHEMY_DATABASE_URI")
	v.BindEnv("providers.dalle.api_key", "OPENAI_API_KEY")
	v.BindEnv("providers.dalle.base_url", "OPENAI_BASE_URL")
	v.BindEnv("providers.stability.api_key", "STABILITY_KEY")
	v.BindEnv("auth.client_id", "OKTA_CLIENT_ID")
	v.BindEnv("auth.client_secret", "OKTA_CLIENT_SECRET")
	v.BindEnv("auth.domain", "OKTA_DOMAIN")
	v.BindEnv("auth.session_secret", "OKTA_SECRET_KEY")
	v.BindEnv("server.domain", "SERVER_DOMAIN")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.domain", "http://localhost:8001")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.path", "./data/artgen.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.generated_dir", "./data/generated_images")
	v.SetDefault("storage.uploaded_dir", "./data/uploaded_images")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "artgen")

	v.SetDefault("providers.timeout", "120s")
	v.SetDefault("providers.dalle.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.dalle.model", "dall-e-3")
	v.SetDefault("providers.stability.enabled", false)
	v.SetDefault("providers.stability.base_url", "https://api.stability.ai")

	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.interval", "48h")
	v.SetDefault("retention.max_age", "48h")
	v.SetDefault("retention.run_on_start", false)

	v.SetDefault("auth.session_store", "memory")
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.cookie_secure", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
}
