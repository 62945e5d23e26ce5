package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	// Distinct secrets per token class: a leaked access secret must not
	// be able to mint refresh tokens.
	JWTSecret        string        `env:"JWT_SECRET"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`

	AuthRateMax    int64         `env:"AUTH_RATE_MAX,    default=5"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW, default=15m"`
	APIRateMax     int64         `env:"API_RATE_MAX,     default=100"`
	APIRateWindow  time.Duration `env:"API_RATE_WINDOW,  default=15m"`

	TOTPIssuer   string `env:"TOTP_ISSUER, default=AgroBolivia"`
	AuditWorkers int    `env:"AUDIT_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=farm_platform"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" || cfg.Auth.JWTRefreshSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET and JWT_REFRESH_SECRET are required")
	}
	if cfg.Auth.JWTSecret == cfg.Auth.JWTRefreshSecret {
		return nil, fmt.Errorf("config: JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	return &cfg, nil
}
