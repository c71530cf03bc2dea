package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Key-value backend
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix     string        `env:"USER_KEY_PREFIX" envDefault:"user:"`
	OpTimeout     time.Duration `env:"BACKEND_TIMEOUT" envDefault:"2s"`
	MaxRetries    uint64        `env:"BACKEND_MAX_RETRIES" envDefault:"3"`
	RetryBase     time.Duration `env:"BACKEND_RETRY_BASE" envDefault:"50ms"`

	// AllowOverwrite restores the legacy replace-on-create behavior.
	// Leave off unless migrating callers that depend on it.
	AllowOverwrite bool `env:"ALLOW_CREATE_OVERWRITE" envDefault:"false"`

	// Sessions
	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// Credential hashing: "bcrypt" or "argon2id"
	Hasher     string `env:"PASSWORD_HASHER" envDefault:"bcrypt"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"12"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000"`
}

// Load reads configuration from the environment, after loading a .env
// file when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	switch cfg.Hasher {
	case "bcrypt", "argon2id":
	default:
		return nil, fmt.Errorf("unknown PASSWORD_HASHER %q", cfg.Hasher)
	}

	return cfg, nil
}
