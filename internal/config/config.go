package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/random"
)

// Config holds every runtime setting of the API process.
type Config struct {
	Port        string   `env:"PORT" envDefault:"5000"`
	DatabaseURL string   `env:"DATABASE_URL,required,notEmpty"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string   `env:"LOG_FORMAT" envDefault:"json"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`

	JWT   JWTConfig
	Redis RedisConfig
	SMTP  SMTPConfig
	MinIO MinIOConfig

	ResetURLBase       string `env:"RESET_URL_BASE" envDefault:"http://localhost:3000/reset-password/"`
	SuperAdminEmail    string `env:"SUPERADMIN_EMAIL"`
	SuperAdminPassword string `env:"SUPERADMIN_PASSWORD"`
}

type JWTConfig struct {
	AccessSecret    string        `env:"JWT_SECRET"`
	RefreshSecret   string        `env:"JWT_REFRESH_SECRET"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	RevocationTTL   time.Duration `env:"REVOCATION_TTL" envDefault:"1h"`

	// Generated is set when at least one secret was filled in by Load.
	Generated bool
}

// RedisConfig is optional; an empty Addr keeps the revocation set in memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// SMTPConfig is optional; an empty Host switches notifications to log-only.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"no-reply@etat-civil.local"`
}

// MinIOConfig is optional; an empty Endpoint disables statistics archiving.
type MinIOConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"civreg-statistics"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	// Random secrets keep development setups bootable; tokens do not survive a restart.
	if cfg.JWT.AccessSecret == "" {
		cfg.JWT.AccessSecret = random.String(32)
		cfg.JWT.Generated = true
	}
	if cfg.JWT.RefreshSecret == "" {
		cfg.JWT.RefreshSecret = random.String(32)
		cfg.JWT.Generated = true
	}
	return cfg, nil
}
