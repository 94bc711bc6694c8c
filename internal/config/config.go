package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the server's runtime settings, read from the environment.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	Storage string `env:"STORAGE" envDefault:"postgres"`

	DB DBConfig

	JWTSecret string `env:"JWT_SECRET"`

	// RateLimit is requests per second per IP on mutating match routes.
	RateLimit float64 `env:"RATE_LIMIT" envDefault:"20"`

	// AutoReleaseAfter completes delivered matches without sender
	// confirmation once this long has passed. Zero disables it.
	AutoReleaseAfter time.Duration `env:"AUTO_RELEASE_AFTER" envDefault:"0s"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`

	// Arbiters seeds the arbiter role for these user ids in memory mode.
	Arbiters []string `env:"ARBITERS" envSeparator:","`

	RedisAddr string `env:"REDIS_ADDR"`
	Mail      MailConfig
}

type DBConfig struct {
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	Name     string `env:"DB_NAME"`
}

// DSN builds the Postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.User, c.Password, c.Host, c.Port, c.Name)
}

type MailConfig struct {
	Provider string `env:"MAIL_PROVIDER"`
	ReplyTo  string `env:"MAIL_REPLY_TO"`
	AppURL   string `env:"APP_URL" envDefault:"http://localhost:3000"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	PlunkAPIKey string `env:"PLUNK_API_KEY"`
	PlunkFrom   string `env:"PLUNK_FROM"`
	PlunkAPIURL string `env:"PLUNK_API_URL" envDefault:"https://api.useplunk.com/v1/send"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}
	return Parse()
}

// Parse reads the process environment into a Config and validates it.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORAGE must be postgres or memory, got %q", c.Storage)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AutoReleaseAfter < 0 {
		return fmt.Errorf("AUTO_RELEASE_AFTER must not be negative")
	}
	return nil
}
