package config

import (
	"os"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Paystack PaystackConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig holds the verification secret for access tokens. Token issuance
// lives with the platform's identity service; this engine only parses.
type JWTConfig struct {
	AccessSecret string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type PaystackConfig struct {
	SecretKey string
}

// EngineConfig tunes the background sweep.
type EngineConfig struct {
	SweepInterval time.Duration
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envOr("PORT", "8090"),
			Env:          envOr("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             envOr("DATABASE_DSN", "chainfund:chainfund@tcp(localhost:3306)/chainfund?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: envOr("JWT_ACCESS_SECRET", "change-me-in-production"),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
		Paystack: PaystackConfig{
			SecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		},
		Engine: EngineConfig{
			SweepInterval: 5 * time.Minute,
		},
	}
}
