package config

import (
	"os"
)

type Config struct {
	PORT string

	DB_USERNAME string
	DB_PASSWORD string
	DB_HOST     string
	DB_PORT     string
	DB_NAME     string
	DISABLE_TLS string

	// Secrets for session tokens and OAuth anti-forgery state
	JWT_SECRET   string
	STATE_SECRET string

	// GitHub OAuth app credentials
	GITHUB_CLIENT_ID     string
	GITHUB_CLIENT_SECRET string
	GITHUB_REDIRECT_URL  string

	// Where the browser client lives; the OAuth callback redirects here
	CLIENT_URL string

	// Optional redis for one-time OAuth state nonces
	REDIS_ADDR     string
	REDIS_PASSWORD string

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string
}

func ReadConfig() *Config {
	return &Config{
		PORT: GetEnvOrDefault("PORT", "8080"),

		DB_USERNAME: os.Getenv("DB_USERNAME"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_NAME:     os.Getenv("DB_NAME"),
		DISABLE_TLS: os.Getenv("DISABLE_TLS"),

		JWT_SECRET:   GetEnvOrDefault("JWT_SECRET", "change-me-in-dev"),
		STATE_SECRET: GetEnvOrDefault("STATE_SECRET", "change-me-in-dev"),

		GITHUB_CLIENT_ID:     os.Getenv("GITHUB_CLIENT_ID"),
		GITHUB_CLIENT_SECRET: os.Getenv("GITHUB_CLIENT_SECRET"),
		GITHUB_REDIRECT_URL:  GetEnvOrDefault("GITHUB_REDIRECT_URL", "http://localhost:8080/github/callback"),

		CLIENT_URL: GetEnvOrDefault("CLIENT_URL", "http://localhost:3000"),

		REDIS_ADDR:     os.Getenv("REDIS_ADDR"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
