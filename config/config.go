package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/upb/payroll-api/utils"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Cognito       CognitoConfig
	Auth          AuthConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string `validate:"required"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int           `validate:"gt=0,max=65535"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	RequestTimeout  time.Duration `validate:"gt=0"`
}

// CognitoConfig holds AWS Cognito authentication configuration
type CognitoConfig struct {
	Region         string `validate:"required"`
	UserPoolID     string
	ClientID       string
	ClientSecret   string
	Domain         string        `validate:"omitempty,url"` // Hosted UI domain (e.g., https://payroll.auth.us-east-1.amazoncognito.com)
	RedirectURI    string        `validate:"omitempty,url"` // OAuth2 callback URL
	JWKSURL        string        `validate:"omitempty,url"` // overrides the user pool JWKS endpoint
	VerifyAudience bool
	JWKSCacheTTL   time.Duration `validate:"gt=0"`
}

// AuthConfig holds request authentication settings
type AuthConfig struct {
	// EnableTestUser substitutes a fixed admin identity when verification fails.
	// Refused in production.
	EnableTestUser bool
	PublicPaths    []string
}

// CORSConfig holds cross-origin settings
type CORSConfig struct {
	AllowedOrigins []string `validate:"min=1"`
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`
}

// DefaultAllowedOrigins are the browser origins allowed when ALLOWED_ORIGINS is unset
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8000",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:8081",
	"https://payroll.adeptaipro.com",
}

// DefaultPublicPaths is the middleware allowlist plus the hosted UI return routes,
// which arrive from the browser without a bearer token, and the token
// verification route, which checks the header itself
var DefaultPublicPaths = []string{
	"/health",
	"/api/auth/login",
	"/api/auth/register",
	"/api/auth/reset-password",
	"/api/auth/callback",
	"/api/auth/logout",
	"/api/auth/verify",
	"/docs",
	"/openapi.json",
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 25*time.Second),
		},
		Cognito: CognitoConfig{
			Region:         getEnv("COGNITO_REGION", "us-east-1"),
			UserPoolID:     getEnv("COGNITO_USER_POOL_ID", ""),
			ClientID:       getEnv("COGNITO_CLIENT_ID", ""),
			ClientSecret:   getEnv("COGNITO_CLIENT_SECRET", ""),
			Domain:         getEnv("COGNITO_DOMAIN", ""),
			RedirectURI:    getEnv("COGNITO_REDIRECT_URI", "http://localhost:8000/api/auth/callback"),
			JWKSURL:        getEnv("COGNITO_JWKS_URL", ""),
			VerifyAudience: getEnvAsBool("COGNITO_VERIFY_AUDIENCE", false),
			JWKSCacheTTL:   getEnvAsDuration("JWKS_CACHE_TTL", time.Hour),
		},
		Auth: AuthConfig{
			EnableTestUser: getEnvAsBool("ENABLE_TEST_USER", false),
			PublicPaths:    getEnvAsList("AUTH_PUBLIC_PATHS", DefaultPublicPaths),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", DefaultAllowedOrigins),
		},
		Observability: ObservabilityConfig{
			LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks field constraints and the cross-field rules
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}

	if c.IsProduction() {
		if c.Cognito.UserPoolID == "" {
			return errors.New("cognito user pool ID is required in production")
		}
		if c.Cognito.ClientID == "" {
			return errors.New("cognito client ID is required in production")
		}
		if c.Auth.EnableTestUser {
			return errors.New("test user bypass must not be enabled in production")
		}
	}

	// chi's timeout response has to be written before the server drops the connection
	if c.Server.RequestTimeout >= c.Server.WriteTimeout {
		return fmt.Errorf("request timeout (%s) must be shorter than write timeout (%s)",
			c.Server.RequestTimeout, c.Server.WriteTimeout)
	}

	if c.Cognito.VerifyAudience && c.Cognito.ClientID == "" {
		return errors.New("cognito client ID is required when audience verification is enabled")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// HostedUIEnabled reports whether the hosted UI flows can be served
func (c *CognitoConfig) HostedUIEnabled() bool {
	return c.Domain != "" && c.ClientID != ""
}

// VerificationEnabled reports whether tokens can be verified against a user pool
func (c *CognitoConfig) VerificationEnabled() bool {
	return c.UserPoolID != "" || c.JWKSURL != ""
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return out
}
