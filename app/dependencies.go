package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/payroll-api/auth"
	"github.com/upb/payroll-api/cognito"
	"github.com/upb/payroll-api/config"
	"github.com/upb/payroll-api/middleware"
	"github.com/upb/payroll-api/models"
	"github.com/upb/payroll-api/services"
	"go.uber.org/zap"
)

// ErrVerificationNotConfigured is returned for every token when no user pool is configured
var ErrVerificationNotConfigured = errors.New("token verification not configured")

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	// Validator is nil when no user pool is configured
	Validator      *cognito.CognitoValidator
	Authenticator  *middleware.Authenticator
	AuthMiddleware *middleware.AuthMiddleware

	authHandler *auth.Handler
}

// AuthHandler returns the auth handler for route wiring (implements handlers.AuthDeps)
func (d *Dependencies) AuthHandler() *auth.Handler {
	return d.authHandler
}

// NewDependencies validates cfg and wires up all application dependencies.
// The JWKS is not fetched here; the validator loads it on first use.
func NewDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.Bool("verification_enabled", deps.Validator != nil),
		zap.Bool("hosted_ui_enabled", deps.authHandler != nil),
		zap.Bool("test_user_enabled", cfg.Auth.EnableTestUser),
	)
	return deps, nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	var verifier middleware.TokenVerifier = rejectAllVerifier{}

	if cfg.Cognito.VerificationEnabled() {
		d.Validator = cognito.NewCognitoValidator(cognito.Config{
			Region:         cfg.Cognito.Region,
			UserPoolID:     cfg.Cognito.UserPoolID,
			ClientID:       cfg.Cognito.ClientID,
			JWKSURL:        cfg.Cognito.JWKSURL,
			VerifyAudience: cfg.Cognito.VerifyAudience,
			CacheTTL:       cfg.Cognito.JWKSCacheTTL,
			Logger:         d.Logger.Named("cognito"),
		})
		verifier = d.Validator
		d.Logger.Info("cognito validator initialized", zap.String("issuer", d.Validator.Issuer()))
	} else {
		d.Logger.Warn("cognito user pool not configured, all bearer tokens will be rejected")
	}

	if cfg.Auth.EnableTestUser {
		d.Logger.Warn("test user bypass enabled, failed authentication falls back to a fixed identity")
	}

	d.Authenticator = middleware.NewAuthenticator(verifier, cfg.Auth.EnableTestUser, d.Logger.Named("auth"))
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Authenticator, cfg.Auth.PublicPaths, d.Logger.Named("auth"))

	if d.Validator != nil && cfg.Cognito.HostedUIEnabled() {
		exchanger := services.NewCognitoTokenExchanger(cfg.Cognito, d.Logger.Named("oauth"))
		d.authHandler = auth.NewHandler(cfg.Cognito, exchanger, d.Validator, d.Logger.Named("oauth"))
		d.Logger.Info("auth handler initialized")
	} else {
		d.Logger.Warn("cognito hosted UI not configured, auth endpoints disabled")
	}
}

// rejectAllVerifier rejects all tokens (used when Cognito is not configured)
type rejectAllVerifier struct{}

func (rejectAllVerifier) ValidateToken(context.Context, string) (*models.UserInfo, error) {
	return nil, ErrVerificationNotConfigured
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	if d.Validator != nil {
		stats := d.Validator.GetCacheStats()
		d.Validator.Close()
		d.Logger.Info("jwks refresh stopped", zap.Any("jwks_cache", stats))
	}

	// Sync logger
	_ = d.Logger.Sync()

	return nil
}
