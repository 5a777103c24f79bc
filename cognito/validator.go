package cognito

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/payroll-api/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidToken is returned when the token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token has expired")

	// ErrInvalidIssuer is returned when the token issuer is invalid
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrInvalidAudience is returned when the token audience is invalid
	ErrInvalidAudience = errors.New("invalid audience")

	// ErrKeyNotFound is returned when no key in the JWKS matches the token kid
	ErrKeyNotFound = errors.New("key not found")

	// ErrJWKSFetchFailed is returned when JWKS fetching fails
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")
)

// Config holds configuration for CognitoValidator
type Config struct {
	Region     string
	UserPoolID string
	ClientID   string

	// JWKSURL overrides the user pool JWKS endpoint (local IdPs, tests)
	JWKSURL string

	// VerifyAudience enables the aud/client_id check against ClientID
	VerifyAudience bool

	CacheTTL         time.Duration
	RefreshRateLimit time.Duration
	HTTPTimeout      time.Duration
	Leeway           time.Duration

	Logger *zap.Logger
}

// CognitoValidator validates JWT tokens from AWS Cognito
type CognitoValidator struct {
	issuer         string
	clientID       string
	jwksURL        string
	verifyAudience bool
	leeway         time.Duration

	httpClient       *http.Client
	cacheTTL         time.Duration
	refreshRateLimit time.Duration
	httpTimeout      time.Duration
	logger           *zap.Logger

	// key set is loaded on first use and refreshed in the background
	mu     sync.Mutex
	jwks   *keyfunc.JWKS
	closed bool
	loads  singleflight.Group
}

// NewCognitoValidator creates a new Cognito JWT validator
func NewCognitoValidator(config Config) *CognitoValidator {
	if config.CacheTTL == 0 {
		config.CacheTTL = 1 * time.Hour
	}
	if config.RefreshRateLimit == 0 {
		config.RefreshRateLimit = 5 * time.Minute
	}
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", config.Region, config.UserPoolID)
	jwksURL := config.JWKSURL
	if jwksURL == "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}

	return &CognitoValidator{
		issuer:           issuer,
		clientID:         config.ClientID,
		jwksURL:          jwksURL,
		verifyAudience:   config.VerifyAudience,
		leeway:           config.Leeway,
		httpClient:       &http.Client{Timeout: config.HTTPTimeout},
		cacheTTL:         config.CacheTTL,
		refreshRateLimit: config.RefreshRateLimit,
		httpTimeout:      config.HTTPTimeout,
		logger:           config.Logger,
	}
}

// Issuer returns the expected iss claim
func (v *CognitoValidator) Issuer() string {
	return v.issuer
}

// ValidateToken validates a JWT token and returns the resolved user identity
func (v *CognitoValidator) ValidateToken(ctx context.Context, tokenString string) (*models.UserInfo, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, v.keyFunc(ctx))
	if err != nil {
		switch {
		case errors.Is(err, ErrJWKSFetchFailed):
			return nil, err
		case errors.Is(err, ErrKeyNotFound):
			return nil, ErrKeyNotFound
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidIssuer, v.issuer, claims.Issuer)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if v.verifyAudience && !claims.hasAudience(v.clientID) {
		return nil, ErrInvalidAudience
	}

	if err := claims.validateTokenUse(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := claims.UserInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return user, nil
}

// keyFunc resolves the verification key for a token from the user pool JWKS
func (v *CognitoValidator) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("kid header not found")
		}

		jwks, err := v.keySet(ctx)
		if err != nil {
			return nil, err
		}

		key, err := jwks.Keyfunc(token)
		if err != nil {
			if errors.Is(err, keyfunc.ErrKIDNotFound) {
				return nil, fmt.Errorf("%w: kid %s", ErrKeyNotFound, kid)
			}
			return nil, err
		}
		return key, nil
	}
}

// keySet returns the cached key set, fetching it on first use.
// Concurrent callers share one fetch, and each stops waiting when its own ctx
// is done. A failed fetch is not cached so the next request retries.
func (v *CognitoValidator) keySet(ctx context.Context) (*keyfunc.JWKS, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	jwks := v.jwks
	v.mu.Unlock()
	if jwks != nil {
		return jwks, nil
	}

	select {
	case res := <-v.loads.DoChan("jwks", v.loadKeySet):
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*keyfunc.JWKS), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrJWKSFetchFailed, ctx.Err())
	}
}

// loadKeySet fetches the key set and stores it. It runs detached from any
// request; the HTTP client timeout bounds it.
func (v *CognitoValidator) loadKeySet() (interface{}, error) {
	jwks, err := keyfunc.Get(v.jwksURL, keyfunc.Options{
		Client:            v.httpClient,
		RefreshInterval:   v.cacheTTL,
		RefreshRateLimit:  v.refreshRateLimit,
		RefreshTimeout:    v.httpTimeout,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			v.logger.Warn("jwks background refresh failed",
				zap.String("jwks_url", v.jwksURL),
				zap.Error(err))
		},
	})
	if err != nil {
		v.logger.Warn("jwks fetch failed",
			zap.String("jwks_url", v.jwksURL),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		jwks.EndBackground()
		return nil, fmt.Errorf("%w: validator closed", ErrJWKSFetchFailed)
	}

	v.logger.Info("jwks loaded",
		zap.String("jwks_url", v.jwksURL),
		zap.Strings("kids", jwks.KIDs()))

	v.jwks = jwks
	return jwks, nil
}

// Ready reports whether the key set is loaded or can be loaded now
func (v *CognitoValidator) Ready(ctx context.Context) error {
	_, err := v.keySet(ctx)
	return err
}

// InvalidateCache drops the key set; the next validation refetches it
func (v *CognitoValidator) InvalidateCache() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.jwks != nil {
		v.jwks.EndBackground()
		v.jwks = nil
	}
}

// GetCacheStats returns cache statistics
func (v *CognitoValidator) GetCacheStats() map[string]interface{} {
	v.mu.Lock()
	defer v.mu.Unlock()

	stats := map[string]interface{}{
		"jwks_cached": v.jwks != nil,
		"jwks_url":    v.jwksURL,
	}
	if v.jwks != nil {
		stats["cached_keys_count"] = len(v.jwks.KIDs())
	}
	return stats
}

// Close stops the background refresh goroutine. A fetch still in flight is
// discarded when it completes.
func (v *CognitoValidator) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()

	v.InvalidateCache()
}
