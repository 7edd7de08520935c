package filter

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/authgate/security"
	"go.uber.org/zap"
)

var (
	// ErrInvalidToken is returned when the token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")
)

// Claims represents the claims read from a bearer token
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// BearerConfig holds configuration for BearerFilter
type BearerConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
}

// BearerFilter authenticates requests carrying an HS256 JWT
type BearerFilter struct {
	secret []byte
	parser *jwt.Parser
	logger *zap.Logger
}

// NewBearerFilter creates a new BearerFilter
func NewBearerFilter(config BearerConfig, logger *zap.Logger) *BearerFilter {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &BearerFilter{
		secret: config.Secret,
		parser: jwt.NewParser(opts...),
		logger: logger,
	}
}

// DoFilter establishes the authentication when a valid bearer token is present.
// Requests without a usable token continue down the chain unauthenticated.
func (f *BearerFilter) DoFilter(w http.ResponseWriter, r *http.Request, next Chain) error {
	if security.IsAuthenticated(r.Context()) {
		return next.DoFilter(w, r)
	}

	token := extractBearerToken(r)
	if token == "" {
		return next.DoFilter(w, r)
	}

	claims, err := f.ParseToken(token)
	if err != nil {
		f.logger.Debug("bearer token rejected", zap.Error(err))
		return next.DoFilter(w, r)
	}

	f.logger.Debug("bearer token accepted",
		zap.String("sub", claims.Subject),
		zap.Strings("roles", claims.Roles))

	ctx := security.WithAuthentication(r.Context(), security.Authenticated(claims.Subject, claims.Roles...))
	return next.DoFilter(w, r.WithContext(ctx))
}

// ParseToken verifies the token signature and registered claims
func (f *BearerFilter) ParseToken(tokenString string) (*Claims, error) {
	token, err := f.parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return f.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	return claims, nil
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
