package gate

import (
	"errors"
	"net/http"
	"sync"

	"github.com/upb/authgate/filter"
	"github.com/upb/authgate/internal/observability"
	"github.com/upb/authgate/security"
	"go.uber.org/zap"
)

// PrincipalHeader carries the authorized principal name to downstream handlers
const PrincipalHeader = "authgate.Gate_principal"

var (
	// ErrNotConfigured is returned when no filter configuration was accepted
	ErrNotConfigured = errors.New("gate has no accepted filter configuration")
)

var principalNameKey = NewAttachmentKey[string]("principal_name")

// Gate checks granted authorities against allowed roles
type Gate struct {
	mu       sync.RWMutex
	filter   filter.Filter
	endpoint string

	metrics observability.Metrics
	logger  *zap.Logger
}

// Option configures a Gate
type Option func(*Gate)

// WithMetrics records every decision
func WithMetrics(m observability.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// New creates a Gate. Authenticate fails with ErrNotConfigured until a
// configuration is accepted.
func New(logger *zap.Logger, opts ...Option) *Gate {
	g := &Gate{
		metrics: observability.NopMetrics{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate runs the accepted filter with the role check as its terminal
// step and returns http.StatusOK or http.StatusForbidden. Errors from the
// filter are returned unchanged.
func (g *Gate) Authenticate(ex *Exchange, allowedRoles []string) (int, error) {
	g.mu.RLock()
	f, endpoint := g.filter, g.endpoint
	g.mu.RUnlock()

	if f == nil {
		return 0, ErrNotConfigured
	}

	terminal := filter.ChainFunc(func(w http.ResponseWriter, r *http.Request) error {
		ex.r = r
		g.decide(ex, allowedRoles)
		return nil
	})

	if err := f.DoFilter(ex.Response(), ex.Request(), terminal); err != nil {
		return 0, err
	}

	// the filter ended the chain before the role check
	if ex.StatusCode() == 0 {
		g.logger.Debug("filter did not reach the authorization step, access is forbidden")
		ex.SetStatusCode(http.StatusForbidden)
	}

	g.metrics.RecordDecision(ex.Request().Context(), observability.DecisionLabels{
		Endpoint: endpoint,
		Status:   ex.StatusCode(),
	})
	return ex.StatusCode(), nil
}

func (g *Gate) decide(ex *Exchange, allowedRoles []string) {
	logger := observability.WithRequest(ex.Request().Context(), g.logger)

	auth, ok := security.FromContext(ex.Request().Context())
	if !ok {
		// anonymous requests and rejected credentials both end up here
		logger.Warn("authentication token is not present, access is forbidden")
		ex.SetStatusCode(http.StatusForbidden)
		return
	}

	logger.Debug("authentication token is present")
	if authority, ok := auth.FirstGranted(allowedRoles); ok {
		logger.Debug("authenticated principal has authority to access resource",
			zap.String("principal", auth.Principal),
			zap.String("authority", authority))
		PutAttachment(ex, principalNameKey, auth.Principal)
		ex.SetStatusCode(http.StatusOK)
		return
	}

	logger.Debug("authenticated principal doesn't have authority to access resource",
		zap.String("principal", auth.Principal),
		zap.Strings("authorities", auth.Authorities),
		zap.Strings("allowed_roles", allowedRoles))
	ex.SetStatusCode(http.StatusForbidden)
}

// EmitPrincipalHeader passes the attached principal name to set under
// PrincipalHeader. An unauthorized exchange yields an empty value.
func (g *Gate) EmitPrincipalHeader(set func(name, value string), ex *Exchange) {
	name, _ := PrincipalName(ex)
	set(PrincipalHeader, name)
}

// PrincipalName returns the principal attached by a successful Authenticate
func PrincipalName(ex *Exchange) (string, bool) {
	return GetAttachment(ex, principalNameKey)
}
