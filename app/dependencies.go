package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/authgate/config"
	"github.com/upb/authgate/filter"
	"github.com/upb/authgate/gate"
	"github.com/upb/authgate/internal/observability"
	"github.com/upb/authgate/listener"
	"github.com/upb/authgate/userstore"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Endpoints gated by the application
const (
	APIEndpoint   = "/api"
	AdminEndpoint = "/api/admin"
)

// ErrConfigurationRejected is returned when no filter configuration was accepted by a gate
var ErrConfigurationRejected = errors.New("security configuration rejected")

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *sql.DB
	Logger *zap.Logger

	// Authentication
	Users   userstore.Store
	Filters *filter.Registration

	// Authorization
	Gate      *gate.Gate
	AdminGate *gate.Gate
	Decisions *observability.DecisionCounters

	// Handler lifecycle
	Listeners *listener.Registry
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Decisions: observability.NewDecisionCounters(),
		Listeners: listener.NewRegistry(logger),
	}

	if err := deps.initUserStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize user store: %w", err)
	}

	deps.initFilters(cfg)

	if err := deps.initGates(); err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("failed to initialize gates: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initUserStore picks PostgreSQL when configured, then the users file, then an empty store
func (d *Dependencies) initUserStore(ctx context.Context, cfg *config.Config) error {
	switch {
	case cfg.Database != nil:
		db, err := userstore.Open(ctx, cfg.Database.ConnectionString, cfg.Database.MaxOpenConns)
		if err != nil {
			return err
		}
		store := userstore.NewPostgresStore(db, d.Logger)
		if cfg.Database.InitSchema {
			if err := store.InitSchema(ctx); err != nil {
				_ = db.Close()
				return err
			}
		}
		d.DB = db
		d.Users = store
		d.Logger.Info("user store: postgres", zap.String("connection", cfg.Database.LogString()))

	case cfg.Security.UsersFile != "":
		store, err := userstore.LoadFile(cfg.Security.UsersFile)
		if err != nil {
			return err
		}
		d.Users = store
		d.Logger.Info("user store: file",
			zap.String("path", cfg.Security.UsersFile),
			zap.Int("users", store.Count()))

	default:
		d.Users = userstore.NewMemoryStore()
		d.Logger.Warn("no user source configured, basic auth will reject every user")
	}
	return nil
}

// initFilters builds the authentication chain: bearer tokens first, then basic auth
func (d *Dependencies) initFilters(cfg *config.Config) {
	var filters []filter.Filter

	if cfg.Security.JWTSecret != "" {
		filters = append(filters, filter.NewBearerFilter(filter.BearerConfig{
			Secret:   []byte(cfg.Security.JWTSecret),
			Issuer:   cfg.Security.JWTIssuer,
			Audience: cfg.Security.JWTAudience,
		}, d.Logger))
	}
	if cfg.Security.BasicAuthEnabled {
		filters = append(filters, filter.NewBasicFilter(d.Users, d.Logger))
	}

	d.Filters = filter.NewRegistration("authgate-security", filter.Compose(filters...))
	d.Filters.Enabled = len(filters) > 0
}

func (d *Dependencies) initGates() error {
	d.Gate = gate.New(d.Logger, gate.WithMetrics(d.Decisions))
	if !d.Gate.AcceptConfiguration(d.Filters, APIEndpoint) {
		return fmt.Errorf("%w: %s", ErrConfigurationRejected, APIEndpoint)
	}

	d.AdminGate = gate.New(d.Logger, gate.WithMetrics(d.Decisions))
	if !d.AdminGate.AcceptConfiguration(d.Filters, AdminEndpoint) {
		return fmt.Errorf("%w: %s", ErrConfigurationRejected, AdminEndpoint)
	}
	return nil
}

// Close releases deployments and the database pool
func (d *Dependencies) Close() error {
	var err error
	if d.Listeners != nil {
		err = multierr.Append(err, d.Listeners.Close())
	}
	if d.DB != nil {
		err = multierr.Append(err, d.DB.Close())
	}
	return err
}
