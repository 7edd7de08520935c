package listener

import (
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Registration is a snapshot of one registry entry
type Registration struct {
	ServerID     uuid.UUID `json:"server_id"`
	Addr         string    `json:"addr"`
	DeploymentID uuid.UUID `json:"deployment_id"`
	Deployment   string    `json:"deployment"`
	State        string    `json:"state"`
}

var errNoServer = errors.New("builder returned no server")

type entry struct {
	server     Server
	deployment *Deployment
}

// Registry tracks the deployment owned by each running server
type Registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]entry
	info    DeploymentInfo
	logger  *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]entry),
		info:    DefaultDeploymentInfo,
		logger:  logger,
	}
}

// RegisterHandler hosts app in a new deployment and starts a server for it.
// Either the server is returned and recorded, or a *DeploymentError is
// returned and nothing is recorded.
func (r *Registry) RegisterHandler(builder Builder, app http.Handler) (Server, error) {
	d := NewDeployment(r.info, app)

	if err := d.Deploy(); err != nil {
		return nil, r.fail(d, "deploy", err)
	}

	root, err := d.Start()
	if err != nil {
		return nil, r.fail(d, "start deployment", err)
	}

	server, err := builder.Start(root)
	if err != nil {
		return nil, r.fail(d, "start server", err)
	}
	if server == nil {
		return nil, r.fail(d, "start server", errNoServer)
	}

	r.mu.Lock()
	previous, replaced := r.entries[server.ID()]
	r.entries[server.ID()] = entry{server: server, deployment: d}
	r.mu.Unlock()

	if replaced && previous.deployment != d {
		previous.deployment.Undeploy()
		r.logger.Warn("server re-registered, previous deployment undeployed",
			zap.String("server_id", server.ID().String()),
			zap.String("deployment_id", previous.deployment.ID().String()))
	}

	r.logger.Info("handler registered",
		zap.String("server_id", server.ID().String()),
		zap.String("addr", server.Addr()),
		zap.String("deployment_id", d.ID().String()))
	return server, nil
}

func (r *Registry) fail(d *Deployment, op string, err error) error {
	d.Undeploy()
	r.logger.Error("handler registration failed",
		zap.String("op", op),
		zap.String("deployment_id", d.ID().String()),
		zap.Error(err))
	return &DeploymentError{Deployment: d.Info().DeploymentName, Op: op, Err: err}
}

// UnregisterHandler undeploys the deployment owned by server.
// Unknown servers are ignored, so repeated calls are safe.
func (r *Registry) UnregisterHandler(server Server) {
	if server == nil {
		return
	}

	r.mu.Lock()
	e, ok := r.entries[server.ID()]
	if ok {
		delete(r.entries, server.ID())
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	e.deployment.Undeploy()
	r.logger.Info("handler unregistered",
		zap.String("server_id", server.ID().String()),
		zap.String("deployment_id", e.deployment.ID().String()))
}

// Len returns the number of registered servers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Registrations returns a snapshot of the registry
func (r *Registry) Registrations() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Registration, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, Registration{
			ServerID:     id,
			Addr:         e.server.Addr(),
			DeploymentID: e.deployment.ID(),
			Deployment:   e.deployment.Info().DeploymentName,
			State:        e.deployment.State().String(),
		})
	}
	return out
}

// Servers returns the registered servers
func (r *Registry) Servers() []Server {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Server, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.server)
	}
	return out
}

// Close undeploys every registered deployment
func (r *Registry) Close() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[uuid.UUID]entry)
	r.mu.Unlock()

	var err error
	for id, e := range entries {
		if !e.deployment.Undeploy() {
			err = multierr.Append(err, &DeploymentError{
				Deployment: e.deployment.Info().DeploymentName,
				Op:         "undeploy " + id.String(),
				Err:        ErrInvalidState,
			})
		}
	}
	return err
}
