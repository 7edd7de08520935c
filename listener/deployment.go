package listener

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/upb/authgate/utils"
)

// DeploymentInfo describes a deployment
type DeploymentInfo struct {
	ContextPath    string
	DisplayName    string
	DeploymentName string
}

// DefaultDeploymentInfo is used by Registry for every deployment
var DefaultDeploymentInfo = DeploymentInfo{
	ContextPath:    "",
	DisplayName:    "application",
	DeploymentName: "authgate",
}

// State is a deployment lifecycle state
type State int

const (
	StateUndeployed State = iota
	StateDeployed
	StateStarted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDeployed:
		return "deployed"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return "undeployed"
	}
}

// Deployment hosts one application handler.
// The handler replaces the whole handler chain; nothing is dispatched around it.
type Deployment struct {
	id   uuid.UUID
	info DeploymentInfo
	app  http.Handler

	mu    sync.RWMutex
	state State
}

// NewDeployment creates an undeployed deployment for app
func NewDeployment(info DeploymentInfo, app http.Handler) *Deployment {
	return &Deployment{
		id:   uuid.New(),
		info: info,
		app:  app,
	}
}

// ID returns the deployment ID
func (d *Deployment) ID() uuid.UUID {
	return d.id
}

// Info returns the deployment description
func (d *Deployment) Info() DeploymentInfo {
	return d.info
}

// State returns the current lifecycle state
func (d *Deployment) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Deploy prepares the deployment
func (d *Deployment) Deploy() error {
	if d.app == nil {
		return fmt.Errorf("%s: application handler is nil", d.info.DeploymentName)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateUndeployed {
		return fmt.Errorf("%w: deploy from %s", ErrInvalidState, d.state)
	}
	d.state = StateDeployed
	return nil
}

// Start returns the handler serving the deployment
func (d *Deployment) Start() (http.Handler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateDeployed {
		return nil, fmt.Errorf("%w: start from %s", ErrInvalidState, d.state)
	}
	d.state = StateStarted

	var h http.Handler = http.HandlerFunc(d.serve)
	if d.info.ContextPath != "" {
		h = http.StripPrefix(d.info.ContextPath, h)
	}
	return h, nil
}

// Undeploy stops the deployment. It reports whether this call changed the state.
func (d *Deployment) Undeploy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateStopped || d.state == StateUndeployed {
		return false
	}
	d.state = StateStopped
	return true
}

func (d *Deployment) serve(w http.ResponseWriter, r *http.Request) {
	if d.State() != StateStarted {
		_ = utils.WriteServiceUnavailable(w, "")
		return
	}
	d.app.ServeHTTP(w, r)
}
