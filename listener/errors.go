package listener

import (
	"errors"
	"fmt"
)

var (
	// ErrDeploymentFailure is matched by every error from RegisterHandler
	ErrDeploymentFailure = errors.New("deployment failure")

	// ErrInvalidState is returned for an out-of-order deployment transition
	ErrInvalidState = errors.New("invalid deployment state")
)

// DeploymentError describes which registration step failed
type DeploymentError struct {
	Deployment string
	Op         string
	Err        error
}

// Error implements the error interface
func (e *DeploymentError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrDeploymentFailure, e.Op, e.Deployment, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *DeploymentError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DeploymentError) Is(target error) bool {
	return target == ErrDeploymentFailure
}
