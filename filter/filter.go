package filter

import (
	"net/http"
)

// Chain is the remainder of a filter chain
type Chain interface {
	DoFilter(w http.ResponseWriter, r *http.Request) error
}

// ChainFunc adapts a function to Chain
type ChainFunc func(w http.ResponseWriter, r *http.Request) error

// DoFilter calls f(w, r)
func (f ChainFunc) DoFilter(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// Filter inspects or decorates a request and decides whether to pass it on.
// A filter that does not call next ends the chain for that request; it may
// write its own response (a 401 challenge, say), otherwise the gate answers 403.
type Filter interface {
	DoFilter(w http.ResponseWriter, r *http.Request, next Chain) error
}

// Func adapts a function to Filter
type Func func(w http.ResponseWriter, r *http.Request, next Chain) error

// DoFilter calls f(w, r, next)
func (f Func) DoFilter(w http.ResponseWriter, r *http.Request, next Chain) error {
	return f(w, r, next)
}

// Compose returns a Filter that runs filters in order before next.
// Nil filters are skipped.
func Compose(filters ...Filter) Filter {
	active := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}

	return Func(func(w http.ResponseWriter, r *http.Request, next Chain) error {
		return runChain(active, next).DoFilter(w, r)
	})
}

func runChain(filters []Filter, last Chain) Chain {
	if len(filters) == 0 {
		return last
	}
	return ChainFunc(func(w http.ResponseWriter, r *http.Request) error {
		return filters[0].DoFilter(w, r, runChain(filters[1:], last))
	})
}

// Provider is implemented by configuration objects that expose a filter
type Provider interface {
	Filter() Filter
}

// Registration binds a named filter for use by an authorization gate
type Registration struct {
	Name    string
	Enabled bool
	Target  Filter
}

// NewRegistration creates an enabled registration for target
func NewRegistration(name string, target Filter) *Registration {
	return &Registration{
		Name:    name,
		Enabled: true,
		Target:  target,
	}
}

// Filter returns the registered filter, or nil when the registration is disabled
func (r *Registration) Filter() Filter {
	if r == nil || !r.Enabled {
		return nil
	}
	return r.Target
}
