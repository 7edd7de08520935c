package gate

import (
	"github.com/upb/authgate/filter"
	"go.uber.org/zap"
)

// Acceptance is the result of resolving a configuration object.
// The zero value is a declined configuration.
type Acceptance struct {
	filter filter.Filter
}

// Accepted reports whether the configuration yielded a filter
func (a Acceptance) Accepted() bool {
	return a.filter != nil
}

// Filter returns the accepted filter, or nil when declined
func (a Acceptance) Filter() filter.Filter {
	return a.filter
}

// Resolve inspects a configuration object. Only a filter.Provider that
// exposes a non-nil filter is accepted.
func Resolve(cfg any) Acceptance {
	provider, ok := cfg.(filter.Provider)
	if !ok {
		return Acceptance{}
	}
	return Acceptance{filter: provider.Filter()}
}

// AcceptConfiguration stores the filter exposed by cfg as the gate's
// invocation target. It returns false, leaving the gate unchanged, when cfg
// is not applicable so the caller can try another provider.
func (g *Gate) AcceptConfiguration(cfg any, endpoint string) bool {
	acceptance := Resolve(cfg)
	if !acceptance.Accepted() {
		g.logger.Debug("configuration declined", zap.String("endpoint", endpoint))
		return false
	}

	g.mu.Lock()
	g.filter = acceptance.Filter()
	g.endpoint = endpoint
	g.mu.Unlock()

	g.logger.Info("filter configuration accepted", zap.String("endpoint", endpoint))
	return true
}
