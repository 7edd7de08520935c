package handlers

import (
	"net/http"

	"github.com/upb/authgate/app"
	"github.com/upb/authgate/gate"
	"github.com/upb/authgate/security"
	"github.com/upb/authgate/utils"
)

// WhoAmI returns the principal forwarded by the gate
func WhoAmI(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := r.Header.Get(gate.PrincipalHeader)
		if principal == "" {
			_ = utils.WriteForbidden(w, "")
			return
		}

		auth, _ := security.FromContext(r.Context())
		_ = utils.WriteOK(w, map[string]interface{}{
			"principal":   principal,
			"authorities": auth.Authorities,
		})
	}
}

// ListListeners returns the registered listeners and their deployments
func ListListeners(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, deps.Listeners.Registrations())
	}
}

// ListDecisions returns gate decision counts
func ListDecisions(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, deps.Decisions.Snapshot())
	}
}
