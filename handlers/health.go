package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/authgate/app"
	"github.com/upb/authgate/utils"
	"go.uber.org/zap"
)

// HealthCheck returns a simple health check handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessCheck reports whether the user store can be reached
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ready"
		checks := map[string]string{}

		if deps.DB == nil {
			checks["database"] = "not_configured"
		} else if err := deps.DB.PingContext(ctx); err != nil {
			status = "not_ready"
			checks["database"] = "unhealthy"
			deps.Logger.Error("database health check failed", zap.Error(err))
		} else {
			checks["database"] = "healthy"
		}

		if deps.Listeners != nil {
			checks["listeners"] = "registered"
			if deps.Listeners.Len() == 0 {
				checks["listeners"] = "none"
			}
		}

		code := http.StatusOK
		if status != "ready" {
			code = http.StatusServiceUnavailable
		}
		if err := utils.WriteJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
		}); err != nil {
			deps.Logger.Warn("failed to write readiness response", zap.Error(err))
		}
	}
}
