package gate

import (
	"net/http"

	"github.com/upb/authgate/internal/observability"
	"github.com/upb/authgate/utils"
	"go.uber.org/zap"
)

// Middleware gates next on allowedRoles. Denied requests get 403, filter
// failures get 500, unless the filter already wrote its own response.
// Authorized requests reach next with PrincipalHeader set.
func (g *Gate) Middleware(allowedRoles ...string) func(http.Handler) http.Handler {
	roles := append([]string(nil), allowedRoles...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// the header is only ever set by the gate
			r.Header.Del(PrincipalHeader)

			fw := &filterWriter{ResponseWriter: w}
			ex := NewExchange(fw, r)
			status, err := g.Authenticate(ex, roles)
			if err != nil {
				observability.WithRequest(r.Context(), g.logger).Error("authentication filter failed",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				if !fw.written {
					_ = utils.WriteInternalServerError(w, "")
				}
				return
			}

			if status != http.StatusOK {
				if !fw.written {
					_ = utils.WriteForbidden(w, "")
				}
				return
			}

			req := ex.Request()
			g.EmitPrincipalHeader(req.Header.Set, ex)
			next.ServeHTTP(w, req)
		})
	}
}

// filterWriter records whether a filter started a response
type filterWriter struct {
	http.ResponseWriter
	written bool
}

func (fw *filterWriter) WriteHeader(code int) {
	fw.written = true
	fw.ResponseWriter.WriteHeader(code)
}

func (fw *filterWriter) Write(b []byte) (int, error) {
	fw.written = true
	return fw.ResponseWriter.Write(b)
}

func (fw *filterWriter) Unwrap() http.ResponseWriter {
	return fw.ResponseWriter
}
