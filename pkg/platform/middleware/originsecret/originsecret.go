// Package originsecret validates that requests arrive through the API
// gateway by checking a shared-secret header. Health and metrics probes are
// exempt so orchestrators can reach them directly.
package originsecret

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	dErrors "bindirectory/pkg/domain-errors"
	"bindirectory/pkg/platform/httputil"
)

// HeaderName carries the gateway-injected shared secret.
const HeaderName = "x-origin-secret"

var exemptPrefixes = []string{"/health", "/metrics"}

// Middleware returns a filter rejecting requests whose x-origin-secret header
// does not match secret. When enabled is false the filter passes everything
// through, matching the deploy-time toggle of the upstream gateway contract.
func Middleware(secret string, enabled bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}

			for _, prefix := range exemptPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			received := r.Header.Get(HeaderName)
			if received == "" || subtle.ConstantTimeCompare([]byte(received), []byte(secret)) != 1 {
				if logger != nil {
					logger.WarnContext(r.Context(), "request rejected, invalid origin secret",
						"path", r.URL.Path,
					)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "invalid origin"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
