// Package requestid assigns each request an ID for log correlation.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"bindirectory/pkg/requestcontext"
)

// Header echoes the assigned request ID back to the caller.
const Header = "X-Request-Id"

// Middleware honors a caller-supplied X-Request-Id and generates one
// otherwise, storing it in the context for handlers and services.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(Header)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(Header, reqID)

		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
