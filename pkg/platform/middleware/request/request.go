// Package request provides request-id middleware. Every inbound request gets
// a correlation id that flows through logs and audit records.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"tradelane/pkg/requestcontext"
)

// HeaderRequestID is honored when the caller supplies its own correlation id
// (webhook redeliveries reuse theirs so retries correlate).
const HeaderRequestID = "X-Request-Id"

// Middleware assigns or propagates a request id and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
