// Package requesttime captures one "now" per request so audit timestamps and
// context updates within a single call agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"tradelane/pkg/requestcontext"
)

// Middleware stores the request start time in context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
