// Package auth resolves the requesting actor from a bearer token and rejects
// unauthenticated transition requests before they reach the kernel.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "tradelane/pkg/domain"
	dErrors "tradelane/pkg/domain-errors"
	"tradelane/pkg/platform/httputil"
	"tradelane/pkg/requestcontext"
)

// ActorValidator resolves a token string into the actor it represents.
type ActorValidator interface {
	Validate(tokenString string) (id.Actor, error)
}

// RequireActor authenticates the request and stores the actor in context.
func RequireActor(validator ActorValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || raw == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			actor, err := validator.Validate(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected actor token",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			ctx := requestcontext.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
