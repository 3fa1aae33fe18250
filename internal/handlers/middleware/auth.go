package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/comictracker/internal/apperrors"
	"github.com/nkiryanov/comictracker/internal/handlers/render"
	"github.com/nkiryanov/comictracker/internal/handlers/userctx"
)

type authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (uuid.UUID, error)
}

// Require valid access token. Authenticated user id is put to request context
// No token is 401, any verification failure is 403
func AuthMiddleware(a authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := a.Authenticate(r.Context(), r)

			switch {
			case err == nil:
			case errors.Is(err, apperrors.ErrNoAccessToken):
				render.ServiceError(w, "No token provided", http.StatusUnauthorized)
				return
			default:
				render.ServiceError(w, "Invalid or expired token", http.StatusForbidden)
				return
			}

			ctx := userctx.New(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
