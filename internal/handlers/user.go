package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/comictracker/internal/apperrors"
	"github.com/nkiryanov/comictracker/internal/handlers/render"
	"github.com/nkiryanov/comictracker/internal/handlers/userctx"
	"github.com/nkiryanov/comictracker/internal/logger"
)

func handleUserMe(authService authService, logger logger.Logger) http.Handler {
	type response struct {
		ID        uuid.UUID `json:"id"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userctx.FromContext(r.Context())

		user, err := authService.User(r.Context(), userID)

		switch {
		case err == nil:
			render.JSON(w, response{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			logger.Error("can't get user", "error", err)
			render.ServiceError(w, msgInternalError, http.StatusInternalServerError)
		}
	})
}
