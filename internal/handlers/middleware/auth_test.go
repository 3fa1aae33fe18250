package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/comictracker/internal/apperrors"
	"github.com/nkiryanov/comictracker/internal/handlers/userctx"
)

// Allow to use a function as auth service
type authFunc func(ctx context.Context, r *http.Request) (uuid.UUID, error)

func (f authFunc) Authenticate(ctx context.Context, r *http.Request) (uuid.UUID, error) {
	return f(ctx, r)
}

func TestAuthMiddleware(t *testing.T) {
	// Simple handler that try to get user id from context
	// If ok write it to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set user to context or write error to response
		userID, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(userID.String()))
		require.NoError(t, err, "should write user id to response")
	})

	get := func(t *testing.T, h http.Handler) (int, string) {
		srv := httptest.NewServer(h)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/comics")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		return resp.StatusCode, string(body)
	}

	t.Run("auth ok", func(t *testing.T) {
		userID := uuid.New()
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, r *http.Request) (uuid.UUID, error) {
			return userID, nil
		}))

		code, body := get(t, middleware(handler))

		require.Equalf(t, http.StatusOK, code, "should return status OK. Resp: %s", body)
		require.Equal(t, userID.String(), body, "should return user id in response")
	})

	t.Run("no token", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, r *http.Request) (uuid.UUID, error) {
			return uuid.Nil, apperrors.ErrNoAccessToken
		}))

		code, body := get(t, middleware(handler))

		require.Equalf(t, http.StatusUnauthorized, code, "Resp: %s", body)
		require.JSONEq(t, `{"error": "service_error", "message": "No token provided"}`, body)
	})

	t.Run("invalid token", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, r *http.Request) (uuid.UUID, error) {
			return uuid.Nil, errors.Join(apperrors.ErrAccessTokenInvalid, apperrors.ErrTokenExpired)
		}))

		code, body := get(t, middleware(handler))

		require.Equalf(t, http.StatusForbidden, code, "Resp: %s", body)
		require.JSONEq(t, `{"error": "service_error", "message": "Invalid or expired token"}`, body)
	})
}
