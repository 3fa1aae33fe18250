package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/comictracker/internal/testutil"
)

func tokenFrom(t *testing.T, resp testResponse) string {
	t.Helper()

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.body), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

// Whole session lifecycle on the simulated clock
func Test_SessionScenario(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("login refresh and session end", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			e := startTestEnv(t, tx)

			resp := e.do(t, http.MethodPost, "/auth/register", `{"email": "alice@example.com", "password": "secret1"}`, "")
			require.Equal(t, http.StatusCreated, resp.code)

			resp = e.do(t, http.MethodPost, "/auth/login", `{"email": "alice@example.com", "password": "secret1"}`, "")
			require.Equal(t, http.StatusOK, resp.code)
			access := tokenFrom(t, resp)
			require.NotEmpty(t, resp.cookies, "refresh cookie is set on login")

			resp = e.do(t, http.MethodPost, "/auth/refresh-token", "", "")
			require.Equal(t, http.StatusOK, resp.code, "refresh right after login works")
			require.NotEqual(t, access, tokenFrom(t, resp), "refreshed token differs")

			resp = e.do(t, http.MethodGet, "/comics", "", access)
			require.Equal(t, http.StatusOK, resp.code, "fresh access token works")

			e.clock.Advance(31 * time.Minute)
			resp = e.do(t, http.MethodGet, "/comics", "", access)
			require.Equal(t, http.StatusForbidden, resp.code, "access token expires after 30 minutes")

			resp = e.do(t, http.MethodPost, "/auth/refresh-token", "", "")
			require.Equal(t, http.StatusOK, resp.code, "refresh token from cookie still valid")
			access = tokenFrom(t, resp)

			resp = e.do(t, http.MethodGet, "/comics", "", access)
			require.Equal(t, http.StatusOK, resp.code, "renewed access token works")

			e.clock.Advance(31 * 24 * time.Hour)
			resp = e.do(t, http.MethodPost, "/auth/refresh-token", "", "")
			require.Equal(t, http.StatusForbidden, resp.code, "refresh token expires after 7 days")
			require.JSONEq(t, `{"error": "service_error", "message": "Invalid refresh token"}`, resp.body)
		})
	})

	t.Run("forgot reset and login", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			e := startTestEnv(t, tx)

			resp := e.do(t, http.MethodPost, "/auth/register", `{"email": "alice@example.com", "password": "secret1"}`, "")
			require.Equal(t, http.StatusCreated, resp.code)

			resp = e.do(t, http.MethodPost, "/auth/forgot-password", `{"email": "alice@example.com"}`, "")
			require.Equal(t, http.StatusOK, resp.code)
			token := e.box.lastResetToken(t)

			e.clock.Advance(10 * time.Minute)
			resp = e.do(t, http.MethodPost, "/auth/reset-password/"+token, `{"password": "newpass1"}`, "")
			require.Equal(t, http.StatusOK, resp.code)

			resp = e.do(t, http.MethodPost, "/auth/login", `{"email": "alice@example.com", "password": "secret1"}`, "")
			require.Equal(t, http.StatusUnauthorized, resp.code, "old password does not work")

			resp = e.do(t, http.MethodPost, "/auth/login", `{"email": "alice@example.com", "password": "newpass1"}`, "")
			require.Equal(t, http.StatusOK, resp.code, "new password works")
			tokenFrom(t, resp)
		})
	})
}
