package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/comictracker/internal/apperrors"
	"github.com/nkiryanov/comictracker/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	newManager := func(t *testing.T, clock *testutil.Clock) *TokenManager {
		m, err := New(Config{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			Now:           clock.Now,
		})
		require.NoError(t, err, "token manager should be created without errors")
		return m
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{AccessSecret: "access", RefreshSecret: "refresh"})
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, []byte("access"), m.accessKey, "access secret should be set")
		require.Equal(t, []byte("refresh"), m.refreshKey, "refresh secret should be set")
		require.Equal(t, 30*time.Minute, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, 7*24*time.Hour, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
		require.NotNil(t, m.now, "default clock should be set")
	})

	t.Run("new with invalid config", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  Config
		}{
			{"empty access secret", Config{RefreshSecret: "refresh"}},
			{"empty refresh secret", Config{AccessSecret: "access"}},
			{"same secrets", Config{AccessSecret: "secret", RefreshSecret: "secret"}},
			{"not hmac alg", Config{AccessSecret: "access", RefreshSecret: "refresh", Alg: "RS256"}},
			{"unknown alg", Config{AccessSecret: "access", RefreshSecret: "refresh", Alg: "unknown"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := New(tt.cfg)

				require.Error(t, err)
			})
		}
	})

	t.Run("IssuePair", func(t *testing.T) {
		clock := testutil.NewClock(mustParseTime("2026-01-01 19:00:01Z"))
		m := newManager(t, clock)

		pair, err := m.IssuePair(userID)

		require.NoError(t, err)
		assert.NotEmpty(t, pair.Access.Value, "access token should not be empty")
		assert.Equal(t, clock.Now().Add(30*time.Minute), pair.Access.ExpiresAt)
		assert.NotEmpty(t, pair.Refresh.Value, "refresh token should not be empty")
		assert.Equal(t, clock.Now().Add(7*24*time.Hour), pair.Refresh.ExpiresAt)
	})

	t.Run("access claims", func(t *testing.T) {
		clock := testutil.NewClock(time.Now())
		m := newManager(t, clock)

		access, err := m.IssueAccess(userID)
		require.NoError(t, err)

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(access.Value, claims, func(token *jwt.Token) (any, error) {
			return []byte("access-secret"), nil
		})
		require.NoError(t, err)
		require.True(t, token.Valid, "access token should be valid")

		assert.Equal(t, userID.String(), claims.Subject, "subject should be user id")
		assert.NotEmpty(t, claims.ID, "token has to has jti")
		assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second, "issued at should be close to now")
		assert.WithinDuration(t, access.ExpiresAt, claims.ExpiresAt.Time, 0, "expires at should match issued token")
	})

	t.Run("issue different tokens", func(t *testing.T) {
		clock := testutil.NewClock(time.Now())
		m := newManager(t, clock)

		first, err := m.IssueAccess(userID)
		require.NoError(t, err)
		second, err := m.IssueAccess(userID)
		require.NoError(t, err)

		assert.NotEqual(t, first.Value, second.Value, "tokens issued in the same second should differ")
	})

	t.Run("ParseAccess", func(t *testing.T) {
		t.Run("valid token", func(t *testing.T) {
			clock := testutil.NewClock(time.Now())
			m := newManager(t, clock)
			access, err := m.IssueAccess(userID)
			require.NoError(t, err)

			claims, err := m.ParseAccess(access.Value)

			require.NoError(t, err, "valid token should be parsed without errors")
			require.Equal(t, userID, claims.UserID)
			require.Equal(t, access.ExpiresAt.Unix(), claims.ExpiresAt.Unix())
		})

		t.Run("not a token", func(t *testing.T) {
			m := newManager(t, testutil.NewClock(time.Now()))

			_, err := m.ParseAccess("invalid token")

			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})

		t.Run("expired token", func(t *testing.T) {
			clock := testutil.NewClock(time.Now())
			m := newManager(t, clock)
			access, err := m.IssueAccess(userID)
			require.NoError(t, err)

			clock.Advance(31 * time.Minute)
			_, err = m.ParseAccess(access.Value)

			require.ErrorIs(t, err, apperrors.ErrTokenExpired, "token has to become expired")
			require.NotErrorIs(t, err, apperrors.ErrTokenInvalid, "expired and invalid are distinguishable internally")
		})

		t.Run("refresh token is not access token", func(t *testing.T) {
			m := newManager(t, testutil.NewClock(time.Now()))
			refresh, err := m.IssueRefresh(userID)
			require.NoError(t, err)

			_, err = m.ParseAccess(refresh.Value)

			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})

		t.Run("not signed token", func(t *testing.T) {
			m := newManager(t, testutil.NewClock(time.Now()))
			token := jwt.NewWithClaims(
				jwt.SigningMethodNone,
				jwt.RegisteredClaims{
					Subject:   userID.String(),
					IssuedAt:  jwt.NewNumericDate(time.Now()),
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
				},
			)
			access, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)

			_, err = m.ParseAccess(access)

			require.ErrorIs(t, err, apperrors.ErrTokenInvalid, "valid token with empty alg must fail")
		})

		t.Run("token without expiration", func(t *testing.T) {
			m := newManager(t, testutil.NewClock(time.Now()))
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID.String()})
			access, err := token.SignedString([]byte("access-secret"))
			require.NoError(t, err)

			_, err = m.ParseAccess(access)

			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})

		t.Run("subject not a user id", func(t *testing.T) {
			m := newManager(t, testutil.NewClock(time.Now()))
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   "42",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			})
			access, err := token.SignedString([]byte("access-secret"))
			require.NoError(t, err)

			_, err = m.ParseAccess(access)

			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})
	})

	t.Run("ParseRefresh", func(t *testing.T) {
		t.Run("valid token", func(t *testing.T) {
			m := newManager(t, testutil.NewClock(time.Now()))
			refresh, err := m.IssueRefresh(userID)
			require.NoError(t, err)

			claims, err := m.ParseRefresh(refresh.Value)

			require.NoError(t, err)
			require.Equal(t, userID, claims.UserID)
		})

		t.Run("access token is not refresh token", func(t *testing.T) {
			m := newManager(t, testutil.NewClock(time.Now()))
			access, err := m.IssueAccess(userID)
			require.NoError(t, err)

			_, err = m.ParseRefresh(access.Value)

			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})

		t.Run("valid for seven days", func(t *testing.T) {
			clock := testutil.NewClock(time.Now())
			m := newManager(t, clock)
			refresh, err := m.IssueRefresh(userID)
			require.NoError(t, err)

			clock.Advance(6 * 24 * time.Hour)
			_, err = m.ParseRefresh(refresh.Value)
			require.NoError(t, err, "still valid after six days")

			clock.Advance(2 * 24 * time.Hour)
			_, err = m.ParseRefresh(refresh.Value)
			require.ErrorIs(t, err, apperrors.ErrTokenExpired)
		})
	})
}
