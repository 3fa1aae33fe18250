package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/comictracker/internal/logger"
	"github.com/nkiryanov/comictracker/internal/mailer"
	"github.com/nkiryanov/comictracker/internal/models"
	"github.com/nkiryanov/comictracker/internal/repository/postgres"
	"github.com/nkiryanov/comictracker/internal/service/auth"
	"github.com/nkiryanov/comictracker/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/comictracker/internal/service/comic"
	"github.com/nkiryanov/comictracker/internal/service/reset"
	"github.com/nkiryanov/comictracker/internal/testutil"
)

// Collects sent messages instead of sending
type mailbox struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *mailbox) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mailbox) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mailbox) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

var resetLinkRe = regexp.MustCompile(`http://localhost:5173/reset-password/([0-9a-f]{64})`)

func (m *mailbox) lastResetToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.sent, "reset mail has to be sent")
	match := resetLinkRe.FindStringSubmatch(m.sent[len(m.sent)-1].HTMLBody)
	require.Len(t, match, 2, "reset mail has to contain the link")
	return match[1]
}

type fixedSales []models.Sale

func (f fixedSales) Sales(string, string) []models.Sale {
	return f
}

// Running server with production services on top of db transaction
type testEnv struct {
	url    string
	clock  *testutil.Clock
	box    *mailbox
	client *http.Client
}

type testResponse struct {
	code    int
	body    string
	cookies []*http.Cookie
	header  http.Header
}

// Send request with the env client, so cookies are kept between requests
func (e *testEnv) do(t *testing.T, method string, path string, body string, access string) testResponse {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, e.url+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return testResponse{code: resp.StatusCode, body: string(raw), cookies: resp.Cookies(), header: resp.Header}
}

func startTestEnv(t *testing.T, tx pgx.Tx) *testEnv {
	t.Helper()

	clock := testutil.NewClock(time.Now())
	box := &mailbox{}
	storage := postgres.NewStorage(tx)
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}

	tokens, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		Now:           clock.Now,
	})
	require.NoError(t, err)

	authService, err := auth.NewService(auth.Config{Hasher: hasher, Now: clock.Now}, tokens, storage.User())
	require.NoError(t, err)

	resetService, err := reset.NewService(
		reset.Config{LinkBaseURL: "http://localhost:5173/reset-password", Now: clock.Now},
		hasher, box, storage.User(),
	)
	require.NoError(t, err)

	sales := fixedSales{
		{Price: decimal.RequireFromString("10.00"), Date: clock.Now().Add(-7 * 24 * time.Hour)},
		{Price: decimal.RequireFromString("11.00"), Date: clock.Now()},
	}
	comicService := comic.NewService(storage.Comic(), sales)

	srv := httptest.NewServer(NewRouter(authService, resetService, comicService, logger.NewNoOpLogger()))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{url: srv.URL, clock: clock, box: box, client: &http.Client{Jar: jar}}
}
