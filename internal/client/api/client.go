// Package api is an http client of the comic tracker server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/comictracker/internal/logger"
)

const (
	defaultTimeout    = 10 * time.Second
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/auth"
)

var ErrNoSession = errors.New("not logged in")

// Non 2xx server response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded %d", e.StatusCode)
	}
	return fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Message)
}

// Check whether err is an APIError with the status code
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Where the access token for protected calls comes from
type TokenSource interface {
	Token() (string, error)
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type ComicInput struct {
	Title       string `json:"title"`
	SeriesTitle string `json:"series_title"`
	Issue       string `json:"issue"`
	Year        string `json:"year"`
	Publisher   string `json:"publisher"`
	Grade       string `json:"grade"`
	Notes       string `json:"notes"`
	Image       string `json:"image"`
	WantList    bool   `json:"want_list"`
}

type Sale struct {
	Price decimal.Decimal `json:"price"`
	Date  time.Time       `json:"date"`
}

type Comic struct {
	ID uuid.UUID `json:"id"`
	ComicInput
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	MarketAverage   *decimal.Decimal `json:"market_average,omitempty"`
	MarketSales     []Sale           `json:"market_sales,omitempty"`
	MarketUpdatedAt *time.Time       `json:"market_updated_at,omitempty"`
}

type Market struct {
	Average   decimal.Decimal `json:"average"`
	Sales     []Sale          `json:"sales"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Client struct {
	BaseURL string

	base   *url.URL
	client *http.Client
	tokens TokenSource
	logger logger.Logger
}

// Client keeps cookies in memory, so refresh cookie from Login is sent on Refresh
func NewClient(baseURL string, log logger.Logger) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server address %q is not valid", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Client{
		BaseURL: baseURL,
		base:    base,
		client:  &http.Client{Jar: jar, Timeout: defaultTimeout},
		logger:  log,
	}, nil
}

// Set source of access token for protected calls
func (c *Client) UseTokens(tokens TokenSource) {
	c.tokens = tokens
}

// Refresh cookie value the server set, empty if none
func (c *Client) RefreshCookie() string {
	for _, cookie := range c.client.Jar.Cookies(c.base.JoinPath(refreshCookiePath)) {
		if cookie.Name == refreshCookieName {
			return cookie.Value
		}
	}
	return ""
}

// Put back refresh cookie saved by earlier process
func (c *Client) RestoreRefreshCookie(value string) {
	if value == "" {
		return
	}
	c.client.Jar.SetCookies(c.base.JoinPath(refreshCookiePath), []*http.Cookie{{
		Name:     refreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		HttpOnly: true,
	}})
}

func (c *Client) Register(ctx context.Context, email string, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/auth/register", body, false, nil)
}

// Returns access token. Refresh cookie is kept by the client
func (c *Client) Login(ctx context.Context, email string, password string) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, false, &res); err != nil {
		return "", err
	}
	return res.Token, nil
}

// Get new access token with the refresh cookie
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh-token", nil, false, &res); err != nil {
		return "", err
	}
	return res.Token, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, false, nil)
}

// Returns server message. Same for known and unknown email
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var res messageResponse
	err := c.do(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, false, &res)
	return res.Message, err
}

func (c *Client) ResetPassword(ctx context.Context, token string, password string) (string, error) {
	var res messageResponse
	path := "/auth/reset-password/" + url.PathEscape(token)
	err := c.do(ctx, http.MethodPost, path, map[string]string{"password": password}, false, &res)
	return res.Message, err
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, true, &user)
	return user, err
}

// List comics, wantList filters by want list flag when not nil
func (c *Client) ListComics(ctx context.Context, wantList *bool) ([]Comic, error) {
	path := "/comics"
	if wantList != nil {
		path += "?want=" + strconv.FormatBool(*wantList)
	}

	var comics []Comic
	err := c.do(ctx, http.MethodGet, path, nil, true, &comics)
	return comics, err
}

func (c *Client) GetComic(ctx context.Context, id uuid.UUID) (Comic, error) {
	var comic Comic
	err := c.do(ctx, http.MethodGet, "/comics/"+id.String(), nil, true, &comic)
	return comic, err
}

func (c *Client) CreateComic(ctx context.Context, in ComicInput) (Comic, error) {
	var comic Comic
	err := c.do(ctx, http.MethodPost, "/comics", in, true, &comic)
	return comic, err
}

func (c *Client) UpdateComic(ctx context.Context, id uuid.UUID, in ComicInput) (Comic, error) {
	var comic Comic
	err := c.do(ctx, http.MethodPut, "/comics/"+id.String(), in, true, &comic)
	return comic, err
}

func (c *Client) DeleteComic(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/comics/"+id.String(), nil, true, nil)
}

func (c *Client) Market(ctx context.Context, id uuid.UUID) (Market, error) {
	var market Market
	err := c.do(ctx, http.MethodGet, "/comics/"+id.String()+"/market", nil, true, &market)
	return market, err
}

func (c *Client) RefreshMarket(ctx context.Context, id uuid.UUID) (Comic, error) {
	var comic Comic
	err := c.do(ctx, http.MethodPost, "/comics/"+id.String()+"/market/refresh", nil, true, &comic)
	return comic, err
}

type messageResponse struct {
	Message string `json:"message"`
}

// Any of the shapes server reports errors with
type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func (c *Client) do(ctx context.Context, method string, path string, body any, auth bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if auth {
		token, err := c.accessToken()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.processError(method, path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn("Failed to decode response", "path", path, "error", err)
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) accessToken() (string, error) {
	if c.tokens == nil {
		return "", ErrNoSession
	}
	token, err := c.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

func (c *Client) processError(method string, path string, resp *http.Response) error {
	var res errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&res)

	message := res.Message
	if message == "" {
		message = res.Error
	}
	for field, problem := range res.Fields {
		message += fmt.Sprintf("; %s: %s", field, problem)
	}

	c.logger.Debug("Request failed", "method", method, "path", path, "status_code", resp.StatusCode)
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
