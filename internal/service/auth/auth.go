package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nkiryanov/comictracker/internal/apperrors"
	"github.com/nkiryanov/comictracker/internal/models"
	"github.com/nkiryanov/comictracker/internal/repository"
)

const (
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
	defaultRefreshCookieName = "refreshToken"
	defaultRefreshCookiePath = "/auth"

	MinPasswordLength = 6
)

var validate = validator.New()

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type tokenManager interface {
	IssuePair(userID uuid.UUID) (models.TokenPair, error)
	IssueAccess(userID uuid.UUID) (models.IssuedToken, error)
	ParseAccess(access string) (models.TokenClaims, error)
	ParseRefresh(refresh string) (models.TokenClaims, error)
}

type Config struct {
	// Hasher to use during user registration or login process
	// BcryptHasher if not set
	Hasher PasswordHasher

	// Where access token is expected: 'Authorization: Bearer <token>' by default
	AccessHeaderName string
	AccessAuthScheme string

	// Refresh token cookie name and path
	RefreshCookieName string
	RefreshCookiePath string

	// Send refresh cookie over https only. Has to be true in production
	SecureCookie bool

	// Clock, time.Now if not set
	Now func() time.Time
}

// Auth service
type AuthService struct {
	// Manager to issue and parse tokens (access and refresh)
	tokens tokenManager

	// hasher to hash or compare user passwords
	hasher PasswordHasher

	// Compared with on login of unknown user, so both failures take the same time
	dummyHash string

	accessHeaderName  string
	accessAuthScheme  string
	refreshCookieName string
	refreshCookiePath string
	secureCookie      bool

	now func() time.Time

	// Repository to access long term data
	userRepo repository.UserRepo
}

func NewService(cfg Config, tokens tokenManager, userRepo repository.UserRepo) (*AuthService, error) {
	// Set default bcrypt hasher if not provided by user
	if cfg.Hasher == nil {
		cfg.Hasher = DefaultHasher
	}

	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefault(&cfg.AccessAuthScheme, defaultAccessAuthScheme)
	setDefault(&cfg.RefreshCookieName, defaultRefreshCookieName)
	setDefault(&cfg.RefreshCookiePath, defaultRefreshCookiePath)

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	dummyHash, err := cfg.Hasher.Hash("not-a-password-of-any-user")
	if err != nil {
		return nil, fmt.Errorf("hasher is broken. Err: %w", err)
	}

	return &AuthService{
		tokens:            tokens,
		hasher:            cfg.Hasher,
		dummyHash:         dummyHash,
		accessHeaderName:  cfg.AccessHeaderName,
		accessAuthScheme:  cfg.AccessAuthScheme,
		refreshCookieName: cfg.RefreshCookieName,
		refreshCookiePath: cfg.RefreshCookiePath,
		secureCookie:      cfg.SecureCookie,
		now:               cfg.Now,
		userRepo:          userRepo,
	}, nil
}

// Register new user. User has to login separately
func (s *AuthService) Register(ctx context.Context, email string, password string) (models.User, error) {
	if err := validate.Var(email, "required,email"); err != nil {
		return models.User{}, fmt.Errorf("%w: email is not valid", apperrors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return models.User{}, fmt.Errorf("%w: password is too short", apperrors.ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, email, hash)
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// Login with email and password and get fresh token pair
// Unknown email and wrong password are the same apperrors.ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.TokenPair, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)

	switch {
	case err == nil:
		if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
			return models.TokenPair{}, apperrors.ErrInvalidCredentials
		}
	case errors.Is(err, apperrors.ErrUserNotFound):
		_ = s.hasher.Compare(s.dummyHash, password)
		return models.TokenPair{}, apperrors.ErrInvalidCredentials
	default:
		return models.TokenPair{}, fmt.Errorf("can't get user. Err: %w", err)
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. Err: %w", err)
	}

	return pair, nil
}

// Issue new access token for valid refresh token
// Refresh token itself is not rotated
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.IssuedToken, error) {
	claims, err := s.tokens.ParseRefresh(refresh)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("%w: %w", apperrors.ErrRefreshTokenInvalid, err)
	}

	access, err := s.tokens.IssueAccess(claims.UserID)
	if err != nil {
		return access, fmt.Errorf("token could not generated, sorry. Err: %w", err)
	}

	return access, nil
}

// Return id of the user the request is authenticated as
func (s *AuthService) Authenticate(ctx context.Context, r *http.Request) (uuid.UUID, error) {
	scheme, access, ok := strings.Cut(r.Header.Get(s.accessHeaderName), " ")
	if !ok || !strings.EqualFold(scheme, s.accessAuthScheme) || strings.TrimSpace(access) == "" {
		return uuid.Nil, apperrors.ErrNoAccessToken
	}

	claims, err := s.tokens.ParseAccess(strings.TrimSpace(access))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", apperrors.ErrAccessTokenInvalid, err)
	}

	return claims.UserID, nil
}

// Set refresh token as http-only cookie
// Must be called before anything written to the response body
func (s *AuthService) SetRefreshCookie(w http.ResponseWriter, refresh models.IssuedToken) {
	// Token expiry is truncated to the second, round up to keep the full lifetime
	maxAge := int(math.Ceil(refresh.ExpiresAt.Sub(s.now()).Seconds()))

	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    refresh.Value,
		Path:     s.refreshCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Tell the client to drop refresh cookie
func (s *AuthService) ClearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    "",
		Path:     s.refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Get refresh token from request cookie. Cookie is the only accepted carrier
func (s *AuthService) ReadRefreshCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrNoRefreshToken
	}

	return cookie.Value, nil
}

// Get authenticated user
func (s *AuthService) User(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}
