package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/comictracker/internal/handlers/middleware"
	"github.com/nkiryanov/comictracker/internal/logger"
	"github.com/nkiryanov/comictracker/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	resetService resetService,
	comicService comicService,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(authService)

	mux := http.NewServeMux()

	mux.Handle("POST /auth/register", handleRegister(authService, logger))
	mux.Handle("POST /auth/login", handleLogin(authService, logger))
	mux.Handle("POST /auth/refresh-token", handleTokenRefresh(authService, logger))
	mux.Handle("POST /auth/logout", handleLogout(authService))
	mux.Handle("POST /auth/forgot-password", handleForgotPassword(resetService, logger))
	mux.Handle("POST /auth/reset-password/{token}", handleResetPassword(resetService, logger))
	mux.Handle("GET /auth/me", withAuth(handleUserMe(authService, logger)))

	mux.Handle("GET /comics", withAuth(handleListComics(comicService, logger)))
	mux.Handle("POST /comics", withAuth(handleCreateComic(comicService, logger)))
	mux.Handle("GET /comics/{id}", withAuth(handleGetComic(comicService, logger)))
	mux.Handle("PUT /comics/{id}", withAuth(handleUpdateComic(comicService, logger)))
	mux.Handle("DELETE /comics/{id}", withAuth(handleDeleteComic(comicService, logger)))
	mux.Handle("GET /comics/{id}/market", withAuth(handleComicMarket(comicService, logger)))
	mux.Handle("POST /comics/{id}/market/refresh", withAuth(handleRefreshComicMarket(comicService, logger)))

	handler := chain(mux,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with email and password
	// Has to return apperrors.ErrInvalidInput or apperrors.ErrUserAlreadyExists if user can't be registered
	Register(ctx context.Context, email string, password string) (models.User, error)

	// Login user with email and password
	// Has to return apperrors.ErrInvalidCredentials if user not found or password is wrong
	Login(ctx context.Context, email string, password string) (models.TokenPair, error)

	// Issue new access token using refresh token
	// Has to return apperrors.ErrRefreshTokenInvalid if refresh token is not valid
	Refresh(ctx context.Context, refresh string) (models.IssuedToken, error)

	// Get user by id
	User(ctx context.Context, userID uuid.UUID) (models.User, error)

	// Get request and return id of authenticated user or error
	Authenticate(ctx context.Context, r *http.Request) (uuid.UUID, error)

	// Refresh token cookie handling
	SetRefreshCookie(w http.ResponseWriter, refresh models.IssuedToken)
	ClearRefreshCookie(w http.ResponseWriter)
	ReadRefreshCookie(r *http.Request) (string, error)
}

type resetService interface {
	// Mail reset link. Unknown email is not an error
	RequestReset(ctx context.Context, email string) error

	// Set new password with the reset token
	// Has to return apperrors.ErrWeakPassword or apperrors.ErrResetTokenInvalid
	ResetPassword(ctx context.Context, token string, password string) error
}

type comicService interface {
	List(ctx context.Context, userID uuid.UUID, wantList *bool) ([]models.Comic, error)
	Get(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) (models.Comic, error)
	Create(ctx context.Context, userID uuid.UUID, info models.ComicInfo) (models.Comic, error)
	Update(ctx context.Context, userID uuid.UUID, comicID uuid.UUID, info models.ComicInfo) (models.Comic, error)
	Delete(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) error
	RefreshMarket(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) (models.Comic, error)
	Market(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) (models.MarketValue, error)
}
