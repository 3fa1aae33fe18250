package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/comictracker/internal/models"
)

type Storage interface {
	User() UserRepo
	Comic() ComicRepo
}

// User repository interface (credential store)
type UserRepo interface {
	// Create user
	// If user with the email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, email string, hashedPassword string) (models.User, error)

	// Get user by it's id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Store reset token hash and its expiration time, replacing the pending one if any
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error

	// Consume reset token: set new password and clear both reset fields in one statement
	// Token has to match and be not expired at 'now'
	// If no such token must return apperrors.ErrResetTokenInvalid
	ResetPassword(ctx context.Context, tokenHash string, now time.Time, hashedPassword string) (models.User, error)
}

type ListComicsOpts struct {
	UserID uuid.UUID

	// Filter by want list flag if not nil
	WantList *bool
}

// Comic repository interface (item store)
// Every method is scoped by owner: comic of other user is reported as apperrors.ErrComicNotFound
type ComicRepo interface {
	CreateComic(ctx context.Context, userID uuid.UUID, info models.ComicInfo) (models.Comic, error)
	GetComic(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) (models.Comic, error)
	ListComics(ctx context.Context, opts ListComicsOpts) ([]models.Comic, error)
	UpdateComic(ctx context.Context, userID uuid.UUID, comicID uuid.UUID, info models.ComicInfo) (models.Comic, error)
	DeleteComic(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) error
	SetMarket(ctx context.Context, userID uuid.UUID, comicID uuid.UUID, average decimal.Decimal, sales []models.Sale) (models.Comic, error)

	// Comics of any user without market data or with data older than opts.UpdatedBefore
	// Never fetched go first, then the oldest
	ListStaleMarket(ctx context.Context, opts ListStaleMarketOpts) ([]models.Comic, error)
}

type ListStaleMarketOpts struct {
	UpdatedBefore time.Time
	Limit         int
}
