package reset

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nkiryanov/comictracker/internal/apperrors"
	"github.com/nkiryanov/comictracker/internal/mailer"
	"github.com/nkiryanov/comictracker/internal/repository"
)

const (
	defaultTokenTTL = 30 * time.Minute
	tokenBytes      = 32

	MinPasswordLength = 6
)

type passwordHasher interface {
	Hash(password string) (string, error)
}

type Config struct {
	// Reset page url, raw token is appended as the last path segment
	LinkBaseURL string

	// How long reset token is valid, 30 minutes if not set
	TokenTTL time.Duration

	// Clock, time.Now if not set
	Now func() time.Time
}

// Password reset by single use email token
// Only sha256 of the token is stored, the token itself exists in the email only
type Service struct {
	linkBaseURL string
	tokenTTL    time.Duration
	now         func() time.Time

	hasher   passwordHasher
	sender   mailer.Sender
	userRepo repository.UserRepo
}

func NewService(cfg Config, hasher passwordHasher, sender mailer.Sender, userRepo repository.UserRepo) (*Service, error) {
	if cfg.LinkBaseURL == "" {
		return nil, errors.New("reset link base url must be set")
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		linkBaseURL: strings.TrimRight(cfg.LinkBaseURL, "/"),
		tokenTTL:    cfg.TokenTTL,
		now:         cfg.Now,
		hasher:      hasher,
		sender:      sender,
		userRepo:    userRepo,
	}, nil
}

// Mail reset link to the user
// Unknown email is not an error: caller must not be able to tell whether the account exists
func (s *Service) RequestReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("can't get user. Err: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return err
	}

	if err := s.userRepo.SetResetToken(ctx, user.ID, hashToken(token), s.now().Add(s.tokenTTL)); err != nil {
		return fmt.Errorf("can't store reset token. Err: %w", err)
	}

	msg, err := mailer.PasswordResetMessage(user.Email, s.linkBaseURL+"/"+token, humanDuration(s.tokenTTL))
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSendEmail, err)
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		if errors.Is(err, apperrors.ErrSendEmail) {
			return err
		}
		return fmt.Errorf("%w: %w", apperrors.ErrSendEmail, err)
	}

	return nil
}

// Set new password if token is known and not expired. Token is consumed
// Wrong, used and expired tokens are the same apperrors.ErrResetTokenInvalid
func (s *Service) ResetPassword(ctx context.Context, token string, password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperrors.ErrWeakPassword
	}
	if token == "" {
		return apperrors.ErrResetTokenInvalid
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("can't use this as password. Err: %w", err)
	}

	if _, err := s.userRepo.ResetPassword(ctx, hashToken(token), s.now(), hashed); err != nil {
		return fmt.Errorf("can't reset password. Err: %w", err)
	}

	return nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("can't generate reset token. Err: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 && d >= time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}
