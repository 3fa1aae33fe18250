package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Email          string
	HashedPassword string

	// Both set while a password reset is pending, both nil otherwise
	ResetTokenHash      *string
	ResetTokenExpiresAt *time.Time
}

// Reset is pending and not expired at the given moment
func (u User) HasPendingReset(now time.Time) bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(now)
}
