package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User carries the minimal identity fields the ledger core needs: account id
// and registration time (for the new-account compliance rule and the risk
// profile). Authentication and profile data live elsewhere.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountAge returns how long the account has existed as of now
func (u *User) AccountAge(now time.Time) time.Duration {
	return now.Sub(u.CreatedAt)
}

// Repository defines user lookup operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// ErrUserNotFound indicates a missing user
type ErrUserNotFound struct {
	ID uuid.UUID
}

func (e ErrUserNotFound) Error() string {
	return "user not found: " + e.ID.String()
}
