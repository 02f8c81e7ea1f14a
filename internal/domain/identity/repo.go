package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, role, email string) (*Account, error)
	Update(ctx context.Context, a *Account) error
	// ListByClinic returns the clinic-role accounts linked to a clinic,
	// newest first.
	ListByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Account, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetResetOTP(ctx context.Context, id uuid.UUID, otp string, expiry time.Time) error
	ClearResetOTP(ctx context.Context, id uuid.UUID) error
	// SetPassword stores the new hash and clears any pending reset code in
	// the same write, so a used code cannot be replayed.
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
