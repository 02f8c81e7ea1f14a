package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("clinic not found")
	ErrDuplicateEmail = errors.New("clinic email already registered")
)

type Repository interface {
	Create(ctx context.Context, cl *Clinic) error
	GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	Update(ctx context.Context, cl *Clinic) error
	// ListVerified returns verified clinics matching the optional name search
	// and city filter.
	ListVerified(ctx context.Context, search, city string, limit, offset int) ([]*Clinic, int, error)
	// ListWithLabTests narrows ListVerified to clinics offering at least
	// one lab test.
	ListWithLabTests(ctx context.Context, search, city string, limit, offset int) ([]*Clinic, int, error)
	ListUnverified(ctx context.Context, limit, offset int) ([]*Clinic, int, error)
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
	Cities(ctx context.Context) ([]string, error)
}
