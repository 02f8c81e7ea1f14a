package labtest

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("lab test not found")

type Repository interface {
	Create(ctx context.Context, lt *LabTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error)
	GetMany(ctx context.Context, clinicID uuid.UUID, ids []uuid.UUID) ([]*LabTest, error)
	Update(ctx context.Context, lt *LabTest) error
	Delete(ctx context.Context, id, clinicID uuid.UUID) error
	ListByClinic(ctx context.Context, clinicID uuid.UUID, search string, limit, offset int) ([]*LabTest, int, error)
}
