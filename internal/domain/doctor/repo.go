package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("doctor not found")
	ErrEntryNotFound   = errors.New("schedule entry not found")
	ErrVersionConflict = errors.New("doctor was modified concurrently, retry")
	ErrDuplicateRegNo  = errors.New("registration number already exists")
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByRegistrationNumber(ctx context.Context, regNo string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	// BumpVersion advances the doctor's version only when the caller holds
	// the current one. ErrVersionConflict means a concurrent mutation won.
	BumpVersion(ctx context.Context, id uuid.UUID, fromVersion int) error

	LinkClinic(ctx context.Context, link *ClinicLink) error
	UnlinkClinic(ctx context.Context, doctorID, clinicID uuid.UUID) error
	GetLink(ctx context.Context, doctorID, clinicID uuid.UUID) (*ClinicLink, error)
	SetFee(ctx context.Context, doctorID, clinicID uuid.UUID, fee float64) error
	CountClinics(ctx context.Context, doctorID uuid.UUID) (int, error)

	ListEntries(ctx context.Context, doctorID uuid.UUID) ([]ScheduleEntry, error)
	ListEntriesForClinic(ctx context.Context, doctorID, clinicID uuid.UUID) ([]ScheduleEntry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*ScheduleEntry, error)
	ReplaceEntries(ctx context.Context, doctorID, clinicID uuid.UUID, entries []ScheduleEntry) error
	UpdateEntry(ctx context.Context, e *ScheduleEntry) error
	DeleteEntry(ctx context.Context, id, clinicID uuid.UUID) error
	DeleteEntriesForClinic(ctx context.Context, doctorID, clinicID uuid.UUID) error

	ListByClinic(ctx context.Context, clinicID uuid.UUID, search string, limit, offset int) ([]*Doctor, int, error)
	Search(ctx context.Context, search, specialization string, limit, offset int) ([]*Doctor, int, error)
}
