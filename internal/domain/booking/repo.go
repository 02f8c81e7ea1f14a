package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a booking does not exist.
	ErrNotFound = errors.New("booking not found")

	// ErrSlotFull is returned when a slot has reached its booking limit.
	ErrSlotFull = errors.New("maximum limit for appointment reached, please choose another date or time available")

	// ErrDuplicateEvent is returned when a webhook event id was already
	// recorded, meaning the event has been processed before.
	ErrDuplicateEvent = errors.New("webhook event already processed")
)

// Repository is the storage port for appointments, lab bookings and
// webhook idempotency records.
type Repository interface {
	// CountBooked counts confirmed appointments for the exact slot, the
	// five-field match that defines slot occupancy.
	CountBooked(ctx context.Context, clinicID, doctorID uuid.UUID, date, startTime, endTime string) (int, error)

	// Insert stores an appointment without any occupancy check. It exists
	// for callers that have already serialized access to the slot.
	Insert(ctx context.Context, a *Appointment) error

	// InsertGuarded stores an appointment only while the slot still has
	// room. Confirmations for the same slot are serialized, so it must be
	// called inside an open transaction. Returns ErrSlotFull when the
	// limit is reached.
	InsertGuarded(ctx context.Context, a *Appointment, maxSlots int) error

	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Appointment, int, error)

	InsertLab(ctx context.Context, a *LabAppointment) error
	ListLabByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*LabAppointment, int, error)
	ListLabByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*LabAppointment, int, error)

	// InsertEvent records a provider event id. Returns ErrDuplicateEvent
	// when the id is already present.
	InsertEvent(ctx context.Context, eventID string) error
}
