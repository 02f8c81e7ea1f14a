package clinic

import (
	"time"

	"github.com/google/uuid"
)

// Clinic maps to the clinic table. New clinics start unverified and stay
// hidden from patient-facing listings until a platform admin verifies them.
type Clinic struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	AddressOne string    `db:"address_one" json:"address_one"`
	AddressTwo *string   `db:"address_two" json:"address_two,omitempty"`
	City       string    `db:"city" json:"city"`
	State      string    `db:"state" json:"state"`
	Pincode    string    `db:"pincode" json:"pincode"`
	Phone      string    `db:"phone" json:"phone"`
	Latitude   *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude  *float64  `db:"longitude" json:"longitude,omitempty"`
	IsVerified bool      `db:"is_verified" json:"is_verified"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
