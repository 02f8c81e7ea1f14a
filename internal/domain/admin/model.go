package admin

import "time"

// Default commission values applied until an admin edits them.
const (
	DefaultPlatformFee   = 1.0
	DefaultBookingPct    = 0.0
	DefaultLabBookingPct = 0.0
)

// CommissionSettings is the single platform-wide row holding the flat
// platform fee, the percentage cuts on bookings, and the specialization
// list clinics pick from.
type CommissionSettings struct {
	PlatformFee     float64   `db:"platform_fee" json:"platform_fee"`
	BookingPct      float64   `db:"booking_pct" json:"booking_pct"`
	LabBookingPct   float64   `db:"lab_booking_pct" json:"lab_booking_pct"`
	Specializations []string  `db:"specializations" json:"specializations"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
