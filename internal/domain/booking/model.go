package booking

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Payment statuses recorded on persisted bookings. Bookings only exist once
// a payment was captured, so "paid" is the normal state.
const (
	PaymentStatusPaid = "paid"
)

// Appointment is an immutable record of a confirmed doctor booking. Doctor
// and clinic display fields are snapshotted at confirmation time so later
// edits to either do not rewrite history.
type Appointment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	CreatedBy       uuid.UUID `db:"created_by" json:"created_by"`
	DoctorID        uuid.UUID `db:"doctor_id" json:"doctor_id"`
	ClinicID        uuid.UUID `db:"clinic_id" json:"clinic_id"`
	PatientName     string    `db:"patient_name" json:"patient_name"`
	PatientAge      int       `db:"patient_age" json:"patient_age"`
	PatientGender   string    `db:"patient_gender" json:"patient_gender"`
	PatientPhone    string    `db:"patient_phone" json:"patient_phone"`
	AppointmentDate string    `db:"appointment_date" json:"appointment_date"`
	Day             string    `db:"day" json:"day"`
	StartTime       string    `db:"start_time" json:"start_time"`
	EndTime         string    `db:"end_time" json:"end_time"`
	Fee             float64   `db:"fee" json:"fee"`
	PlatformFee     float64   `db:"platform_fee" json:"platform_fee"`
	CommissionPct   float64   `db:"commission_pct" json:"commission_pct"`
	TotalAmount     float64   `db:"total_amount" json:"total_amount"`
	OrderID         string    `db:"order_id" json:"order_id"`
	PaymentID       string    `db:"payment_id" json:"payment_id"`
	PaymentStatus   string    `db:"payment_status" json:"payment_status"`
	DoctorName      string    `db:"doctor_name" json:"doctor_name"`
	DoctorSpecialty string    `db:"doctor_specialty" json:"doctor_specialty"`
	ClinicName      string    `db:"clinic_name" json:"clinic_name"`
	ClinicCity      string    `db:"clinic_city" json:"clinic_city"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// LabAppointment is a confirmed lab-test booking. The chosen tests are
// snapshotted as joined strings, mirroring how the booking was presented.
type LabAppointment struct {
	ID               uuid.UUID `db:"id" json:"id"`
	CreatedBy        uuid.UUID `db:"created_by" json:"created_by"`
	ClinicID         uuid.UUID `db:"clinic_id" json:"clinic_id"`
	PatientName      string    `db:"patient_name" json:"patient_name"`
	PatientAge       int       `db:"patient_age" json:"patient_age"`
	PatientGender    string    `db:"patient_gender" json:"patient_gender"`
	PatientPhone     string    `db:"patient_phone" json:"patient_phone"`
	AppointmentDate  string    `db:"appointment_date" json:"appointment_date"`
	TestNames        string    `db:"test_names" json:"test_names"`
	TestDescriptions string    `db:"test_descriptions" json:"test_descriptions"`
	TestFees         string    `db:"test_fees" json:"test_fees"`
	PlatformFee      float64   `db:"platform_fee" json:"platform_fee"`
	CommissionPct    float64   `db:"commission_pct" json:"commission_pct"`
	TotalAmount      float64   `db:"total_amount" json:"total_amount"`
	OrderID          string    `db:"order_id" json:"order_id"`
	PaymentID        string    `db:"payment_id" json:"payment_id"`
	PaymentStatus    string    `db:"payment_status" json:"payment_status"`
	ClinicName       string    `db:"clinic_name" json:"clinic_name"`
	ClinicCity       string    `db:"clinic_city" json:"clinic_city"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Dates travel as dd-mm-yyyy strings.
var datePattern = regexp.MustCompile(`^(0[1-9]|[12][0-9]|3[01])-(0[1-9]|1[0-2])-(19|20)\d{2}$`)

// ValidateDate checks the dd-mm-yyyy shape and that the date exists on the
// calendar.
func ValidateDate(date string) error {
	if !datePattern.MatchString(date) {
		return fmt.Errorf("invalid date %q, expected dd-mm-yyyy", date)
	}
	if _, err := time.Parse("02-01-2006", date); err != nil {
		return fmt.Errorf("invalid date %q", date)
	}
	return nil
}
