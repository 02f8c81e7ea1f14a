package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a single record shared by every clinic the doctor practices at,
// keyed by medical registration number. Version guards concurrent schedule
// mutations from different clinics.
type Doctor struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	RegistrationNumber string    `db:"registration_number" json:"registration_number"`
	FullName           string    `db:"full_name" json:"full_name"`
	Email              string    `db:"email" json:"email"`
	Specialization     string    `db:"specialization" json:"specialization"`
	MedicalDegree      string    `db:"medical_degree" json:"medical_degree"`
	ExperienceYears    int       `db:"experience_years" json:"experience_years"`
	Phone              string    `db:"phone" json:"phone"`
	Version            int       `db:"version" json:"-"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// ClinicLink is a clinic's own slice of a doctor: the consultation fee the
// clinic charges for them.
type ClinicLink struct {
	DoctorID uuid.UUID `db:"doctor_id" json:"doctor_id"`
	ClinicID uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Fee      float64   `db:"fee" json:"fee"`
}

// ScheduleEntry is one recurring weekly window a clinic books the doctor
// for. Times are "HH:MM" strings; the window is half open, so an entry
// ending at 11:00 does not collide with one starting at 11:00.
type ScheduleEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	ClinicID  uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Day       string    `db:"day" json:"day"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	MaxSlots  int       `db:"max_slots" json:"max_slots"`
}
