package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/admin"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/clinic"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/doctor"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/identity"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/labtest"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/db"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/mail"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/payments"
)

// DoctorDirectory is the slice of the doctor service bookings need.
type DoctorDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error)
	Fee(ctx context.Context, doctorID, clinicID uuid.UUID) (float64, error)
	Schedule(ctx context.Context, doctorID, clinicID uuid.UUID) ([]doctor.ScheduleEntry, error)
}

// ClinicDirectory resolves clinics patients may book at.
type ClinicDirectory interface {
	GetVerified(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
}

// TestCatalog resolves a clinic's lab tests by id.
type TestCatalog interface {
	Resolve(ctx context.Context, clinicID uuid.UUID, ids []uuid.UUID) ([]*labtest.LabTest, error)
}

// CommissionSource supplies the platform's current commission settings.
type CommissionSource interface {
	Settings(ctx context.Context) (*admin.CommissionSettings, error)
}

type Service struct {
	repo        Repository
	tx          db.TxRunner
	doctors     DoctorDirectory
	clinics     ClinicDirectory
	tests       TestCatalog
	commissions CommissionSource
	gateway     payments.Gateway
	mailer      mail.Sender
	keyID       string
	adminEmail  string
	log         zerolog.Logger
}

func NewService(repo Repository, tx db.TxRunner, doctors DoctorDirectory, clinics ClinicDirectory,
	tests TestCatalog, commissions CommissionSource, gateway payments.Gateway, mailer mail.Sender,
	keyID, adminEmail string, log zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		tx:          tx,
		doctors:     doctors,
		clinics:     clinics,
		tests:       tests,
		commissions: commissions,
		gateway:     gateway,
		mailer:      mailer,
		keyID:       keyID,
		adminEmail:  adminEmail,
		log:         log,
	}
}

// PatientInput carries the details of the person the booking is for, who
// need not be the account holder.
type PatientInput struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
	Phone  string `json:"phone"`
}

func (in *PatientInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("patient name is required")
	}
	if in.Age <= 0 || in.Age > 150 {
		return fmt.Errorf("invalid patient age")
	}
	if in.Gender == "" {
		return fmt.Errorf("patient gender is required")
	}
	return identity.ValidatePhone(in.Phone)
}

// AppointmentInput selects a doctor's slot at a clinic on a date.
type AppointmentInput struct {
	DoctorID        uuid.UUID    `json:"doctor_id"`
	ClinicID        uuid.UUID    `json:"clinic_id"`
	AppointmentDate string       `json:"appointment_date"`
	StartTime       string       `json:"start_time"`
	EndTime         string       `json:"end_time"`
	Patient         PatientInput `json:"patient"`
}

// LabInput selects one or more of a clinic's lab tests on a date.
type LabInput struct {
	ClinicID        uuid.UUID    `json:"clinic_id"`
	TestIDs         []uuid.UUID  `json:"test_ids"`
	AppointmentDate string       `json:"appointment_date"`
	Patient         PatientInput `json:"patient"`
}

// OrderResult is what a client needs to open the provider checkout.
type OrderResult struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// CapturedPayment is a verified payment.captured event, with the order
// notes echoed back by the provider.
type CapturedPayment struct {
	EventID   string
	PaymentID string
	OrderID   string
	Notes     map[string]string
}

// toPaise converts rupees to the smallest currency unit.
func toPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// weekday maps a dd-mm-yyyy date onto the schedule's day names.
func weekday(date string) (string, error) {
	t, err := time.Parse("02-01-2006", date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q", date)
	}
	return t.Weekday().String(), nil
}

// CreateAppointmentOrder validates a slot selection and opens a payment
// order for it. Nothing is persisted here; the appointment only comes into
// existence when the captured-payment webhook arrives.
func (s *Service) CreateAppointmentOrder(ctx context.Context, userID uuid.UUID, in AppointmentInput) (*OrderResult, error) {
	if err := in.Patient.validate(); err != nil {
		return nil, err
	}
	if err := ValidateDate(in.AppointmentDate); err != nil {
		return nil, err
	}
	day, err := weekday(in.AppointmentDate)
	if err != nil {
		return nil, err
	}

	cl, err := s.clinics.GetVerified(ctx, in.ClinicID)
	if err != nil {
		return nil, err
	}
	doc, err := s.doctors.Get(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}

	entries, err := s.doctors.Schedule(ctx, in.DoctorID, in.ClinicID)
	if err != nil {
		return nil, err
	}
	var entry *doctor.ScheduleEntry
	for i := range entries {
		e := &entries[i]
		if e.Day == day && e.StartTime == in.StartTime && e.EndTime == in.EndTime {
			entry = e
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("doctor has no %s slot from %s to %s at this clinic", day, in.StartTime, in.EndTime)
	}

	if entry.MaxSlots > 0 {
		booked, err := s.repo.CountBooked(ctx, in.ClinicID, in.DoctorID, in.AppointmentDate, in.StartTime, in.EndTime)
		if err != nil {
			return nil, err
		}
		if booked >= entry.MaxSlots {
			return nil, ErrSlotFull
		}
	}

	fee, err := s.doctors.Fee(ctx, in.DoctorID, in.ClinicID)
	if err != nil {
		return nil, err
	}
	settings, err := s.commissions.Settings(ctx)
	if err != nil {
		return nil, err
	}
	total := fee + settings.PlatformFee

	notes := map[string]interface{}{
		"kind":             "appointment",
		"user_id":          userID.String(),
		"doctor_id":        in.DoctorID.String(),
		"clinic_id":        in.ClinicID.String(),
		"patient_name":     in.Patient.Name,
		"patient_age":      strconv.Itoa(in.Patient.Age),
		"patient_gender":   in.Patient.Gender,
		"patient_phone":    in.Patient.Phone,
		"appointment_date": in.AppointmentDate,
		"day":              day,
		"start_time":       in.StartTime,
		"end_time":         in.EndTime,
		"max_slots":        strconv.Itoa(entry.MaxSlots),
		"fee":              strconv.FormatFloat(fee, 'f', 2, 64),
		"platform_fee":     strconv.FormatFloat(settings.PlatformFee, 'f', 2, 64),
		"commission_pct":   strconv.FormatFloat(settings.BookingPct, 'f', 2, 64),
		"total_amount":     strconv.FormatFloat(total, 'f', 2, 64),
		"doctor_name":      doc.FullName,
		"doctor_specialty": doc.Specialization,
		"clinic_name":      cl.Name,
		"clinic_city":      cl.City,
		"clinic_email":     cl.Email,
	}

	order, err := s.gateway.CreateOrder(ctx, toPaise(total), "INR", uuid.NewString(), notes)
	if err != nil {
		return nil, err
	}
	return &OrderResult{OrderID: order.ID, Amount: order.Amount, Currency: order.Currency, KeyID: s.keyID}, nil
}

// CreateLabOrder validates a lab-test selection and opens a payment order
// covering all chosen tests plus the platform fee.
func (s *Service) CreateLabOrder(ctx context.Context, userID uuid.UUID, in LabInput) (*OrderResult, error) {
	if err := in.Patient.validate(); err != nil {
		return nil, err
	}
	if err := ValidateDate(in.AppointmentDate); err != nil {
		return nil, err
	}
	if len(in.TestIDs) == 0 {
		return nil, fmt.Errorf("at least one lab test is required")
	}

	cl, err := s.clinics.GetVerified(ctx, in.ClinicID)
	if err != nil {
		return nil, err
	}
	tests, err := s.tests.Resolve(ctx, in.ClinicID, in.TestIDs)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(tests))
	descriptions := make([]string, 0, len(tests))
	fees := make([]string, 0, len(tests))
	var sum float64
	for _, t := range tests {
		names = append(names, t.Name)
		descriptions = append(descriptions, t.Description)
		fees = append(fees, strconv.FormatFloat(t.Price, 'f', 2, 64))
		sum += t.Price
	}

	settings, err := s.commissions.Settings(ctx)
	if err != nil {
		return nil, err
	}
	total := sum + settings.PlatformFee

	notes := map[string]interface{}{
		"kind":              "lab",
		"user_id":           userID.String(),
		"clinic_id":         in.ClinicID.String(),
		"patient_name":      in.Patient.Name,
		"patient_age":       strconv.Itoa(in.Patient.Age),
		"patient_gender":    in.Patient.Gender,
		"patient_phone":     in.Patient.Phone,
		"appointment_date":  in.AppointmentDate,
		"test_names":        strings.Join(names, ", "),
		"test_descriptions": strings.Join(descriptions, ", "),
		"test_fees":         strings.Join(fees, ", "),
		"platform_fee":      strconv.FormatFloat(settings.PlatformFee, 'f', 2, 64),
		"commission_pct":    strconv.FormatFloat(settings.LabBookingPct, 'f', 2, 64),
		"total_amount":      strconv.FormatFloat(total, 'f', 2, 64),
		"clinic_name":       cl.Name,
		"clinic_city":       cl.City,
		"clinic_email":      cl.Email,
	}

	order, err := s.gateway.CreateOrder(ctx, toPaise(total), "INR", uuid.NewString(), notes)
	if err != nil {
		return nil, err
	}
	return &OrderResult{OrderID: order.ID, Amount: order.Amount, Currency: order.Currency, KeyID: s.keyID}, nil
}

func noteFloat(notes map[string]string, key string) float64 {
	v, _ := strconv.ParseFloat(notes[key], 64)
	return v
}

func noteInt(notes map[string]string, key string) int {
	v, _ := strconv.Atoi(notes[key])
	return v
}

// ConfirmAppointment turns a captured payment into a persisted appointment.
// The event id insert and the guarded appointment insert share one
// transaction, so a retried webhook either replays as a no-op or rolls back
// cleanly.
func (s *Service) ConfirmAppointment(ctx context.Context, ev CapturedPayment) error {
	userID, err := uuid.Parse(ev.Notes["user_id"])
	if err != nil {
		return fmt.Errorf("webhook notes: bad user_id: %w", err)
	}
	doctorID, err := uuid.Parse(ev.Notes["doctor_id"])
	if err != nil {
		return fmt.Errorf("webhook notes: bad doctor_id: %w", err)
	}
	clinicID, err := uuid.Parse(ev.Notes["clinic_id"])
	if err != nil {
		return fmt.Errorf("webhook notes: bad clinic_id: %w", err)
	}

	appt := &Appointment{
		CreatedBy:       userID,
		DoctorID:        doctorID,
		ClinicID:        clinicID,
		PatientName:     ev.Notes["patient_name"],
		PatientAge:      noteInt(ev.Notes, "patient_age"),
		PatientGender:   ev.Notes["patient_gender"],
		PatientPhone:    ev.Notes["patient_phone"],
		AppointmentDate: ev.Notes["appointment_date"],
		Day:             ev.Notes["day"],
		StartTime:       ev.Notes["start_time"],
		EndTime:         ev.Notes["end_time"],
		Fee:             noteFloat(ev.Notes, "fee"),
		PlatformFee:     noteFloat(ev.Notes, "platform_fee"),
		CommissionPct:   noteFloat(ev.Notes, "commission_pct"),
		TotalAmount:     noteFloat(ev.Notes, "total_amount"),
		OrderID:         ev.OrderID,
		PaymentID:       ev.PaymentID,
		PaymentStatus:   PaymentStatusPaid,
		DoctorName:      ev.Notes["doctor_name"],
		DoctorSpecialty: ev.Notes["doctor_specialty"],
		ClinicName:      ev.Notes["clinic_name"],
		ClinicCity:      ev.Notes["clinic_city"],
	}
	maxSlots := noteInt(ev.Notes, "max_slots")

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertEvent(ctx, ev.EventID); err != nil {
			return err
		}
		if maxSlots > 0 {
			return s.repo.InsertGuarded(ctx, appt, maxSlots)
		}
		return s.repo.Insert(ctx, appt)
	})
	if errors.Is(err, ErrDuplicateEvent) {
		s.log.Info().Str("event_id", ev.EventID).Msg("webhook replay ignored")
		return nil
	}
	if err != nil {
		return err
	}

	s.notify("New appointment booked",
		fmt.Sprintf("Appointment for %s with %s at %s on %s, %s to %s. Payment %s.",
			appt.PatientName, appt.DoctorName, appt.ClinicName,
			appt.AppointmentDate, appt.StartTime, appt.EndTime, appt.PaymentID),
		ev.Notes["clinic_email"])
	return nil
}

// ConfirmLabBooking turns a captured lab payment into a persisted booking.
func (s *Service) ConfirmLabBooking(ctx context.Context, ev CapturedPayment) error {
	userID, err := uuid.Parse(ev.Notes["user_id"])
	if err != nil {
		return fmt.Errorf("webhook notes: bad user_id: %w", err)
	}
	clinicID, err := uuid.Parse(ev.Notes["clinic_id"])
	if err != nil {
		return fmt.Errorf("webhook notes: bad clinic_id: %w", err)
	}

	appt := &LabAppointment{
		CreatedBy:        userID,
		ClinicID:         clinicID,
		PatientName:      ev.Notes["patient_name"],
		PatientAge:       noteInt(ev.Notes, "patient_age"),
		PatientGender:    ev.Notes["patient_gender"],
		PatientPhone:     ev.Notes["patient_phone"],
		AppointmentDate:  ev.Notes["appointment_date"],
		TestNames:        ev.Notes["test_names"],
		TestDescriptions: ev.Notes["test_descriptions"],
		TestFees:         ev.Notes["test_fees"],
		PlatformFee:      noteFloat(ev.Notes, "platform_fee"),
		CommissionPct:    noteFloat(ev.Notes, "commission_pct"),
		TotalAmount:      noteFloat(ev.Notes, "total_amount"),
		OrderID:          ev.OrderID,
		PaymentID:        ev.PaymentID,
		PaymentStatus:    PaymentStatusPaid,
		ClinicName:       ev.Notes["clinic_name"],
		ClinicCity:       ev.Notes["clinic_city"],
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertEvent(ctx, ev.EventID); err != nil {
			return err
		}
		return s.repo.InsertLab(ctx, appt)
	})
	if errors.Is(err, ErrDuplicateEvent) {
		s.log.Info().Str("event_id", ev.EventID).Msg("webhook replay ignored")
		return nil
	}
	if err != nil {
		return err
	}

	s.notify("New lab tests booked",
		fmt.Sprintf("Lab booking for %s at %s on %s: %s. Payment %s.",
			appt.PatientName, appt.ClinicName, appt.AppointmentDate, appt.TestNames, appt.PaymentID),
		ev.Notes["clinic_email"])
	return nil
}

// notify emails the platform admin and the clinic without blocking the
// webhook response.
func (s *Service) notify(subject, body, clinicEmail string) {
	if s.mailer == nil {
		return
	}
	var to []string
	if s.adminEmail != "" {
		to = append(to, s.adminEmail)
	}
	if clinicEmail != "" {
		to = append(to, clinicEmail)
	}
	if len(to) == 0 {
		return
	}
	go func() {
		if err := s.mailer.Send(to, subject, body); err != nil {
			s.log.Error().Err(err).Str("subject", subject).Msg("booking notification mail failed")
		}
	}()
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) ListForClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByClinic(ctx, clinicID, limit, offset)
}

func (s *Service) ListLabForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*LabAppointment, int, error) {
	return s.repo.ListLabByUser(ctx, userID, limit, offset)
}

func (s *Service) ListLabForClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*LabAppointment, int, error) {
	return s.repo.ListLabByClinic(ctx, clinicID, limit, offset)
}
