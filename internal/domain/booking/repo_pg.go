package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, created_by, doctor_id, clinic_id, patient_name, patient_age, patient_gender,
	patient_phone, appointment_date, day, start_time, end_time, fee, platform_fee, commission_pct,
	total_amount, order_id, payment_id, payment_status, doctor_name, doctor_specialty,
	clinic_name, clinic_city, created_at`

func (r *repoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.CreatedBy, &a.DoctorID, &a.ClinicID, &a.PatientName, &a.PatientAge,
		&a.PatientGender, &a.PatientPhone, &a.AppointmentDate, &a.Day, &a.StartTime, &a.EndTime,
		&a.Fee, &a.PlatformFee, &a.CommissionPct, &a.TotalAmount, &a.OrderID, &a.PaymentID,
		&a.PaymentStatus, &a.DoctorName, &a.DoctorSpecialty, &a.ClinicName, &a.ClinicCity, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const labApptCols = `id, created_by, clinic_id, patient_name, patient_age, patient_gender,
	patient_phone, appointment_date, test_names, test_descriptions, test_fees, platform_fee,
	commission_pct, total_amount, order_id, payment_id, payment_status, clinic_name, clinic_city,
	created_at`

func (r *repoPG) scanLabAppt(row pgx.Row) (*LabAppointment, error) {
	var a LabAppointment
	err := row.Scan(&a.ID, &a.CreatedBy, &a.ClinicID, &a.PatientName, &a.PatientAge,
		&a.PatientGender, &a.PatientPhone, &a.AppointmentDate, &a.TestNames, &a.TestDescriptions,
		&a.TestFees, &a.PlatformFee, &a.CommissionPct, &a.TotalAmount, &a.OrderID, &a.PaymentID,
		&a.PaymentStatus, &a.ClinicName, &a.ClinicCity, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) CountBooked(ctx context.Context, clinicID, doctorID uuid.UUID, date, startTime, endTime string) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment
		WHERE clinic_id = $1 AND doctor_id = $2 AND appointment_date = $3
		  AND start_time = $4 AND end_time = $5`,
		clinicID, doctorID, date, startTime, endTime).Scan(&count)
	return count, err
}

const apptInsertCols = `id, created_by, doctor_id, clinic_id, patient_name, patient_age,
	patient_gender, patient_phone, appointment_date, day, start_time, end_time, fee,
	platform_fee, commission_pct, total_amount, order_id, payment_id, payment_status,
	doctor_name, doctor_specialty, clinic_name, clinic_city`

func apptInsertArgs(a *Appointment) []interface{} {
	return []interface{}{
		a.ID, a.CreatedBy, a.DoctorID, a.ClinicID, a.PatientName, a.PatientAge,
		a.PatientGender, a.PatientPhone, a.AppointmentDate, a.Day, a.StartTime, a.EndTime,
		a.Fee, a.PlatformFee, a.CommissionPct, a.TotalAmount, a.OrderID, a.PaymentID,
		a.PaymentStatus, a.DoctorName, a.DoctorSpecialty, a.ClinicName, a.ClinicCity,
	}
}

func (r *repoPG) Insert(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (`+apptInsertCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		apptInsertArgs(a)...)
	return err
}

// InsertGuarded serializes confirmations for one slot with a transaction
// scoped advisory lock before counting. A bare count-then-insert is unsafe
// at READ COMMITTED: two sessions snapshot the same count and both commit.
// The lock is held until the surrounding transaction ends, so a concurrent
// confirmation for the same slot waits and then sees the committed row.
// Callers must run this inside a transaction or the lock releases
// immediately after the statement.
func (r *repoPG) InsertGuarded(ctx context.Context, a *Appointment, maxSlots int) error {
	q := r.conn(ctx)
	slotKey := fmt.Sprintf("%s|%s|%s|%s|%s",
		a.ClinicID, a.DoctorID, a.AppointmentDate, a.StartTime, a.EndTime)
	if _, err := q.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, slotKey); err != nil {
		return err
	}
	var booked int
	if err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment
		WHERE clinic_id = $1 AND doctor_id = $2 AND appointment_date = $3
		  AND start_time = $4 AND end_time = $5`,
		a.ClinicID, a.DoctorID, a.AppointmentDate, a.StartTime, a.EndTime).Scan(&booked); err != nil {
		return err
	}
	if booked >= maxSlots {
		return ErrSlotFull
	}
	return r.Insert(ctx, a)
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) listAppts(ctx context.Context, where string, key interface{}, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE `+where, key).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE `+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		key, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.listAppts(ctx, `created_by = $1`, userID, limit, offset)
}

func (r *repoPG) ListByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.listAppts(ctx, `clinic_id = $1`, clinicID, limit, offset)
}

func (r *repoPG) InsertLab(ctx context.Context, a *LabAppointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_test_appointment (id, created_by, clinic_id, patient_name, patient_age,
			patient_gender, patient_phone, appointment_date, test_names, test_descriptions,
			test_fees, platform_fee, commission_pct, total_amount, order_id, payment_id,
			payment_status, clinic_name, clinic_city)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		a.ID, a.CreatedBy, a.ClinicID, a.PatientName, a.PatientAge, a.PatientGender,
		a.PatientPhone, a.AppointmentDate, a.TestNames, a.TestDescriptions, a.TestFees,
		a.PlatformFee, a.CommissionPct, a.TotalAmount, a.OrderID, a.PaymentID,
		a.PaymentStatus, a.ClinicName, a.ClinicCity)
	return err
}

func (r *repoPG) listLabAppts(ctx context.Context, where string, key interface{}, limit, offset int) ([]*LabAppointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM lab_test_appointment WHERE `+where, key).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+labApptCols+` FROM lab_test_appointment WHERE `+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		key, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*LabAppointment
	for rows.Next() {
		a, err := r.scanLabAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListLabByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*LabAppointment, int, error) {
	return r.listLabAppts(ctx, `created_by = $1`, userID, limit, offset)
}

func (r *repoPG) ListLabByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*LabAppointment, int, error) {
	return r.listLabAppts(ctx, `clinic_id = $1`, clinicID, limit, offset)
}

func (r *repoPG) InsertEvent(ctx context.Context, eventID string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO webhook_event (event_id) VALUES ($1)
		ON CONFLICT (event_id) DO NOTHING`, eventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateEvent
	}
	return nil
}
