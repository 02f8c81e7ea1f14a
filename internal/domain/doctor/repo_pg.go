package doctor

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

const doctorCols = `id, registration_number, full_name, email, specialization,
	medical_degree, experience_years, phone, version, created_at, updated_at`

func (r *repoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.RegistrationNumber, &d.FullName, &d.Email, &d.Specialization,
		&d.MedicalDegree, &d.ExperienceYears, &d.Phone, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	d.Version = 1
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor (id, registration_number, full_name, email, specialization,
			medical_degree, experience_years, phone, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		d.ID, d.RegistrationNumber, d.FullName, d.Email, d.Specialization,
		d.MedicalDegree, d.ExperienceYears, d.Phone, d.Version)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateRegNo
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *repoPG) GetByRegistrationNumber(ctx context.Context, regNo string) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctor WHERE registration_number = $1`, regNo))
}

func (r *repoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor SET full_name=$2, email=$3, specialization=$4, medical_degree=$5,
			experience_years=$6, phone=$7, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.FullName, d.Email, d.Specialization, d.MedicalDegree, d.ExperienceYears, d.Phone)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor WHERE id = $1`, id)
	return err
}

func (r *repoPG) BumpVersion(ctx context.Context, id uuid.UUID, fromVersion int) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor SET version = version + 1, updated_at=NOW() WHERE id = $1 AND version = $2`,
		id, fromVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *repoPG) LinkClinic(ctx context.Context, link *ClinicLink) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_clinic (doctor_id, clinic_id, fee)
		VALUES ($1,$2,$3)
		ON CONFLICT (doctor_id, clinic_id) DO UPDATE SET fee = EXCLUDED.fee`,
		link.DoctorID, link.ClinicID, link.Fee)
	return err
}

func (r *repoPG) UnlinkClinic(ctx context.Context, doctorID, clinicID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM doctor_clinic WHERE doctor_id = $1 AND clinic_id = $2`, doctorID, clinicID)
	return err
}

func (r *repoPG) GetLink(ctx context.Context, doctorID, clinicID uuid.UUID) (*ClinicLink, error) {
	var link ClinicLink
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT doctor_id, clinic_id, fee FROM doctor_clinic WHERE doctor_id = $1 AND clinic_id = $2`,
		doctorID, clinicID).Scan(&link.DoctorID, &link.ClinicID, &link.Fee)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repoPG) SetFee(ctx context.Context, doctorID, clinicID uuid.UUID, fee float64) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor_clinic SET fee = $3 WHERE doctor_id = $1 AND clinic_id = $2`,
		doctorID, clinicID, fee)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) CountClinics(ctx context.Context, doctorID uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctor_clinic WHERE doctor_id = $1`, doctorID).Scan(&count)
	return count, err
}

const entryCols = `id, doctor_id, clinic_id, day, start_time, end_time, max_slots`

func (r *repoPG) scanEntries(rows pgx.Rows) ([]ScheduleEntry, error) {
	defer rows.Close()
	var entries []ScheduleEntry
	for rows.Next() {
		var e ScheduleEntry
		if err := rows.Scan(&e.ID, &e.DoctorID, &e.ClinicID, &e.Day, &e.StartTime, &e.EndTime, &e.MaxSlots); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repoPG) ListEntries(ctx context.Context, doctorID uuid.UUID) ([]ScheduleEntry, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM schedule_entry WHERE doctor_id = $1 ORDER BY day, start_time`, doctorID)
	if err != nil {
		return nil, err
	}
	return r.scanEntries(rows)
}

func (r *repoPG) ListEntriesForClinic(ctx context.Context, doctorID, clinicID uuid.UUID) ([]ScheduleEntry, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM schedule_entry WHERE doctor_id = $1 AND clinic_id = $2 ORDER BY day, start_time`,
		doctorID, clinicID)
	if err != nil {
		return nil, err
	}
	return r.scanEntries(rows)
}

func (r *repoPG) GetEntry(ctx context.Context, id uuid.UUID) (*ScheduleEntry, error) {
	var e ScheduleEntry
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM schedule_entry WHERE id = $1`, id).
		Scan(&e.ID, &e.DoctorID, &e.ClinicID, &e.Day, &e.StartTime, &e.EndTime, &e.MaxSlots)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repoPG) ReplaceEntries(ctx context.Context, doctorID, clinicID uuid.UUID, entries []ScheduleEntry) error {
	c := r.conn(ctx)
	if _, err := c.Exec(ctx,
		`DELETE FROM schedule_entry WHERE doctor_id = $1 AND clinic_id = $2`, doctorID, clinicID); err != nil {
		return err
	}
	for i := range entries {
		e := &entries[i]
		e.ID = uuid.New()
		e.DoctorID = doctorID
		e.ClinicID = clinicID
		if _, err := c.Exec(ctx, `
			INSERT INTO schedule_entry (id, doctor_id, clinic_id, day, start_time, end_time, max_slots)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			e.ID, e.DoctorID, e.ClinicID, e.Day, e.StartTime, e.EndTime, e.MaxSlots); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) UpdateEntry(ctx context.Context, e *ScheduleEntry) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule_entry SET day=$2, start_time=$3, end_time=$4, max_slots=$5
		WHERE id = $1`,
		e.ID, e.Day, e.StartTime, e.EndTime, e.MaxSlots)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *repoPG) DeleteEntry(ctx context.Context, id, clinicID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM schedule_entry WHERE id = $1 AND clinic_id = $2`, id, clinicID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *repoPG) DeleteEntriesForClinic(ctx context.Context, doctorID, clinicID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM schedule_entry WHERE doctor_id = $1 AND clinic_id = $2`, doctorID, clinicID)
	return err
}

func (r *repoPG) ListByClinic(ctx context.Context, clinicID uuid.UUID, search string, limit, offset int) ([]*Doctor, int, error) {
	base := ` FROM doctor d JOIN doctor_clinic dc ON dc.doctor_id = d.id WHERE dc.clinic_id = $1`
	args := []interface{}{clinicID}
	idx := 2
	if search != "" {
		base += fmt.Sprintf(` AND (d.full_name ILIKE $%d OR d.specialization ILIKE $%d)`, idx, idx)
		args = append(args, "%"+search+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + doctorColsPrefixed + base +
		fmt.Sprintf(` ORDER BY d.full_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)
	return r.listDoctors(ctx, query, args, total)
}

const doctorColsPrefixed = `d.id, d.registration_number, d.full_name, d.email, d.specialization,
	d.medical_degree, d.experience_years, d.phone, d.version, d.created_at, d.updated_at`

func (r *repoPG) Search(ctx context.Context, search, specialization string, limit, offset int) ([]*Doctor, int, error) {
	// Patients only see doctors practicing at a verified clinic.
	base := ` FROM doctor d WHERE EXISTS (
		SELECT 1 FROM doctor_clinic dc JOIN clinic c ON c.id = dc.clinic_id
		WHERE dc.doctor_id = d.id AND c.is_verified = TRUE)`
	var args []interface{}
	idx := 1
	if search != "" {
		base += fmt.Sprintf(` AND d.full_name ILIKE $%d`, idx)
		args = append(args, "%"+search+"%")
		idx++
	}
	if specialization != "" {
		base += fmt.Sprintf(` AND d.specialization = $%d`, idx)
		args = append(args, specialization)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + doctorColsPrefixed + base +
		fmt.Sprintf(` ORDER BY d.full_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)
	return r.listDoctors(ctx, query, args, total)
}

func (r *repoPG) listDoctors(ctx context.Context, query string, args []interface{}, total int) ([]*Doctor, int, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
