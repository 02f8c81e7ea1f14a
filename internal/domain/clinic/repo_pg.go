package clinic

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

const clinicCols = `id, name, email, address_one, address_two, city, state, pincode,
	phone, latitude, longitude, is_verified, created_at, updated_at`

func (r *repoPG) scanClinic(row pgx.Row) (*Clinic, error) {
	var cl Clinic
	err := row.Scan(&cl.ID, &cl.Name, &cl.Email, &cl.AddressOne, &cl.AddressTwo,
		&cl.City, &cl.State, &cl.Pincode, &cl.Phone, &cl.Latitude, &cl.Longitude,
		&cl.IsVerified, &cl.CreatedAt, &cl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

func (r *repoPG) Create(ctx context.Context, cl *Clinic) error {
	cl.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinic (id, name, email, address_one, address_two, city, state,
			pincode, phone, latitude, longitude, is_verified)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		cl.ID, cl.Name, cl.Email, cl.AddressOne, cl.AddressTwo, cl.City, cl.State,
		cl.Pincode, cl.Phone, cl.Latitude, cl.Longitude, cl.IsVerified)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return r.scanClinic(r.conn(ctx).QueryRow(ctx,
		`SELECT `+clinicCols+` FROM clinic WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, cl *Clinic) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinic SET name=$2, address_one=$3, address_two=$4, city=$5, state=$6,
			pincode=$7, phone=$8, latitude=$9, longitude=$10, updated_at=NOW()
		WHERE id = $1`,
		cl.ID, cl.Name, cl.AddressOne, cl.AddressTwo, cl.City, cl.State,
		cl.Pincode, cl.Phone, cl.Latitude, cl.Longitude)
	return err
}

func (r *repoPG) ListVerified(ctx context.Context, search, city string, limit, offset int) ([]*Clinic, int, error) {
	return r.searchVerified(ctx, ``, search, city, limit, offset)
}

func (r *repoPG) ListWithLabTests(ctx context.Context, search, city string, limit, offset int) ([]*Clinic, int, error) {
	return r.searchVerified(ctx,
		` AND EXISTS (SELECT 1 FROM lab_test WHERE lab_test.clinic_id = clinic.id)`,
		search, city, limit, offset)
}

func (r *repoPG) searchVerified(ctx context.Context, extra, search, city string, limit, offset int) ([]*Clinic, int, error) {
	query := `SELECT ` + clinicCols + ` FROM clinic WHERE is_verified = TRUE` + extra
	countQuery := `SELECT COUNT(*) FROM clinic WHERE is_verified = TRUE` + extra
	var args []interface{}
	idx := 1

	if search != "" {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+search+"%")
		idx++
	}
	if city != "" {
		query += fmt.Sprintf(` AND city = $%d`, idx)
		countQuery += fmt.Sprintf(` AND city = $%d`, idx)
		args = append(args, city)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	return r.list(ctx, query, args, total)
}

func (r *repoPG) ListUnverified(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM clinic WHERE is_verified = FALSE`).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + clinicCols + ` FROM clinic WHERE is_verified = FALSE ORDER BY created_at LIMIT $1 OFFSET $2`
	return r.list(ctx, query, []interface{}{limit, offset}, total)
}

func (r *repoPG) list(ctx context.Context, query string, args []interface{}, total int) ([]*Clinic, int, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Clinic
	for rows.Next() {
		cl, err := r.scanClinic(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cl)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE clinic SET is_verified=$2, updated_at=NOW() WHERE id = $1`, id, verified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Cities(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT DISTINCT city FROM clinic WHERE is_verified = TRUE ORDER BY city`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cities []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}
