package admin

import (
	"context"
	"errors"

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

func (r *repoPG) Get(ctx context.Context) (*CommissionSettings, error) {
	var s CommissionSettings
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT platform_fee, booking_pct, lab_booking_pct, specializations, updated_at
		FROM commission_settings WHERE id = 1`).
		Scan(&s.PlatformFee, &s.BookingPct, &s.LabBookingPct, &s.Specializations, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &CommissionSettings{
			PlatformFee:   DefaultPlatformFee,
			BookingPct:    DefaultBookingPct,
			LabBookingPct: DefaultLabBookingPct,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Save(ctx context.Context, s *CommissionSettings) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO commission_settings (id, platform_fee, booking_pct, lab_booking_pct, specializations, updated_at)
		VALUES (1, $1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			platform_fee = EXCLUDED.platform_fee,
			booking_pct = EXCLUDED.booking_pct,
			lab_booking_pct = EXCLUDED.lab_booking_pct,
			specializations = EXCLUDED.specializations,
			updated_at = NOW()`,
		s.PlatformFee, s.BookingPct, s.LabBookingPct, s.Specializations)
	return err
}
