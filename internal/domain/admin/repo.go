package admin

import "context"

type Repository interface {
	// Get returns the settings row, or defaults when none was saved yet.
	Get(ctx context.Context) (*CommissionSettings, error)
	Save(ctx context.Context, s *CommissionSettings) error
}
