package admin

import (
	"context"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Settings(ctx context.Context) (*CommissionSettings, error) {
	return s.repo.Get(ctx)
}

// UpdateInput carries the editable commission fields. Nil fields keep their
// stored values.
type UpdateInput struct {
	PlatformFee   *float64
	BookingPct    *float64
	LabBookingPct *float64
}

func (s *Service) UpdateSettings(ctx context.Context, in UpdateInput) (*CommissionSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if in.PlatformFee != nil {
		if *in.PlatformFee < 0 {
			return nil, fmt.Errorf("platform fee must not be negative")
		}
		settings.PlatformFee = *in.PlatformFee
	}
	if in.BookingPct != nil {
		if *in.BookingPct < 0 || *in.BookingPct > 100 {
			return nil, fmt.Errorf("booking commission must be between 0 and 100")
		}
		settings.BookingPct = *in.BookingPct
	}
	if in.LabBookingPct != nil {
		if *in.LabBookingPct < 0 || *in.LabBookingPct > 100 {
			return nil, fmt.Errorf("lab booking commission must be between 0 and 100")
		}
		settings.LabBookingPct = *in.LabBookingPct
	}
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Service) AddSpecialization(ctx context.Context, name string) (*CommissionSettings, error) {
	if name == "" {
		return nil, fmt.Errorf("specialization name is required")
	}
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	for _, existing := range settings.Specializations {
		if existing == name {
			return settings, nil
		}
	}
	settings.Specializations = append(settings.Specializations, name)
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Service) RemoveSpecialization(ctx context.Context, name string) (*CommissionSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	kept := settings.Specializations[:0]
	found := false
	for _, existing := range settings.Specializations {
		if existing == name {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return nil, fmt.Errorf("specialization %q not found", name)
	}
	settings.Specializations = kept
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
