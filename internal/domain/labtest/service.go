package labtest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Input carries the catalog fields a clinic submits.
type Input struct {
	Name        string
	Description string
	Price       float64
}

func (in Input) validate() error {
	if in.Name == "" {
		return fmt.Errorf("test name is required")
	}
	if in.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, clinicID uuid.UUID, in Input) (*LabTest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	lt := &LabTest{
		ClinicID:    clinicID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	}
	if err := s.repo.Create(ctx, lt); err != nil {
		return nil, err
	}
	return lt, nil
}

func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, in Input) (*LabTest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	lt := &LabTest{
		ID:          id,
		ClinicID:    clinicID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	}
	if err := s.repo.Update(ctx, lt); err != nil {
		return nil, err
	}
	return lt, nil
}

func (s *Service) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	return s.repo.Delete(ctx, id, clinicID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	return s.repo.GetByID(ctx, id)
}

// Resolve returns the clinic's catalog rows for the chosen ids. Every id
// must resolve; a miss means the patient picked a test the clinic does not
// offer.
func (s *Service) Resolve(ctx context.Context, clinicID uuid.UUID, ids []uuid.UUID) ([]*LabTest, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one test is required")
	}
	tests, err := s.repo.GetMany(ctx, clinicID, ids)
	if err != nil {
		return nil, err
	}
	if len(tests) != len(ids) {
		return nil, ErrNotFound
	}
	return tests, nil
}

func (s *Service) ListByClinic(ctx context.Context, clinicID uuid.UUID, search string, limit, offset int) ([]*LabTest, int, error) {
	return s.repo.ListByClinic(ctx, clinicID, search, limit, offset)
}
