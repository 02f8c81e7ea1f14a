package clinic

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/identity"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a clinic record from the signup payload. New clinics are
// unverified until a platform admin approves them. Satisfies
// identity.ClinicRegistrar.
func (s *Service) Register(ctx context.Context, reg identity.ClinicRegistration) (uuid.UUID, error) {
	if reg.Name == "" {
		return uuid.Nil, fmt.Errorf("clinic name is required")
	}
	if reg.City == "" {
		return uuid.Nil, fmt.Errorf("clinic city is required")
	}
	cl := &Clinic{
		Name:       reg.Name,
		Email:      reg.Email,
		AddressOne: reg.AddressOne,
		City:       reg.City,
		State:      reg.State,
		Pincode:    reg.Pincode,
		Phone:      reg.Phone,
		Latitude:   reg.Latitude,
		Longitude:  reg.Longitude,
		IsVerified: false,
	}
	if reg.AddressTwo != "" {
		cl.AddressTwo = &reg.AddressTwo
	}
	if err := s.repo.Create(ctx, cl); err != nil {
		return uuid.Nil, err
	}
	return cl.ID, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.repo.GetByID(ctx, id)
}

// GetVerified returns the clinic only when patient-visible.
func (s *Service) GetVerified(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	cl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cl.IsVerified {
		return nil, ErrNotFound
	}
	return cl, nil
}

// UpdateInput carries the clinic-editable fields. Empty fields keep their
// stored values.
type UpdateInput struct {
	Name       string
	AddressOne string
	AddressTwo string
	City       string
	State      string
	Pincode    string
	Phone      string
	Latitude   *float64
	Longitude  *float64
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Clinic, error) {
	cl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		cl.Name = in.Name
	}
	if in.AddressOne != "" {
		cl.AddressOne = in.AddressOne
	}
	if in.AddressTwo != "" {
		cl.AddressTwo = &in.AddressTwo
	}
	if in.City != "" {
		cl.City = in.City
	}
	if in.State != "" {
		cl.State = in.State
	}
	if in.Pincode != "" {
		cl.Pincode = in.Pincode
	}
	if in.Phone != "" {
		cl.Phone = in.Phone
	}
	if in.Latitude != nil {
		cl.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		cl.Longitude = in.Longitude
	}
	if err := s.repo.Update(ctx, cl); err != nil {
		return nil, err
	}
	return cl, nil
}

func (s *Service) Search(ctx context.Context, search, city string, limit, offset int) ([]*Clinic, int, error) {
	return s.repo.ListVerified(ctx, search, city, limit, offset)
}

// SearchLabClinics returns verified clinics that offer lab tests, for
// patients booking a test rather than a doctor.
func (s *Service) SearchLabClinics(ctx context.Context, search, city string, limit, offset int) ([]*Clinic, int, error) {
	return s.repo.ListWithLabTests(ctx, search, city, limit, offset)
}

func (s *Service) Cities(ctx context.Context) ([]string, error) {
	return s.repo.Cities(ctx)
}

func (s *Service) ListUnverified(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	return s.repo.ListUnverified(ctx, limit, offset)
}

func (s *Service) Verify(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetVerified(ctx, id, true)
}
