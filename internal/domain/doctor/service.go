package doctor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/db"
)

type Service struct {
	repo Repository
	tx   db.TxRunner
}

func NewService(repo Repository, tx db.TxRunner) *Service {
	return &Service{repo: repo, tx: tx}
}

// UpsertInput carries everything a clinic submits when adding a doctor:
// the doctor's identity, the clinic's fee and the clinic's schedule for them.
type UpsertInput struct {
	RegistrationNumber string
	FullName           string
	Email              string
	Specialization     string
	MedicalDegree      string
	ExperienceYears    int
	Phone              string
	Fee                float64
	Entries            []ScheduleEntry
}

// UpsertForClinic adds a doctor to the clinic. If the registration number is
// already known the existing record is linked; otherwise a new doctor is
// created. The clinic's schedule entries are validated and checked against
// every other clinic's entries before anything is written. The whole
// mutation runs under the doctor's version token, so a concurrent schedule
// change at another clinic surfaces as ErrVersionConflict rather than a
// lost update.
func (s *Service) UpsertForClinic(ctx context.Context, clinicID uuid.UUID, in UpsertInput) (*Doctor, error) {
	if in.RegistrationNumber == "" {
		return nil, fmt.Errorf("registration number is required")
	}
	if in.Fee < 0 {
		return nil, fmt.Errorf("fee must not be negative")
	}

	var result *Doctor
	err := s.tx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByRegistrationNumber(ctx, in.RegistrationNumber)
		if err != nil && err != ErrNotFound {
			return err
		}

		if d == nil {
			if in.FullName == "" {
				return fmt.Errorf("full name is required")
			}
			d = &Doctor{
				RegistrationNumber: in.RegistrationNumber,
				FullName:           in.FullName,
				Email:              in.Email,
				Specialization:     in.Specialization,
				MedicalDegree:      in.MedicalDegree,
				ExperienceYears:    in.ExperienceYears,
				Phone:              in.Phone,
			}
			if err := s.repo.Create(ctx, d); err != nil {
				return err
			}
		}

		for i := range in.Entries {
			in.Entries[i].DoctorID = d.ID
			in.Entries[i].ClinicID = clinicID
		}
		existing, err := s.repo.ListEntries(ctx, d.ID)
		if err != nil {
			return err
		}
		if err := CheckEntries(existing, in.Entries); err != nil {
			return err
		}

		if err := s.repo.BumpVersion(ctx, d.ID, d.Version); err != nil {
			return err
		}
		if err := s.repo.LinkClinic(ctx, &ClinicLink{DoctorID: d.ID, ClinicID: clinicID, Fee: in.Fee}); err != nil {
			return err
		}
		if err := s.repo.ReplaceEntries(ctx, d.ID, clinicID, in.Entries); err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReplaceSchedule swaps the clinic's entries for the doctor wholesale.
func (s *Service) ReplaceSchedule(ctx context.Context, clinicID, doctorID uuid.UUID, entries []ScheduleEntry) error {
	return s.tx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, doctorID)
		if err != nil {
			return err
		}
		if _, err := s.repo.GetLink(ctx, doctorID, clinicID); err != nil {
			return err
		}

		for i := range entries {
			entries[i].DoctorID = doctorID
			entries[i].ClinicID = clinicID
		}
		existing, err := s.repo.ListEntries(ctx, doctorID)
		if err != nil {
			return err
		}
		if err := CheckEntries(existing, entries); err != nil {
			return err
		}

		if err := s.repo.BumpVersion(ctx, doctorID, d.Version); err != nil {
			return err
		}
		return s.repo.ReplaceEntries(ctx, doctorID, clinicID, entries)
	})
}

// EditEntry applies a partial edit to one of the clinic's entries.
// Validation and conflict checks run against the merged result.
func (s *Service) EditEntry(ctx context.Context, clinicID, entryID uuid.UUID, patch EntryPatch) (*ScheduleEntry, error) {
	var merged ScheduleEntry
	err := s.tx(ctx, func(ctx context.Context) error {
		stored, err := s.repo.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if stored.ClinicID != clinicID {
			return ErrEntryNotFound
		}
		d, err := s.repo.GetByID(ctx, stored.DoctorID)
		if err != nil {
			return err
		}

		merged = ApplyPatch(*stored, patch)
		if err := ValidateEntry(merged); err != nil {
			return err
		}
		existing, err := s.repo.ListEntries(ctx, stored.DoctorID)
		if err != nil {
			return err
		}
		// The entry being edited must not conflict with itself.
		others := make([]ScheduleEntry, 0, len(existing))
		for _, e := range existing {
			if e.ID != entryID {
				others = append(others, e)
			}
		}
		hit, err := FindConflict(others, merged)
		if err != nil {
			return err
		}
		if hit != nil {
			return &ConflictError{Entry: *hit}
		}

		if err := s.repo.BumpVersion(ctx, d.ID, d.Version); err != nil {
			return err
		}
		return s.repo.UpdateEntry(ctx, &merged)
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

// DeleteEntry removes one of the clinic's entries. The clinic link itself
// stays; a doctor with no remaining entries simply has no bookable windows.
func (s *Service) DeleteEntry(ctx context.Context, clinicID, entryID uuid.UUID) error {
	return s.tx(ctx, func(ctx context.Context) error {
		stored, err := s.repo.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if stored.ClinicID != clinicID {
			return ErrEntryNotFound
		}
		d, err := s.repo.GetByID(ctx, stored.DoctorID)
		if err != nil {
			return err
		}
		if err := s.repo.BumpVersion(ctx, d.ID, d.Version); err != nil {
			return err
		}
		return s.repo.DeleteEntry(ctx, entryID, clinicID)
	})
}

// RemoveFromClinic detaches the doctor from the clinic. When this was the
// doctor's only clinic the record itself is deleted; otherwise only the
// clinic's link and entries go.
func (s *Service) RemoveFromClinic(ctx context.Context, clinicID, doctorID uuid.UUID) error {
	return s.tx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, doctorID)
		if err != nil {
			return err
		}
		if _, err := s.repo.GetLink(ctx, doctorID, clinicID); err != nil {
			return err
		}
		count, err := s.repo.CountClinics(ctx, doctorID)
		if err != nil {
			return err
		}

		if count <= 1 {
			return s.repo.Delete(ctx, doctorID)
		}
		if err := s.repo.BumpVersion(ctx, doctorID, d.Version); err != nil {
			return err
		}
		if err := s.repo.DeleteEntriesForClinic(ctx, doctorID, clinicID); err != nil {
			return err
		}
		return s.repo.UnlinkClinic(ctx, doctorID, clinicID)
	})
}

// UpdateInput carries the editable doctor identity fields. Empty fields keep
// their stored values.
type UpdateInput struct {
	FullName        string
	Email           string
	Specialization  string
	MedicalDegree   string
	ExperienceYears *int
	Phone           string
	Fee             *float64
}

// UpdateForClinic edits the doctor's shared identity fields and the clinic's
// fee for them.
func (s *Service) UpdateForClinic(ctx context.Context, clinicID, doctorID uuid.UUID, in UpdateInput) (*Doctor, error) {
	var result *Doctor
	err := s.tx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, doctorID)
		if err != nil {
			return err
		}
		if _, err := s.repo.GetLink(ctx, doctorID, clinicID); err != nil {
			return err
		}
		if in.FullName != "" {
			d.FullName = in.FullName
		}
		if in.Email != "" {
			d.Email = in.Email
		}
		if in.Specialization != "" {
			d.Specialization = in.Specialization
		}
		if in.MedicalDegree != "" {
			d.MedicalDegree = in.MedicalDegree
		}
		if in.ExperienceYears != nil {
			d.ExperienceYears = *in.ExperienceYears
		}
		if in.Phone != "" {
			d.Phone = in.Phone
		}
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		if in.Fee != nil {
			if *in.Fee < 0 {
				return fmt.Errorf("fee must not be negative")
			}
			if err := s.repo.SetFee(ctx, doctorID, clinicID, *in.Fee); err != nil {
				return err
			}
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByRegistrationNumber(ctx context.Context, regNo string) (*Doctor, error) {
	return s.repo.GetByRegistrationNumber(ctx, regNo)
}

func (s *Service) ListByClinic(ctx context.Context, clinicID uuid.UUID, search string, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.ListByClinic(ctx, clinicID, search, limit, offset)
}

func (s *Service) Search(ctx context.Context, search, specialization string, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.Search(ctx, search, specialization, limit, offset)
}

// Schedule returns the clinic's entries for the doctor, used for the
// patient-facing availability view and the clinic's schedule editor.
func (s *Service) Schedule(ctx context.Context, doctorID, clinicID uuid.UUID) ([]ScheduleEntry, error) {
	if _, err := s.repo.GetLink(ctx, doctorID, clinicID); err != nil {
		return nil, err
	}
	return s.repo.ListEntriesForClinic(ctx, doctorID, clinicID)
}

// Fee returns the clinic's consultation fee for the doctor.
func (s *Service) Fee(ctx context.Context, doctorID, clinicID uuid.UUID) (float64, error) {
	link, err := s.repo.GetLink(ctx, doctorID, clinicID)
	if err != nil {
		return 0, err
	}
	return link.Fee, nil
}
