package doctor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/db"
)

type linkKey struct{ doctor, clinic uuid.UUID }

type mockRepo struct {
	doctors map[uuid.UUID]*Doctor
	links   map[linkKey]*ClinicLink
	entries map[uuid.UUID]*ScheduleEntry
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		doctors: make(map[uuid.UUID]*Doctor),
		links:   make(map[linkKey]*ClinicLink),
		entries: make(map[uuid.UUID]*ScheduleEntry),
	}
}

func (m *mockRepo) Create(ctx context.Context, d *Doctor) error {
	for _, existing := range m.doctors {
		if existing.RegistrationNumber == d.RegistrationNumber {
			return ErrDuplicateRegNo
		}
	}
	d.ID = uuid.New()
	d.Version = 1
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) GetByRegistrationNumber(ctx context.Context, regNo string) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.RegistrationNumber == regNo {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(ctx context.Context, d *Doctor) error {
	stored, ok := m.doctors[d.ID]
	if !ok {
		return ErrNotFound
	}
	version := stored.Version
	cp := *d
	cp.Version = version
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.doctors, id)
	for k := range m.links {
		if k.doctor == id {
			delete(m.links, k)
		}
	}
	for eid, e := range m.entries {
		if e.DoctorID == id {
			delete(m.entries, eid)
		}
	}
	return nil
}

func (m *mockRepo) BumpVersion(ctx context.Context, id uuid.UUID, fromVersion int) error {
	d, ok := m.doctors[id]
	if !ok {
		return ErrNotFound
	}
	if d.Version != fromVersion {
		return ErrVersionConflict
	}
	d.Version++
	return nil
}

func (m *mockRepo) LinkClinic(ctx context.Context, link *ClinicLink) error {
	cp := *link
	m.links[linkKey{link.DoctorID, link.ClinicID}] = &cp
	return nil
}

func (m *mockRepo) UnlinkClinic(ctx context.Context, doctorID, clinicID uuid.UUID) error {
	delete(m.links, linkKey{doctorID, clinicID})
	return nil
}

func (m *mockRepo) GetLink(ctx context.Context, doctorID, clinicID uuid.UUID) (*ClinicLink, error) {
	link, ok := m.links[linkKey{doctorID, clinicID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *link
	return &cp, nil
}

func (m *mockRepo) SetFee(ctx context.Context, doctorID, clinicID uuid.UUID, fee float64) error {
	link, ok := m.links[linkKey{doctorID, clinicID}]
	if !ok {
		return ErrNotFound
	}
	link.Fee = fee
	return nil
}

func (m *mockRepo) CountClinics(ctx context.Context, doctorID uuid.UUID) (int, error) {
	count := 0
	for k := range m.links {
		if k.doctor == doctorID {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) ListEntries(ctx context.Context, doctorID uuid.UUID) ([]ScheduleEntry, error) {
	var entries []ScheduleEntry
	for _, e := range m.entries {
		if e.DoctorID == doctorID {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

func (m *mockRepo) ListEntriesForClinic(ctx context.Context, doctorID, clinicID uuid.UUID) ([]ScheduleEntry, error) {
	var entries []ScheduleEntry
	for _, e := range m.entries {
		if e.DoctorID == doctorID && e.ClinicID == clinicID {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

func (m *mockRepo) GetEntry(ctx context.Context, id uuid.UUID) (*ScheduleEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockRepo) ReplaceEntries(ctx context.Context, doctorID, clinicID uuid.UUID, entries []ScheduleEntry) error {
	for id, e := range m.entries {
		if e.DoctorID == doctorID && e.ClinicID == clinicID {
			delete(m.entries, id)
		}
	}
	for i := range entries {
		e := entries[i]
		e.ID = uuid.New()
		e.DoctorID = doctorID
		e.ClinicID = clinicID
		m.entries[e.ID] = &e
	}
	return nil
}

func (m *mockRepo) UpdateEntry(ctx context.Context, e *ScheduleEntry) error {
	if _, ok := m.entries[e.ID]; !ok {
		return ErrEntryNotFound
	}
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *mockRepo) DeleteEntry(ctx context.Context, id, clinicID uuid.UUID) error {
	e, ok := m.entries[id]
	if !ok || e.ClinicID != clinicID {
		return ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *mockRepo) DeleteEntriesForClinic(ctx context.Context, doctorID, clinicID uuid.UUID) error {
	for id, e := range m.entries {
		if e.DoctorID == doctorID && e.ClinicID == clinicID {
			delete(m.entries, id)
		}
	}
	return nil
}

func (m *mockRepo) ListByClinic(ctx context.Context, clinicID uuid.UUID, search string, limit, offset int) ([]*Doctor, int, error) {
	var items []*Doctor
	for k, link := range m.links {
		if link.ClinicID != clinicID {
			continue
		}
		d := m.doctors[k.doctor]
		if search != "" && !strings.Contains(strings.ToLower(d.FullName), strings.ToLower(search)) {
			continue
		}
		cp := *d
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockRepo) Search(ctx context.Context, search, specialization string, limit, offset int) ([]*Doctor, int, error) {
	var items []*Doctor
	for _, d := range m.doctors {
		if specialization != "" && d.Specialization != specialization {
			continue
		}
		cp := *d
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, db.PassthroughTxRunner())
}

func upsertInput(entries ...ScheduleEntry) UpsertInput {
	return UpsertInput{
		RegistrationNumber: "MH-12345",
		FullName:           "Dr. Mehta",
		Specialization:     "Cardiology",
		Fee:                500,
		Entries:            entries,
	}
}

func TestUpsertCreatesDoctorWithSchedule(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	d, err := svc.UpsertForClinic(context.Background(), clinicA,
		upsertInput(entry(clinicA, "Monday", "09:00", "12:00")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID == uuid.Nil {
		t.Fatal("expected a persisted doctor")
	}
	entries, _ := repo.ListEntriesForClinic(context.Background(), d.ID, clinicA)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if _, err := repo.GetLink(context.Background(), d.ID, clinicA); err != nil {
		t.Errorf("expected clinic link: %v", err)
	}
}

func TestUpsertLinksExistingDoctor(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	first, err := svc.UpsertForClinic(context.Background(), clinicA,
		upsertInput(entry(clinicA, "Monday", "09:00", "12:00")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := svc.UpsertForClinic(context.Background(), clinicB,
		upsertInput(entry(clinicB, "Tuesday", "09:00", "12:00")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Error("same registration number must resolve to the same doctor")
	}
	count, _ := repo.CountClinics(context.Background(), first.ID)
	if count != 2 {
		t.Errorf("expected 2 clinic links, got %d", count)
	}
}

func TestUpsertRejectsCrossClinicConflict(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	d, err := svc.UpsertForClinic(context.Background(), clinicA,
		upsertInput(entry(clinicA, "Monday", "09:00", "12:00")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.UpsertForClinic(context.Background(), clinicB,
		upsertInput(entry(clinicB, "Monday", "10:00", "11:00")))
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Monday from 09:00 to 12:00") {
		t.Errorf("conflict must name the existing window, got %q", err.Error())
	}

	// No partial mutation: clinic B must have neither link nor entries.
	if _, err := repo.GetLink(context.Background(), d.ID, clinicB); err != ErrNotFound {
		t.Error("conflicting upsert must not leave a clinic link")
	}
	entries, _ := repo.ListEntriesForClinic(context.Background(), d.ID, clinicB)
	if len(entries) != 0 {
		t.Errorf("conflicting upsert must not persist entries, got %d", len(entries))
	}
}

func TestReplaceScheduleValidatesBatch(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	d, _ := svc.UpsertForClinic(context.Background(), clinicA,
		upsertInput(entry(clinicA, "Monday", "09:00", "12:00")))

	err := svc.ReplaceSchedule(context.Background(), clinicA, d.ID, []ScheduleEntry{
		entry(clinicA, "Wednesday", "12:00", "09:00"),
	})
	if err == nil {
		t.Fatal("expected validation error for inverted window")
	}
	// Original schedule untouched.
	entries, _ := repo.ListEntriesForClinic(context.Background(), d.ID, clinicA)
	if len(entries) != 1 || entries[0].Day != "Monday" {
		t.Errorf("failed replace must keep the old schedule, got %+v", entries)
	}
}

func TestReplaceScheduleSameClinicOverlapAllowed(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	d, _ := svc.UpsertForClinic(context.Background(), clinicA,
		upsertInput(entry(clinicA, "Monday", "09:00", "12:00")))

	// Replacing within the same clinic never conflicts with the clinic's
	// own rows, which are about to be dropped.
	err := svc.ReplaceSchedule(context.Background(), clinicA, d.ID, []ScheduleEntry{
		entry(clinicA, "Monday", "10:00", "11:00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, _ := repo.ListEntriesForClinic(context.Background(), d.ID, clinicA)
	if len(entries) != 1 || entries[0].StartTime != "10:00" {
		t.Errorf("unexpected schedule after replace: %+v", entries)
	}
}

func TestEditEntryMergedValidation(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	d, _ := svc.UpsertForClinic(context.Background(), clinicA,
		upsertInput(entry(clinicA, "Monday", "09:00", "12:00")))
	entries, _ := repo.ListEntriesForClinic(context.Background(), d.ID, clinicA)
	entryID := entries[0].ID

	// Patching only the start past the stored end must fail on the merged
	// window, not pass because the patch alone looks fine.
	late := "14:00"
	if _, err := svc.EditEntry(context.Background(), clinicA, entryID, EntryPatch{StartTime: &late}); err == nil {
		t.Fatal("expected validation error for inverted merged window")
	}

	early := "08:00"
	updated, err := svc.EditEntry(context.Background(), clinicA, entryID, EntryPatch{StartTime: &early})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.StartTime != "08:00" || updated.EndTime != "12:00" {
		t.Errorf("unexpected merged entry: %+v", updated)
	}
}

func TestEditEntryCrossClinicConflict(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	d, _ := svc.UpsertForClinic(context.Background(), clinicA,
		upsertInput(entry(clinicA, "Monday", "09:00", "12:00")))
	if _, err := svc.UpsertForClinic(context.Background(), clinicB,
		upsertInput(entry(clinicB, "Tuesday", "09:00", "12:00"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, _ := repo.ListEntriesForClinic(context.Background(), d.ID, clinicB)
	entryID := entries[0].ID

	monday := "Monday"
	_, err := svc.EditEntry(context.Background(), clinicB, entryID, EntryPatch{Day: &monday})
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestEditEntryWrongClinic(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	d, _ := svc.UpsertForClinic(context.Background(), clinicA,
		upsertInput(entry(clinicA, "Monday", "09:00", "12:00")))
	entries, _ := repo.ListEntriesForClinic(context.Background(), d.ID, clinicA)

	day := "Friday"
	if _, err := svc.EditEntry(context.Background(), clinicB, entries[0].ID, EntryPatch{Day: &day}); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound for foreign clinic, got %v", err)
	}
}

func TestDeleteEntryLeavesOthers(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	d, _ := svc.UpsertForClinic(context.Background(), clinicA, upsertInput(
		entry(clinicA, "Monday", "09:00", "12:00"),
		entry(clinicA, "Wednesday", "09:00", "12:00"),
	))
	entries, _ := repo.ListEntriesForClinic(context.Background(), d.ID, clinicA)

	if err := svc.DeleteEntry(context.Background(), clinicA, entries[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	remaining, _ := repo.ListEntriesForClinic(context.Background(), d.ID, clinicA)
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", len(remaining))
	}

	// Deleting the last entry leaves no windows but keeps the clinic link.
	if err := svc.DeleteEntry(context.Background(), clinicA, remaining[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final, _ := repo.ListEntriesForClinic(context.Background(), d.ID, clinicA)
	if len(final) != 0 {
		t.Errorf("expected no entries, got %d", len(final))
	}
	if _, err := repo.GetLink(context.Background(), d.ID, clinicA); err != nil {
		t.Errorf("clinic link must survive entry deletion: %v", err)
	}
}

func TestRemoveFromClinic(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	d, _ := svc.UpsertForClinic(context.Background(), clinicA,
		upsertInput(entry(clinicA, "Monday", "09:00", "12:00")))
	svc.UpsertForClinic(context.Background(), clinicB,
		upsertInput(entry(clinicB, "Tuesday", "09:00", "12:00")))

	// Two clinics: removing one keeps the doctor and the other link.
	if err := svc.RemoveFromClinic(context.Background(), clinicA, d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), d.ID); err != nil {
		t.Fatal("doctor must survive while other clinics remain")
	}
	if entries, _ := repo.ListEntriesForClinic(context.Background(), d.ID, clinicA); len(entries) != 0 {
		t.Error("removed clinic's entries must be gone")
	}

	// Last clinic: the record goes with it.
	if err := svc.RemoveFromClinic(context.Background(), clinicB, d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected doctor deleted with last clinic, got %v", err)
	}
}

func TestScheduleMutationVersionConflict(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	d, _ := svc.UpsertForClinic(context.Background(), clinicA,
		upsertInput(entry(clinicA, "Monday", "09:00", "12:00")))

	stale, _ := repo.GetByID(context.Background(), d.ID)

	// A concurrent mutation advances the version; the stale holder loses.
	if err := repo.BumpVersion(context.Background(), d.ID, stale.Version); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.BumpVersion(context.Background(), d.ID, stale.Version); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict on stale token, got %v", err)
	}

	// A mutation reading current state still goes through.
	if err := svc.ReplaceSchedule(context.Background(), clinicA, d.ID, []ScheduleEntry{
		entry(clinicA, "Friday", "09:00", "10:00"),
	}); err != nil {
		t.Errorf("fresh mutation must succeed: %v", err)
	}
}

func TestUpdateForClinicFee(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	d, _ := svc.UpsertForClinic(context.Background(), clinicA,
		upsertInput(entry(clinicA, "Monday", "09:00", "12:00")))

	fee := 750.0
	if _, err := svc.UpdateForClinic(context.Background(), clinicA, d.ID, UpdateInput{Fee: &fee}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := svc.Fee(context.Background(), d.ID, clinicA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 750 {
		t.Errorf("expected fee 750, got %v", got)
	}

	bad := -5.0
	if _, err := svc.UpdateForClinic(context.Background(), clinicA, d.ID, UpdateInput{Fee: &bad}); err == nil {
		t.Error("expected error for negative fee")
	}
}
