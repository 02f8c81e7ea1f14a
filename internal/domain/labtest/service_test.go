package labtest

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	tests map[uuid.UUID]*LabTest
}

func newMockRepo() *mockRepo {
	return &mockRepo{tests: make(map[uuid.UUID]*LabTest)}
}

func (m *mockRepo) Create(ctx context.Context, lt *LabTest) error {
	lt.ID = uuid.New()
	cp := *lt
	m.tests[lt.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	lt, ok := m.tests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *lt
	return &cp, nil
}

func (m *mockRepo) GetMany(ctx context.Context, clinicID uuid.UUID, ids []uuid.UUID) ([]*LabTest, error) {
	var items []*LabTest
	for _, id := range ids {
		lt, ok := m.tests[id]
		if !ok || lt.ClinicID != clinicID {
			continue
		}
		cp := *lt
		items = append(items, &cp)
	}
	return items, nil
}

func (m *mockRepo) Update(ctx context.Context, lt *LabTest) error {
	stored, ok := m.tests[lt.ID]
	if !ok || stored.ClinicID != lt.ClinicID {
		return ErrNotFound
	}
	cp := *lt
	m.tests[lt.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id, clinicID uuid.UUID) error {
	stored, ok := m.tests[id]
	if !ok || stored.ClinicID != clinicID {
		return ErrNotFound
	}
	delete(m.tests, id)
	return nil
}

func (m *mockRepo) ListByClinic(ctx context.Context, clinicID uuid.UUID, search string, limit, offset int) ([]*LabTest, int, error) {
	var items []*LabTest
	for _, lt := range m.tests {
		if lt.ClinicID != clinicID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(lt.Name), strings.ToLower(search)) {
			continue
		}
		cp := *lt
		items = append(items, &cp)
	}
	return items, len(items), nil
}

var (
	clinicA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	clinicB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.Create(context.Background(), clinicA, Input{Price: 100}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := svc.Create(context.Background(), clinicA, Input{Name: "CBC", Price: -1}); err == nil {
		t.Error("expected error for negative price")
	}
	lt, err := svc.Create(context.Background(), clinicA, Input{Name: "CBC", Price: 350})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lt.ClinicID != clinicA {
		t.Errorf("test must belong to the creating clinic, got %v", lt.ClinicID)
	}
}

func TestUpdateScopedToClinic(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	lt, _ := svc.Create(context.Background(), clinicA, Input{Name: "CBC", Price: 350})

	if _, err := svc.Update(context.Background(), clinicB, lt.ID, Input{Name: "CBC", Price: 1}); err != ErrNotFound {
		t.Errorf("foreign clinic must not edit the row, got %v", err)
	}
	updated, err := svc.Update(context.Background(), clinicA, lt.ID, Input{Name: "CBC Panel", Price: 400})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "CBC Panel" || updated.Price != 400 {
		t.Errorf("unexpected update result: %+v", updated)
	}
}

func TestDeleteScopedToClinic(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	lt, _ := svc.Create(context.Background(), clinicA, Input{Name: "CBC", Price: 350})

	if err := svc.Delete(context.Background(), clinicB, lt.ID); err != ErrNotFound {
		t.Errorf("foreign clinic must not delete the row, got %v", err)
	}
	if err := svc.Delete(context.Background(), clinicA, lt.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveRequiresAllIDs(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	a, _ := svc.Create(context.Background(), clinicA, Input{Name: "CBC", Price: 350})
	b, _ := svc.Create(context.Background(), clinicA, Input{Name: "Lipid", Price: 600})
	foreign, _ := svc.Create(context.Background(), clinicB, Input{Name: "TSH", Price: 250})

	tests, err := svc.Resolve(context.Background(), clinicA, []uuid.UUID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tests) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(tests))
	}

	if _, err := svc.Resolve(context.Background(), clinicA, []uuid.UUID{a.ID, foreign.ID}); err == nil {
		t.Error("expected error when an id belongs to another clinic")
	}
	if _, err := svc.Resolve(context.Background(), clinicA, nil); err == nil {
		t.Error("expected error for empty selection")
	}
}
