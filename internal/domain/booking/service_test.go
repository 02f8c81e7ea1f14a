package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/admin"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/clinic"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/doctor"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/labtest"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/db"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/payments"
)

type mockRepo struct {
	mu     sync.Mutex
	appts  []*Appointment
	labs   []*LabAppointment
	events map[string]bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{events: map[string]bool{}}
}

func (m *mockRepo) slotCount(clinicID, doctorID uuid.UUID, date, start, end string) int {
	count := 0
	for _, a := range m.appts {
		if a.ClinicID == clinicID && a.DoctorID == doctorID &&
			a.AppointmentDate == date && a.StartTime == start && a.EndTime == end {
			count++
		}
	}
	return count
}

func (m *mockRepo) CountBooked(_ context.Context, clinicID, doctorID uuid.UUID, date, start, end string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slotCount(clinicID, doctorID, date, start, end), nil
}

func (m *mockRepo) Insert(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.appts = append(m.appts, a)
	return nil
}

func (m *mockRepo) InsertGuarded(_ context.Context, a *Appointment, maxSlots int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slotCount(a.ClinicID, a.DoctorID, a.AppointmentDate, a.StartTime, a.EndTime) >= maxSlots {
		return ErrSlotFull
	}
	a.ID = uuid.New()
	m.appts = append(m.appts, a)
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Appointment
	for _, a := range m.appts {
		if a.CreatedBy == userID {
			items = append(items, a)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) ListByClinic(_ context.Context, clinicID uuid.UUID, _, _ int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Appointment
	for _, a := range m.appts {
		if a.ClinicID == clinicID {
			items = append(items, a)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) InsertLab(_ context.Context, a *LabAppointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.labs = append(m.labs, a)
	return nil
}

func (m *mockRepo) ListLabByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*LabAppointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*LabAppointment
	for _, a := range m.labs {
		if a.CreatedBy == userID {
			items = append(items, a)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) ListLabByClinic(_ context.Context, clinicID uuid.UUID, _, _ int) ([]*LabAppointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*LabAppointment
	for _, a := range m.labs {
		if a.ClinicID == clinicID {
			items = append(items, a)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) InsertEvent(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events[eventID] {
		return ErrDuplicateEvent
	}
	m.events[eventID] = true
	return nil
}

type stubDoctors struct {
	doc     *doctor.Doctor
	fee     float64
	entries []doctor.ScheduleEntry
}

func (s *stubDoctors) Get(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	if s.doc == nil || s.doc.ID != id {
		return nil, doctor.ErrNotFound
	}
	return s.doc, nil
}

func (s *stubDoctors) Fee(_ context.Context, _, _ uuid.UUID) (float64, error) {
	return s.fee, nil
}

func (s *stubDoctors) Schedule(_ context.Context, _, _ uuid.UUID) ([]doctor.ScheduleEntry, error) {
	return s.entries, nil
}

type stubClinics struct {
	cl *clinic.Clinic
}

func (s *stubClinics) GetVerified(_ context.Context, id uuid.UUID) (*clinic.Clinic, error) {
	if s.cl == nil || s.cl.ID != id {
		return nil, clinic.ErrNotFound
	}
	return s.cl, nil
}

type stubTests struct {
	tests []*labtest.LabTest
}

func (s *stubTests) Resolve(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]*labtest.LabTest, error) {
	if len(ids) != len(s.tests) {
		return nil, labtest.ErrNotFound
	}
	return s.tests, nil
}

type stubCommissions struct {
	settings admin.CommissionSettings
}

func (s *stubCommissions) Settings(_ context.Context) (*admin.CommissionSettings, error) {
	cp := s.settings
	return &cp, nil
}

type fakeGateway struct {
	mu     sync.Mutex
	orders int
	notes  map[string]interface{}
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, _ string, notes map[string]interface{}) (*payments.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders++
	g.notes = notes
	return &payments.Order{ID: "order_test", Amount: amount, Currency: currency}, nil
}

func (g *fakeGateway) VerifyWebhookSignature(_ []byte, signature, _ string) bool {
	return signature == "valid"
}

var (
	testUserID   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testDoctorID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	testClinicID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

// 01-09-2025 is a Monday.
const testDate = "01-09-2025"

func testFixture() (*Service, *mockRepo, *fakeGateway) {
	repo := newMockRepo()
	gw := &fakeGateway{}
	doctors := &stubDoctors{
		doc: &doctor.Doctor{ID: testDoctorID, FullName: "Dr. Rana", Specialization: "Cardiology"},
		fee: 500,
		entries: []doctor.ScheduleEntry{
			{ID: uuid.New(), DoctorID: testDoctorID, ClinicID: testClinicID,
				Day: "Monday", StartTime: "10:00", EndTime: "11:00", MaxSlots: 2},
		},
	}
	clinics := &stubClinics{
		cl: &clinic.Clinic{ID: testClinicID, Name: "City Care", City: "Guwahati",
			Email: "clinic@example.com", IsVerified: true},
	}
	tests := &stubTests{
		tests: []*labtest.LabTest{
			{ID: uuid.New(), ClinicID: testClinicID, Name: "CBC", Description: "Complete blood count", Price: 300},
			{ID: uuid.New(), ClinicID: testClinicID, Name: "Lipid Profile", Description: "Cholesterol panel", Price: 700},
		},
	}
	commissions := &stubCommissions{settings: admin.CommissionSettings{PlatformFee: 10, BookingPct: 5, LabBookingPct: 5}}
	svc := NewService(repo, db.PassthroughTxRunner(), doctors, clinics, tests, commissions,
		gw, nil, "rzp_test_key", "admin@example.com", zerolog.Nop())
	return svc, repo, gw
}

func patient() PatientInput {
	return PatientInput{Name: "Anita", Age: 34, Gender: "female", Phone: "+919876543210"}
}

func apptInput() AppointmentInput {
	return AppointmentInput{
		DoctorID:        testDoctorID,
		ClinicID:        testClinicID,
		AppointmentDate: testDate,
		StartTime:       "10:00",
		EndTime:         "11:00",
		Patient:         patient(),
	}
}

func stringNotes(gw *fakeGateway) map[string]string {
	out := make(map[string]string, len(gw.notes))
	for k, v := range gw.notes {
		out[k] = v.(string)
	}
	return out
}

func captured(eventID string, gw *fakeGateway) CapturedPayment {
	return CapturedPayment{
		EventID:   eventID,
		PaymentID: "pay_test",
		OrderID:   "order_test",
		Notes:     stringNotes(gw),
	}
}

func TestCreateAppointmentOrder(t *testing.T) {
	svc, repo, gw := testFixture()

	order, err := svc.CreateAppointmentOrder(context.Background(), testUserID, apptInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.OrderID != "order_test" {
		t.Fatalf("order id = %q", order.OrderID)
	}
	if order.Amount != 51000 { // (500 fee + 10 platform fee) in paise
		t.Fatalf("amount = %d, want 51000", order.Amount)
	}
	if order.KeyID != "rzp_test_key" {
		t.Fatalf("key id = %q", order.KeyID)
	}
	if len(repo.appts) != 0 {
		t.Fatalf("order creation must not persist an appointment, got %d", len(repo.appts))
	}

	notes := stringNotes(gw)
	if notes["day"] != "Monday" || notes["max_slots"] != "2" || notes["doctor_name"] != "Dr. Rana" {
		t.Fatalf("unexpected notes: %v", notes)
	}
}

func TestCreateAppointmentOrderRejectsBadInput(t *testing.T) {
	svc, _, _ := testFixture()

	in := apptInput()
	in.AppointmentDate = "2025-09-01"
	if _, err := svc.CreateAppointmentOrder(context.Background(), testUserID, in); err == nil {
		t.Fatal("expected error for yyyy-mm-dd date")
	}

	in = apptInput()
	in.AppointmentDate = "31-02-2025"
	if _, err := svc.CreateAppointmentOrder(context.Background(), testUserID, in); err == nil {
		t.Fatal("expected error for nonexistent date")
	}

	in = apptInput()
	in.Patient.Phone = "9876543210"
	if _, err := svc.CreateAppointmentOrder(context.Background(), testUserID, in); err == nil {
		t.Fatal("expected error for phone without country code")
	}
}

func TestCreateAppointmentOrderRejectsUnknownSlot(t *testing.T) {
	svc, _, _ := testFixture()

	// 02-09-2025 is a Tuesday; the doctor only sits on Mondays.
	in := apptInput()
	in.AppointmentDate = "02-09-2025"
	if _, err := svc.CreateAppointmentOrder(context.Background(), testUserID, in); err == nil {
		t.Fatal("expected error for a day with no schedule entry")
	}

	in = apptInput()
	in.StartTime = "14:00"
	in.EndTime = "15:00"
	if _, err := svc.CreateAppointmentOrder(context.Background(), testUserID, in); err == nil {
		t.Fatal("expected error for an unlisted time window")
	}
}

func TestCreateAppointmentOrderSlotFull(t *testing.T) {
	svc, repo, _ := testFixture()

	for i := 0; i < 2; i++ {
		repo.appts = append(repo.appts, &Appointment{
			ID: uuid.New(), DoctorID: testDoctorID, ClinicID: testClinicID,
			AppointmentDate: testDate, StartTime: "10:00", EndTime: "11:00",
		})
	}

	_, err := svc.CreateAppointmentOrder(context.Background(), testUserID, apptInput())
	if !errors.Is(err, ErrSlotFull) {
		t.Fatalf("err = %v, want ErrSlotFull", err)
	}
}

func TestConfirmAppointmentPersists(t *testing.T) {
	svc, repo, gw := testFixture()

	if _, err := svc.CreateAppointmentOrder(context.Background(), testUserID, apptInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.ConfirmAppointment(context.Background(), captured("evt_1", gw)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.appts) != 1 {
		t.Fatalf("appointments = %d, want 1", len(repo.appts))
	}
	a := repo.appts[0]
	if a.CreatedBy != testUserID || a.DoctorID != testDoctorID || a.ClinicID != testClinicID {
		t.Fatalf("wrong ids on appointment: %+v", a)
	}
	if a.PaymentStatus != PaymentStatusPaid || a.PaymentID != "pay_test" || a.OrderID != "order_test" {
		t.Fatalf("wrong payment fields: %+v", a)
	}
	if a.DoctorName != "Dr. Rana" || a.ClinicName != "City Care" {
		t.Fatalf("display snapshot missing: %+v", a)
	}
	if a.TotalAmount != 510 || a.Fee != 500 || a.PlatformFee != 10 {
		t.Fatalf("wrong amounts: %+v", a)
	}
}

func TestConfirmAppointmentDeduplicatesRetries(t *testing.T) {
	svc, repo, gw := testFixture()

	if _, err := svc.CreateAppointmentOrder(context.Background(), testUserID, apptInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := captured("evt_retry", gw)
	if err := svc.ConfirmAppointment(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Provider retries deliver the same event id again.
	if err := svc.ConfirmAppointment(context.Background(), ev); err != nil {
		t.Fatalf("replay must be a no-op, got: %v", err)
	}
	if len(repo.appts) != 1 {
		t.Fatalf("appointments = %d after replay, want 1", len(repo.appts))
	}
}

// Concurrent confirmations for the same slot must never exceed the limit,
// which is what the guarded insert is for: a plain count-then-insert lets
// every goroutine pass the check before any of them writes.
func TestConfirmAppointmentConcurrentCapacity(t *testing.T) {
	svc, repo, gw := testFixture()

	if _, err := svc.CreateAppointmentOrder(context.Background(), testUserID, apptInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	notes := stringNotes(gw)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := CapturedPayment{
				EventID:   fmt.Sprintf("evt_race_%d", i),
				PaymentID: "pay_test",
				OrderID:   "order_test",
				Notes:     notes,
			}
			errs[i] = svc.ConfirmAppointment(context.Background(), ev)
		}(i)
	}
	wg.Wait()

	if len(repo.appts) != 2 {
		t.Fatalf("appointments = %d, want exactly max_slots = 2", len(repo.appts))
	}
	full := 0
	for _, err := range errs {
		if errors.Is(err, ErrSlotFull) {
			full++
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if full != attempts-2 {
		t.Fatalf("ErrSlotFull count = %d, want %d", full, attempts-2)
	}
}

// The unguarded insert exists for serialized callers; this shows why the
// webhook path cannot use it: a stale count admits one booking too many.
func TestNaiveInsertOverbooksWhereGuardedRefuses(t *testing.T) {
	_, repo, _ := testFixture()
	ctx := context.Background()

	a := func() *Appointment {
		return &Appointment{DoctorID: testDoctorID, ClinicID: testClinicID,
			AppointmentDate: testDate, StartTime: "10:00", EndTime: "11:00"}
	}

	// Two callers both observe count 0 against a limit of 1, then insert.
	n1, _ := repo.CountBooked(ctx, testClinicID, testDoctorID, testDate, "10:00", "11:00")
	n2, _ := repo.CountBooked(ctx, testClinicID, testDoctorID, testDate, "10:00", "11:00")
	if n1 >= 1 || n2 >= 1 {
		t.Fatalf("precondition: counts %d, %d", n1, n2)
	}
	_ = repo.Insert(ctx, a())
	_ = repo.Insert(ctx, a())
	if len(repo.appts) != 2 {
		t.Fatalf("naive path booked %d, expected the overbooked 2", len(repo.appts))
	}

	repo.appts = nil
	if err := repo.InsertGuarded(ctx, a(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.InsertGuarded(ctx, a(), 1); !errors.Is(err, ErrSlotFull) {
		t.Fatalf("err = %v, want ErrSlotFull", err)
	}
	if len(repo.appts) != 1 {
		t.Fatalf("guarded path booked %d, want 1", len(repo.appts))
	}
}

func TestCreateLabOrder(t *testing.T) {
	svc, _, gw := testFixture()

	in := LabInput{
		ClinicID:        testClinicID,
		TestIDs:         []uuid.UUID{uuid.New(), uuid.New()},
		AppointmentDate: testDate,
		Patient:         patient(),
	}
	order, err := svc.CreateLabOrder(context.Background(), testUserID, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Amount != 101000 { // (300 + 700 + 10 platform fee) in paise
		t.Fatalf("amount = %d, want 101000", order.Amount)
	}

	notes := stringNotes(gw)
	if notes["test_names"] != "CBC, Lipid Profile" {
		t.Fatalf("test_names = %q", notes["test_names"])
	}
	if !strings.Contains(notes["test_fees"], "300.00") || !strings.Contains(notes["test_fees"], "700.00") {
		t.Fatalf("test_fees = %q", notes["test_fees"])
	}
}

func TestCreateLabOrderRequiresResolvableTests(t *testing.T) {
	svc, _, _ := testFixture()

	in := LabInput{
		ClinicID:        testClinicID,
		TestIDs:         []uuid.UUID{uuid.New(), uuid.New(), uuid.New()},
		AppointmentDate: testDate,
		Patient:         patient(),
	}
	if _, err := svc.CreateLabOrder(context.Background(), testUserID, in); !errors.Is(err, labtest.ErrNotFound) {
		t.Fatalf("err = %v, want labtest.ErrNotFound", err)
	}

	in.TestIDs = nil
	if _, err := svc.CreateLabOrder(context.Background(), testUserID, in); err == nil {
		t.Fatal("expected error for empty test selection")
	}
}

func TestConfirmLabBookingPersistsAndDeduplicates(t *testing.T) {
	svc, repo, gw := testFixture()

	in := LabInput{
		ClinicID:        testClinicID,
		TestIDs:         []uuid.UUID{uuid.New(), uuid.New()},
		AppointmentDate: testDate,
		Patient:         patient(),
	}
	if _, err := svc.CreateLabOrder(context.Background(), testUserID, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := captured("evt_lab", gw)
	if err := svc.ConfirmLabBooking(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.ConfirmLabBooking(context.Background(), ev); err != nil {
		t.Fatalf("replay must be a no-op, got: %v", err)
	}

	if len(repo.labs) != 1 {
		t.Fatalf("lab bookings = %d, want 1", len(repo.labs))
	}
	lb := repo.labs[0]
	if lb.TestNames != "CBC, Lipid Profile" || lb.TotalAmount != 1010 {
		t.Fatalf("wrong lab booking: %+v", lb)
	}
	if lb.PaymentStatus != PaymentStatusPaid {
		t.Fatalf("payment status = %q", lb.PaymentStatus)
	}
}
