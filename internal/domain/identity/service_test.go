package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/auth"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/db"
)

// inTxKey marks contexts produced by the test transaction runner so mocks
// can tell whether they were called inside the transaction boundary.
type inTxKey struct{}

type txRecorder struct {
	begun int
	errs  []error
}

func (r *txRecorder) run(ctx context.Context, fn func(ctx context.Context) error) error {
	r.begun++
	err := fn(context.WithValue(ctx, inTxKey{}, true))
	r.errs = append(r.errs, err)
	return err
}

type mockRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Account
}

func newMockRepo() *mockRepo {
	return &mockRepo{accounts: make(map[uuid.UUID]*Account)}
}

func (m *mockRepo) Create(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Role == a.Role && existing.Email == a.Email {
			return ErrDuplicateEmail
		}
	}
	a.ID = uuid.New()
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) GetByEmail(ctx context.Context, role, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Role == role && a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *mockRepo) ListByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Account, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Account
	for _, a := range m.accounts {
		if a.Role == RoleClinic && a.ClinicID != nil && *a.ClinicID == clinicID {
			cp := *a
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *mockRepo) SetResetOTP(ctx context.Context, id uuid.UUID, otp string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.ResetOTP = &otp
	a.ResetExpiry = &expiry
	return nil
}

func (m *mockRepo) ClearResetOTP(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.ResetOTP = nil
	a.ResetExpiry = nil
	return nil
}

func (m *mockRepo) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = hash
	a.ResetOTP = nil
	a.ResetExpiry = nil
	return nil
}

type mockMailer struct {
	mu    sync.Mutex
	sends [][]string
}

func (m *mockMailer) Send(to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, to)
	return nil
}

type mockRegistrar struct {
	id      uuid.UUID
	calls   int
	sawInTx bool
}

func (m *mockRegistrar) Register(ctx context.Context, reg ClinicRegistration) (uuid.UUID, error) {
	m.calls++
	m.sawInTx, _ = ctx.Value(inTxKey{}).(bool)
	return m.id, nil
}

func newTestService(repo *mockRepo) *Service {
	issuer := auth.NewTokenIssuer("access-secret", "refresh-secret")
	return NewService(repo, db.PassthroughTxRunner(), issuer, &mockRegistrar{id: uuid.New()}, &mockMailer{}, zerolog.Nop())
}

func validInput() SignupInput {
	return SignupInput{
		FullName: "Asha Rao",
		Email:    "Asha@Example.com",
		Password: "s3cretpass",
		Phone:    "+919876543210",
	}
}

func TestSignupNormalizesEmail(t *testing.T) {
	svc := newTestService(newMockRepo())
	a, err := svc.Signup(context.Background(), RoleUser, validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Email != "asha@example.com" {
		t.Errorf("expected lowercased email, got %q", a.Email)
	}
	if a.PasswordHash == "s3cretpass" {
		t.Error("password stored in plaintext")
	}
}

func TestSignupValidation(t *testing.T) {
	svc := newTestService(newMockRepo())
	cases := []struct {
		name   string
		mutate func(*SignupInput)
	}{
		{"bad email", func(in *SignupInput) { in.Email = "not-an-email" }},
		{"bad phone", func(in *SignupInput) { in.Phone = "9876543210" }},
		{"short password", func(in *SignupInput) { in.Password = "short" }},
		{"missing name", func(in *SignupInput) { in.FullName = "" }},
	}
	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		if _, err := svc.Signup(context.Background(), RoleUser, in); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newTestService(newMockRepo())
	if _, err := svc.Signup(context.Background(), RoleUser, validInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Signup(context.Background(), RoleUser, validInput()); err != ErrDuplicateEmail {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestSameEmailAcrossRoles(t *testing.T) {
	svc := newTestService(newMockRepo())
	if _, err := svc.Signup(context.Background(), RoleUser, validInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Signup(context.Background(), RoleAdmin, validInput()); err != nil {
		t.Errorf("same email should be allowed under a different role: %v", err)
	}
}

func TestLoginAndRefresh(t *testing.T) {
	svc := newTestService(newMockRepo())
	if _, err := svc.Signup(context.Background(), RoleUser, validInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, pair, err := svc.Login(context.Background(), RoleUser, "asha@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Email != "asha@example.com" || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("incomplete login result: %+v %+v", a, pair)
	}

	if _, _, err := svc.Login(context.Background(), RoleUser, "asha@example.com", "wrongpass"); err == nil {
		t.Error("expected login failure for wrong password")
	}

	fresh, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.AccessToken == "" {
		t.Error("expected a fresh access token")
	}
	if _, err := svc.Refresh(context.Background(), pair.AccessToken); err == nil {
		t.Error("access token must not be usable as a refresh token")
	}
}

func TestSignupClinicLinksClinic(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	a, err := svc.SignupClinic(context.Background(), validInput(), ClinicRegistration{Name: "City Care"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Role != RoleClinic {
		t.Errorf("expected clinic role, got %q", a.Role)
	}
	if a.ClinicID == nil {
		t.Fatal("expected clinic link on the account")
	}
}

func TestSignupClinicWritesInOneTransaction(t *testing.T) {
	repo := newMockRepo()
	reg := &mockRegistrar{id: uuid.New()}
	rec := &txRecorder{}
	issuer := auth.NewTokenIssuer("access-secret", "refresh-secret")
	svc := NewService(repo, rec.run, issuer, reg, &mockMailer{}, zerolog.Nop())

	if _, err := svc.SignupClinic(context.Background(), validInput(), ClinicRegistration{Name: "City Care"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.begun != 1 {
		t.Fatalf("expected one transaction, got %d", rec.begun)
	}
	if !reg.sawInTx {
		t.Error("clinic registration must run inside the signup transaction")
	}

	// A duplicate administrator email must fail through the same
	// transaction so the clinic write rolls back with it.
	if _, err := svc.SignupClinic(context.Background(), validInput(), ClinicRegistration{Name: "City Care"}); err != ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if rec.begun != 2 || rec.errs[1] != ErrDuplicateEmail {
		t.Errorf("expected the account failure to surface through the transaction, got %v", rec.errs)
	}
}

func TestClinicStaffLifecycle(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	clinicID := uuid.New()

	admin, err := svc.CreateStaff(context.Background(), clinicID, validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := validInput()
	in.Email = "desk@example.com"
	staff, err := svc.CreateStaff(context.Background(), clinicID, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if staff.Role != RoleClinic || staff.ClinicID == nil || *staff.ClinicID != clinicID {
		t.Fatalf("staff account not linked to clinic: %+v", staff)
	}

	items, total, err := svc.ListStaff(context.Background(), clinicID, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 staff accounts, got %d", total)
	}

	edited, err := svc.EditStaff(context.Background(), clinicID, staff.ID, EditInput{FullName: "Front Desk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edited.FullName != "Front Desk" {
		t.Errorf("expected updated name, got %q", edited.FullName)
	}

	if _, err := svc.EditStaff(context.Background(), uuid.New(), staff.ID, EditInput{FullName: "X"}); err != ErrNotFound {
		t.Errorf("staff of another clinic must be unreachable, got %v", err)
	}

	if err := svc.DeleteStaff(context.Background(), clinicID, admin.ID, admin.ID); err == nil {
		t.Error("expected rejection of self removal")
	}
	if err := svc.DeleteStaff(context.Background(), clinicID, admin.ID, staff.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, total, _ := svc.ListStaff(context.Background(), clinicID, 10, 0); total != 1 {
		t.Errorf("expected 1 staff account after removal, got %d", total)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	a, err := svc.Signup(context.Background(), RoleUser, validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.ForgotPassword(context.Background(), RoleUser, a.Email); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), a.ID)
	if stored.ResetOTP == nil {
		t.Fatal("expected stored reset code")
	}

	if err := svc.ResetPassword(context.Background(), RoleUser, a.Email, "000000x", "newpassword1"); err == nil {
		t.Error("expected rejection of wrong code")
	}
	if err := svc.ResetPassword(context.Background(), RoleUser, a.Email, *stored.ResetOTP, "newpassword1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), RoleUser, a.Email, "newpassword1"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}

func TestResetPasswordCodeIsSingleUse(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	a, err := svc.Signup(context.Background(), RoleUser, validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.ForgotPassword(context.Background(), RoleUser, a.Email); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), a.ID)
	otp := *stored.ResetOTP

	if err := svc.ResetPassword(context.Background(), RoleUser, a.Email, otp, "newpassword1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ = repo.GetByID(context.Background(), a.ID)
	if stored.ResetOTP != nil || stored.ResetExpiry != nil {
		t.Error("reset code must be cleared once used")
	}
	if err := svc.ResetPassword(context.Background(), RoleUser, a.Email, otp, "newpassword2"); err == nil {
		t.Error("used reset code must not be replayable")
	}
}

func TestResetPasswordExpiredCode(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	a, _ := svc.Signup(context.Background(), RoleUser, validInput())

	otp := "123456"
	repo.SetResetOTP(context.Background(), a.ID, otp, time.Now().Add(-time.Minute))
	if err := svc.ResetPassword(context.Background(), RoleUser, a.Email, otp, "newpassword1"); err == nil {
		t.Error("expected rejection of expired code")
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc := newTestService(newMockRepo())
	if err := svc.ForgotPassword(context.Background(), RoleUser, "nobody@example.com"); err != nil {
		t.Errorf("unknown email must not surface an error: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(newMockRepo())
	a, _ := svc.Signup(context.Background(), RoleUser, validInput())

	if err := svc.ChangePassword(context.Background(), a.ID, "wrongpass", "newpassword1"); err == nil {
		t.Error("expected rejection of wrong current password")
	}
	if err := svc.ChangePassword(context.Background(), a.ID, "s3cretpass", "newpassword1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), RoleUser, a.Email, "newpassword1"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}

func TestEditPartialUpdate(t *testing.T) {
	svc := newTestService(newMockRepo())
	a, _ := svc.Signup(context.Background(), RoleUser, validInput())

	edited, err := svc.Edit(context.Background(), a.ID, EditInput{FullName: "Asha R."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edited.FullName != "Asha R." {
		t.Errorf("expected updated name, got %q", edited.FullName)
	}
	if edited.Email != a.Email || edited.Phone != a.Phone {
		t.Error("untouched fields must be preserved")
	}

	if _, err := svc.Edit(context.Background(), a.ID, EditInput{Phone: "invalid"}); err == nil {
		t.Error("expected phone validation error")
	}
}
