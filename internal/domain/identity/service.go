package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/auth"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/db"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/mail"
)

const resetOTPTTL = 10 * time.Minute

// ClinicRegistration carries the clinic fields collected at clinic signup.
type ClinicRegistration struct {
	Name       string
	Email      string
	AddressOne string
	AddressTwo string
	City       string
	State      string
	Pincode    string
	Phone      string
	Latitude   *float64
	Longitude  *float64
}

// ClinicRegistrar creates the clinic record a clinic account administers.
// Implemented by the clinic service; new clinics start unverified.
type ClinicRegistrar interface {
	Register(ctx context.Context, reg ClinicRegistration) (uuid.UUID, error)
}

type Service struct {
	repo    Repository
	tx      db.TxRunner
	tokens  *auth.TokenIssuer
	clinics ClinicRegistrar
	mailer  mail.Sender
	log     zerolog.Logger
}

func NewService(repo Repository, tx db.TxRunner, tokens *auth.TokenIssuer, clinics ClinicRegistrar, mailer mail.Sender, log zerolog.Logger) *Service {
	return &Service{repo: repo, tx: tx, tokens: tokens, clinics: clinics, mailer: mailer, log: log}
}

// TokenPair is returned from login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignupInput carries the common account fields.
type SignupInput struct {
	FullName string
	Email    string
	Password string
	Phone    string
	Address  string
}

func (in *SignupInput) validate() error {
	if in.FullName == "" {
		return fmt.Errorf("full name is required")
	}
	in.Email = NormalizeEmail(in.Email)
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := ValidatePhone(in.Phone); err != nil {
		return err
	}
	return ValidatePassword(in.Password)
}

// Signup registers a patient or platform admin account.
func (s *Service) Signup(ctx context.Context, role string, in SignupInput) (*Account, error) {
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf("unsupported role %q", role)
	}
	return s.createAccount(ctx, role, in, nil)
}

// SignupClinic registers the clinic record and its administrator account in
// one transaction, so a rejected account (for example a duplicate email)
// does not leave an orphaned unverified clinic behind.
func (s *Service) SignupClinic(ctx context.Context, in SignupInput, reg ClinicRegistration) (*Account, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var a *Account
	err := s.tx(ctx, func(ctx context.Context) error {
		clinicID, err := s.clinics.Register(ctx, reg)
		if err != nil {
			return err
		}
		a, err = s.createAccount(ctx, RoleClinic, in, &clinicID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) createAccount(ctx context.Context, role string, in SignupInput, clinicID *uuid.UUID) (*Account, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	a := &Account{
		Role:         role,
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        in.Phone,
		ClinicID:     clinicID,
	}
	if in.Address != "" {
		a.Address = &in.Address
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, role, email, password string) (*Account, *TokenPair, error) {
	a, err := s.repo.GetByEmail(ctx, role, NormalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid email or password")
	}
	if !auth.CheckPassword(a.PasswordHash, password) {
		return nil, nil, fmt.Errorf("invalid email or password")
	}
	pair, err := s.issuePair(a)
	if err != nil {
		return nil, nil, err
	}
	return a, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.issuePair(a)
}

func (s *Service) issuePair(a *Account) (*TokenPair, error) {
	clinicID := ""
	if a.ClinicID != nil {
		clinicID = a.ClinicID.String()
	}
	access, refresh, err := s.tokens.IssuePair(a.ID, a.Role, clinicID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ForgotPassword stores a short lived OTP and mails it to the account.
// The same success result is returned whether or not the email exists.
func (s *Service) ForgotPassword(ctx context.Context, role, email string) error {
	a, err := s.repo.GetByEmail(ctx, role, NormalizeEmail(email))
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}
	otp, err := auth.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.repo.SetResetOTP(ctx, a.ID, otp, time.Now().Add(resetOTPTTL)); err != nil {
		return err
	}

	if s.mailer == nil {
		s.log.Warn().Str("email", a.Email).Msg("mail disabled, reset code not delivered")
		return nil
	}
	go func() {
		body := fmt.Sprintf("Your password reset code is %s. It expires in 10 minutes.", otp)
		if err := s.mailer.Send([]string{a.Email}, "Password reset code", body); err != nil {
			s.log.Error().Err(err).Str("email", a.Email).Msg("send reset mail")
		}
	}()
	return nil
}

// ResetPassword verifies the OTP and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, role, email, otp, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	a, err := s.repo.GetByEmail(ctx, role, NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("invalid or expired reset code")
	}
	if a.ResetOTP == nil || a.ResetExpiry == nil || *a.ResetOTP != otp || time.Now().After(*a.ResetExpiry) {
		return fmt.Errorf("invalid or expired reset code")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, a.ID, hash)
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(a.PasswordHash, oldPassword) {
		return fmt.Errorf("current password is incorrect")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, a.ID, hash)
}

// Details returns the account for the authenticated caller.
func (s *Service) Details(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

// EditInput carries the editable profile fields. Empty fields keep their
// stored values.
type EditInput struct {
	FullName string
	Email    string
	Phone    string
	Address  string
}

// Edit applies a partial profile update.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, in EditInput) (*Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyEdit(a, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func applyEdit(a *Account, in EditInput) error {
	if in.FullName != "" {
		a.FullName = in.FullName
	}
	if in.Email != "" {
		email := NormalizeEmail(in.Email)
		if err := ValidateEmail(email); err != nil {
			return err
		}
		a.Email = email
	}
	if in.Phone != "" {
		if err := ValidatePhone(in.Phone); err != nil {
			return err
		}
		a.Phone = in.Phone
	}
	if in.Address != "" {
		a.Address = &in.Address
	}
	return nil
}

// CreateStaff registers an additional clinic-role account for an existing
// clinic. Clinic admins use it to hand out front-desk logins.
func (s *Service) CreateStaff(ctx context.Context, clinicID uuid.UUID, in SignupInput) (*Account, error) {
	return s.createAccount(ctx, RoleClinic, in, &clinicID)
}

// ListStaff returns the clinic's accounts, newest first.
func (s *Service) ListStaff(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Account, int, error) {
	return s.repo.ListByClinic(ctx, clinicID, limit, offset)
}

// EditStaff applies a partial profile update to a staff account. The account
// must belong to the given clinic.
func (s *Service) EditStaff(ctx context.Context, clinicID, id uuid.UUID, in EditInput) (*Account, error) {
	a, err := s.staffAccount(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if err := applyEdit(a, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteStaff removes a staff account from the clinic. Callers cannot remove
// their own account.
func (s *Service) DeleteStaff(ctx context.Context, clinicID, callerID, id uuid.UUID) error {
	if id == callerID {
		return fmt.Errorf("cannot remove your own account")
	}
	if _, err := s.staffAccount(ctx, clinicID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) staffAccount(ctx context.Context, clinicID, id uuid.UUID) (*Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Role != RoleClinic || a.ClinicID == nil || *a.ClinicID != clinicID {
		return nil, ErrNotFound
	}
	return a, nil
}
