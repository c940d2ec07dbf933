package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"soundcheck/internal/models"
	"soundcheck/internal/repositories"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrMFANotEnrolled  = errors.New("mfa enrollment has not been started")
	ErrMFAAlreadySetup = errors.New("mfa is already confirmed for this account")
	ErrInvalidMFACode  = errors.New("invalid verification code")
	ErrNoRecoveryCodes = errors.New("no recovery codes remain")
)

const recoveryCodeCount = 10

// Verification methods reported back to callers for auditing.
const (
	MFAMethodTOTP     = "totp"
	MFAMethodRecovery = "recovery_code"
)

// Enrollment is the one-time payload handed to the user during TOTP setup.
// The secret and URL are never retrievable again after confirmation.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

type MFAService interface {
	EnrollTOTP(ctx context.Context, user *models.User) (*Enrollment, error)
	ConfirmSetup(ctx context.Context, user *models.User, code string) ([]string, error)
	Verify(ctx context.Context, user *models.User, code string) (string, error)
	RegenerateRecoveryCodes(ctx context.Context, user *models.User) ([]string, error)
	ResetMFA(ctx context.Context, tenantID, userID uuid.UUID) error
	RememberDevice(ctx context.Context, user *models.User, userAgent string) error
	IsTrustedDevice(ctx context.Context, user *models.User, userAgent string) (bool, error)
}

type mfaService struct {
	userRepo       repositories.UserRepository
	deviceRepo     repositories.TrustedDeviceRepository
	issuer         string
	rememberDevice time.Duration
}

func NewMFAService(userRepo repositories.UserRepository, deviceRepo repositories.TrustedDeviceRepository, issuer string, rememberDevice time.Duration) MFAService {
	return &mfaService{
		userRepo:       userRepo,
		deviceRepo:     deviceRepo,
		issuer:         issuer,
		rememberDevice: rememberDevice,
	}
}

// EnrollTOTP generates a fresh TOTP secret for the user and stores it
// unconfirmed. Re-enrolling before confirmation simply replaces the pending
// secret; a confirmed setup must go through ResetMFA first.
func (s *mfaService) EnrollTOTP(ctx context.Context, user *models.User) (*Enrollment, error) {
	if user.MFAConfirmed {
		return nil, ErrMFAAlreadySetup
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	user.MFASecret = key.Secret()
	user.MFAEnabled = false
	user.MFAConfirmed = false
	user.RecoveryCodes = nil
	if err := s.userRepo.UpdateMFA(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store totp secret: %w", err)
	}

	return &Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// ConfirmSetup validates the first code against the pending secret and, on
// success, activates MFA and issues one batch of recovery codes. The
// plaintext codes are returned exactly once; only their hashes persist.
func (s *mfaService) ConfirmSetup(ctx context.Context, user *models.User, code string) ([]string, error) {
	if user.MFASecret == "" {
		return nil, ErrMFANotEnrolled
	}
	if user.MFAConfirmed {
		return nil, ErrMFAAlreadySetup
	}
	if !s.validateTOTP(user.MFASecret, code) {
		return nil, ErrInvalidMFACode
	}

	plaintext, hashes, err := generateRecoveryCodes(recoveryCodeCount)
	if err != nil {
		return nil, err
	}

	user.MFAEnabled = true
	user.MFAConfirmed = true
	user.RecoveryCodes = hashes
	if err := s.userRepo.UpdateMFA(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to activate mfa: %w", err)
	}

	return plaintext, nil
}

// Verify checks a code at login time. Six-digit inputs are treated as TOTP
// codes; anything else is tried against the recovery code batch. A matched
// recovery code is consumed immediately so it can never be replayed.
func (s *mfaService) Verify(ctx context.Context, user *models.User, code string) (string, error) {
	if !user.MFAConfirmed || user.MFASecret == "" {
		return "", ErrMFANotEnrolled
	}

	if isTOTPShaped(code) {
		if s.validateTOTP(user.MFASecret, code) {
			return MFAMethodTOTP, nil
		}
		return "", ErrInvalidMFACode
	}

	if len(user.RecoveryCodes) == 0 {
		return "", ErrNoRecoveryCodes
	}
	hash := hashRecoveryCode(code)
	for i, stored := range user.RecoveryCodes {
		if stored == hash {
			remaining := append(append([]string{}, user.RecoveryCodes[:i]...), user.RecoveryCodes[i+1:]...)
			if err := s.userRepo.UpdateRecoveryCodes(ctx, user.TenantID, user.ID, remaining); err != nil {
				return "", fmt.Errorf("failed to consume recovery code: %w", err)
			}
			user.RecoveryCodes = remaining
			return MFAMethodRecovery, nil
		}
	}
	return "", ErrInvalidMFACode
}

// RegenerateRecoveryCodes replaces the whole batch. Previously issued codes
// stop working immediately.
func (s *mfaService) RegenerateRecoveryCodes(ctx context.Context, user *models.User) ([]string, error) {
	if !user.MFAConfirmed {
		return nil, ErrMFANotEnrolled
	}
	plaintext, hashes, err := generateRecoveryCodes(recoveryCodeCount)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateRecoveryCodes(ctx, user.TenantID, user.ID, hashes); err != nil {
		return nil, fmt.Errorf("failed to store recovery codes: %w", err)
	}
	user.RecoveryCodes = hashes
	return plaintext, nil
}

// ResetMFA wipes the user's secret, recovery codes and trusted devices so
// they must enroll from scratch on next login. Admin-only operation.
func (s *mfaService) ResetMFA(ctx context.Context, tenantID, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found", userID)
	}

	user.MFASecret = ""
	user.MFAEnabled = false
	user.MFAConfirmed = false
	user.RecoveryCodes = nil
	if err := s.userRepo.UpdateMFA(ctx, user); err != nil {
		return fmt.Errorf("failed to reset mfa: %w", err)
	}
	if _, err := s.deviceRepo.DeleteForUser(ctx, tenantID, userID); err != nil {
		return fmt.Errorf("failed to remove trusted devices: %w", err)
	}
	return nil
}

// RememberDevice records the caller's device fingerprint so MFA is skipped
// on this device until the record expires.
func (s *mfaService) RememberDevice(ctx context.Context, user *models.User, userAgent string) error {
	now := time.Now()
	device := &models.TrustedDevice{
		ID:         uuid.New(),
		TenantID:   user.TenantID,
		UserID:     user.ID,
		DeviceHash: deviceFingerprint(user.ID, userAgent),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.rememberDevice),
	}
	return s.deviceRepo.Create(ctx, device)
}

// IsTrustedDevice reports whether an unexpired trusted device record matches
// the caller's fingerprint.
func (s *mfaService) IsTrustedDevice(ctx context.Context, user *models.User, userAgent string) (bool, error) {
	device, err := s.deviceRepo.FindValid(ctx, user.TenantID, user.ID, deviceFingerprint(user.ID, userAgent), time.Now())
	if err != nil {
		return false, err
	}
	return device != nil, nil
}

func (s *mfaService) validateTOTP(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1, // tolerate one period of clock drift either way
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func isTOTPShaped(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// deviceFingerprint derives the trusted-device hash from the user id and the
// raw user agent. Deliberately weak: it trades strength for zero client-side
// state.
func deviceFingerprint(userID uuid.UUID, userAgent string) string {
	sum := sha256.Sum256([]byte(userID.String() + ":" + userAgent))
	return hex.EncodeToString(sum[:])
}

func hashRecoveryCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// generateRecoveryCodes returns one batch of single-use codes as
// (plaintext, sha256 hashes). Codes are 8 uppercase hex characters.
func generateRecoveryCodes(n int) ([]string, []string, error) {
	plaintext := make([]string, 0, n)
	hashes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var raw [4]byte
		if _, err := rand.Read(raw[:]); err != nil {
			return nil, nil, fmt.Errorf("failed to generate recovery code: %w", err)
		}
		code := fmt.Sprintf("%X", raw[:])
		plaintext = append(plaintext, code)
		hashes = append(hashes, hashRecoveryCode(code))
	}
	return plaintext, hashes, nil
}
