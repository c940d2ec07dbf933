package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"soundcheck/internal/caching"
	"soundcheck/internal/models"
	"soundcheck/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is the single failure returned for any login
// problem (unknown email, wrong password, disabled account) so responses
// never leak which part was wrong.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("reset token is invalid or expired")
)

// JWTCustomClaims is the access token payload. The session id travels as the
// registered JWT ID; the mfa_verified flag deliberately does not travel at
// all and is looked up server-side on every request.
type JWTCustomClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// LoginResult carries everything a successful password check produced. The
// caller inspects MFAVerified to decide whether to demand a second factor.
type LoginResult struct {
	Token       string
	SessionID   string
	User        *models.User
	MFAVerified bool
}

type AuthService interface {
	Login(ctx context.Context, tenant *models.Tenant, email, password, userAgent string) (*LoginResult, error)
	Logout(ctx context.Context, tenantID uuid.UUID, sessionID string) error
	MarkSessionVerified(ctx context.Context, tenantID uuid.UUID, sessionID string) error
	RequestPasswordReset(ctx context.Context, tenant *models.Tenant, email string) error
	ConfirmPasswordReset(ctx context.Context, tenantID uuid.UUID, token, newPassword string) (*models.User, error)
	HashPassword(password string) (string, error)
}

type authService struct {
	userRepo   repositories.UserRepository
	resetRepo  repositories.ResetTokenRepository
	mfaService MFAService
	cache      caching.CacheService
	jwtSecret  string
	sessionTTL time.Duration
}

func NewAuthService(userRepo repositories.UserRepository, resetRepo repositories.ResetTokenRepository, mfaService MFAService, cache caching.CacheService, jwtSecret string, sessionTTL time.Duration) AuthService {
	return &authService{
		userRepo:   userRepo,
		resetRepo:  resetRepo,
		mfaService: mfaService,
		cache:      cache,
		jwtSecret:  jwtSecret,
		sessionTTL: sessionTTL,
	}
}

// Login verifies the password, opens a server-side session and signs an
// access token. A recognized trusted device pre-verifies the session so the
// user skips the MFA prompt.
func (s *authService) Login(ctx context.Context, tenant *models.Tenant, email, password, userAgent string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, tenant.ID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.IsActive {
		// Burn a bcrypt comparison anyway so timing does not reveal
		// whether the email exists.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	mfaVerified := false
	if user.MFAConfirmed {
		trusted, err := s.mfaService.IsTrustedDevice(ctx, user, userAgent)
		if err != nil {
			log.Printf("Trusted device lookup failed for user %s: %v", user.ID, err)
		}
		mfaVerified = trusted
	}

	sessionID := uuid.New().String()
	session := &caching.SessionData{
		UserID:      user.ID,
		MFAVerified: mfaVerified,
		CreatedAt:   time.Now(),
	}
	if err := s.cache.SetSession(ctx, tenant.ID, sessionID, session, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.signToken(user, sessionID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:       token,
		SessionID:   sessionID,
		User:        user,
		MFAVerified: mfaVerified,
	}, nil
}

func (s *authService) Logout(ctx context.Context, tenantID uuid.UUID, sessionID string) error {
	return s.cache.DeleteSession(ctx, tenantID, sessionID)
}

// MarkSessionVerified flips the server-side mfa_verified flag after a
// successful second-factor check. The client token is untouched.
func (s *authService) MarkSessionVerified(ctx context.Context, tenantID uuid.UUID, sessionID string) error {
	return s.cache.MarkSessionVerified(ctx, tenantID, sessionID)
}

// RequestPasswordReset issues a single-use token for the account if it
// exists. Callers must report success either way so the endpoint cannot be
// used to probe for registered emails.
func (s *authService) RequestPasswordReset(ctx context.Context, tenant *models.Tenant, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, tenant.ID, email)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil
	}

	raw := make([]byte, 48)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	record := &models.PasswordResetToken{
		ID:       uuid.New(),
		TenantID: tenant.ID,
		UserID:   user.ID,
		Token:    token,
	}
	if err := s.resetRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	// Mail delivery is out of process; log the link so operators can relay
	// it in environments without an outbound mailer.
	log.Printf("Password reset for %s on tenant %s: /reset-password?token=%s", user.Email, tenant.Slug, token)
	return nil
}

// ConfirmPasswordReset consumes the token and sets the new password. The
// token is marked used atomically, so two concurrent confirmations cannot
// both succeed.
func (s *authService) ConfirmPasswordReset(ctx context.Context, tenantID uuid.UUID, token, newPassword string) (*models.User, error) {
	record, err := s.resetRepo.GetByToken(ctx, tenantID, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up reset token: %w", err)
	}
	if record == nil || !record.IsValid(time.Now()) {
		return nil, ErrInvalidResetToken
	}

	consumed, err := s.resetRepo.MarkUsed(ctx, tenantID, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}
	if !consumed {
		return nil, ErrInvalidResetToken
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdatePassword(ctx, tenantID, record.UserID, hash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, tenantID, record.UserID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *authService) signToken(user *models.User, sessionID string) (string, error) {
	now := time.Now()
	claims := &JWTCustomClaims{
		UserID:   user.ID.String(),
		TenantID: user.TenantID.String(),
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
