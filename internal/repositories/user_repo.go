package repositories

import (
	"context"
	"errors"
	"fmt"

	"soundcheck/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, tenantID, id uuid.UUID, passwordHash string) error
	UpdateMFA(ctx context.Context, user *models.User) error
	UpdateRecoveryCodes(ctx context.Context, tenantID, id uuid.UUID, hashes []string) error
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.User, error)
}

type userRepo struct {
	db Database
}

func NewUserRepo(db Database) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, tenant_id, email, password_hash, first_name, last_name, role, is_active,
		mfa_secret, mfa_enabled, mfa_confirmed, recovery_codes, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.TenantID, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.Role, &user.IsActive,
		&user.MFASecret, &user.MFAEnabled, &user.MFAConfirmed, &user.RecoveryCodes,
		&user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	// Email is unique per tenant; check before insert for a clearer error
	var count int
	emailCheckQuery := `SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND email = $2`
	err := r.db.QueryRow(ctx, emailCheckQuery, user.TenantID, user.Email).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("user with email '%s' already exists", user.Email)
	}

	query := `
		INSERT INTO users (id, tenant_id, email, password_hash, first_name, last_name, role, is_active,
			mfa_secret, mfa_enabled, mfa_confirmed, recovery_codes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err = r.db.Exec(ctx, query, user.ID, user.TenantID, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Role, user.IsActive,
		user.MFASecret, user.MFAEnabled, user.MFAConfirmed, user.RecoveryCodes)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND id = $2`
	return scanUser(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND email = $2`
	return scanUser(r.db.QueryRow(ctx, query, tenantID, email))
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, role = $3, is_active = $4, updated_at = NOW()
		WHERE tenant_id = $5 AND id = $6
	`
	_, err := r.db.Exec(ctx, query, user.FirstName, user.LastName, user.Role, user.IsActive,
		user.TenantID, user.ID)
	return err
}

func (r *userRepo) UpdatePassword(ctx context.Context, tenantID, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3`
	_, err := r.db.Exec(ctx, query, passwordHash, tenantID, id)
	return err
}

// UpdateMFA persists the MFA columns only: secret, enabled/confirmed flags
// and the hashed recovery code set.
func (r *userRepo) UpdateMFA(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET mfa_secret = $1, mfa_enabled = $2, mfa_confirmed = $3, recovery_codes = $4, updated_at = NOW()
		WHERE tenant_id = $5 AND id = $6
	`
	_, err := r.db.Exec(ctx, query, user.MFASecret, user.MFAEnabled, user.MFAConfirmed,
		user.RecoveryCodes, user.TenantID, user.ID)
	return err
}

func (r *userRepo) UpdateRecoveryCodes(ctx context.Context, tenantID, id uuid.UUID, hashes []string) error {
	query := `UPDATE users SET recovery_codes = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3`
	_, err := r.db.Exec(ctx, query, hashes, tenantID, id)
	return err
}

func (r *userRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 ORDER BY email LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
