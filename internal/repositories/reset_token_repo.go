package repositories

import (
	"context"
	"errors"
	"time"

	"soundcheck/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
)

type ResetTokenRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	GetByToken(ctx context.Context, tenantID uuid.UUID, token string) (*models.PasswordResetToken, error)
	// MarkUsed consumes a token. Returns false when the token was already
	// used, so concurrent confirms cannot both succeed.
	MarkUsed(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

type resetTokenRepo struct {
	db Database
}

func NewResetTokenRepo(db Database) ResetTokenRepository {
	return &resetTokenRepo{db: db}
}

func (r *resetTokenRepo) Create(ctx context.Context, token *models.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (id, tenant_id, user_id, token, used, created_at)
		VALUES ($1, $2, $3, $4, false, NOW())
	`
	_, err := r.db.Exec(ctx, query, token.ID, token.TenantID, token.UserID, token.Token)
	return err
}

func (r *resetTokenRepo) GetByToken(ctx context.Context, tenantID uuid.UUID, token string) (*models.PasswordResetToken, error) {
	t := &models.PasswordResetToken{}
	query := `
		SELECT id, tenant_id, user_id, token, used, created_at
		FROM password_reset_tokens
		WHERE tenant_id = $1 AND token = $2
	`
	err := r.db.QueryRow(ctx, query, tenantID, token).Scan(&t.ID, &t.TenantID, &t.UserID,
		&t.Token, &t.Used, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *resetTokenRepo) MarkUsed(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	query := `UPDATE password_reset_tokens SET used = true WHERE tenant_id = $1 AND id = $2 AND used = false`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteStale removes used tokens and tokens past their validity window.
func (r *resetTokenRepo) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM password_reset_tokens WHERE used = true OR created_at < $1`
	tag, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
