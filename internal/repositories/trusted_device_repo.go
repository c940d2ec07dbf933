package repositories

import (
	"context"
	"errors"
	"time"

	"soundcheck/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TrustedDeviceRepository interface {
	Create(ctx context.Context, device *models.TrustedDevice) error
	// FindValid returns a matching, unexpired record or nil when none exists.
	// The lookup never refreshes or extends an existing record's expiry.
	FindValid(ctx context.Context, tenantID, userID uuid.UUID, deviceHash string, now time.Time) (*models.TrustedDevice, error)
	DeleteForUser(ctx context.Context, tenantID, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type trustedDeviceRepo struct {
	db Database
}

func NewTrustedDeviceRepo(db Database) TrustedDeviceRepository {
	return &trustedDeviceRepo{db: db}
}

func (r *trustedDeviceRepo) Create(ctx context.Context, device *models.TrustedDevice) error {
	query := `
		INSERT INTO trusted_devices (id, tenant_id, user_id, device_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, NOW(), $5)
	`
	_, err := r.db.Exec(ctx, query, device.ID, device.TenantID, device.UserID,
		device.DeviceHash, device.ExpiresAt)
	return err
}

func (r *trustedDeviceRepo) FindValid(ctx context.Context, tenantID, userID uuid.UUID, deviceHash string, now time.Time) (*models.TrustedDevice, error) {
	device := &models.TrustedDevice{}
	query := `
		SELECT id, tenant_id, user_id, device_hash, created_at, expires_at
		FROM trusted_devices
		WHERE tenant_id = $1 AND user_id = $2 AND device_hash = $3 AND expires_at > $4
		ORDER BY expires_at DESC
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query, tenantID, userID, deviceHash, now).Scan(
		&device.ID, &device.TenantID, &device.UserID, &device.DeviceHash,
		&device.CreatedAt, &device.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (r *trustedDeviceRepo) DeleteForUser(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	query := `DELETE FROM trusted_devices WHERE tenant_id = $1 AND user_id = $2`
	tag, err := r.db.Exec(ctx, query, tenantID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *trustedDeviceRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM trusted_devices WHERE expires_at <= $1`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
