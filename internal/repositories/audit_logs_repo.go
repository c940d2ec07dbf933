package repositories

import (
	"context"
	"time"

	"soundcheck/internal/models"

	"github.com/google/uuid"
)

// AuditLogsRepository writes and reads the append-only audit trail. There is
// deliberately no update or delete: entries are immutable once written.
type AuditLogsRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.AuditEntry, error)
}

type auditLogsRepo struct {
	db Database
}

func NewAuditLogsRepo(db Database) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_log (id, tenant_id, timestamp, event_type, user_id, detail, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query, entry.ID, entry.TenantID, entry.Timestamp, entry.EventType,
		entry.UserID, entry.Detail, entry.IPAddress, entry.UserAgent)
	return err
}

func (r *auditLogsRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, tenant_id, timestamp, event_type, user_id, detail, ip_address, user_agent
		FROM audit_log
		WHERE tenant_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry := &models.AuditEntry{}
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.Timestamp, &entry.EventType,
			&entry.UserID, &entry.Detail, &entry.IPAddress, &entry.UserAgent); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
