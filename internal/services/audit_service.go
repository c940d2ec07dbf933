package services

import (
	"context"
	"log"

	"soundcheck/internal/models"
	"soundcheck/internal/repositories"

	"github.com/google/uuid"
)

// AuditService is the append-only audit sink. Record is fire-and-forget:
// a failed write is logged and swallowed so it can never block the request
// that produced the event.
type AuditService interface {
	Record(ctx context.Context, tenantID uuid.UUID, eventType string, userID *uuid.UUID, detail, ipAddress, userAgent string)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.AuditEntry, error)
}

type auditService struct {
	auditRepo repositories.AuditLogsRepository
}

func NewAuditService(auditRepo repositories.AuditLogsRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) Record(ctx context.Context, tenantID uuid.UUID, eventType string, userID *uuid.UUID, detail, ipAddress, userAgent string) {
	entry := &models.AuditEntry{
		TenantID:  tenantID,
		EventType: eventType,
		UserID:    userID,
		Detail:    detail,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		log.Printf("Failed to write audit entry %s for tenant %s: %v", eventType, tenantID, err)
	}
}

// List returns the most recent entries for the tenant admin's audit view.
func (s *auditService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.AuditEntry, error) {
	return s.auditRepo.List(ctx, tenantID, limit, offset)
}
