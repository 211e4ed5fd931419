package services

import (
	"context"

	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/sjperalta/comisiones-api/pkg/logger"
)

type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records an audit entry. A failed write is logged and never fails the operation.
func (s *AuditService) Log(ctx context.Context, userID uint, action, entity string, entityID uint, details, ip, userAgent string) {
	entry := &models.AuditLog{
		UserID:    userID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Error("Failed to write audit log", "action", action, "entity", entity, "entity_id", entityID, "error", err)
	}
}

// List retrieves audit logs, newest first
func (s *AuditService) List(ctx context.Context, query *repository.ListQuery) ([]models.AuditLog, int64, error) {
	return s.repo.List(ctx, query)
}
