package services

import (
	"context"
	"time"

	"civreg/internal/common"
	"civreg/internal/models"
	"civreg/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditRecorder records committed lifecycle changes. Recording never fails the
// operation that triggered it.
type AuditRecorder interface {
	Record(ctx context.Context, entity, recordID, action string, actorID *uuid.UUID, data models.JSONB)
}

type AuditLogsService interface {
	AuditRecorder
	ListAuditLogs(ctx context.Context, caller models.Identity, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
}

type auditLogsService struct {
	auditLogsRepo repositories.AuditLogsRepository
	logger        *zap.Logger
}

func NewAuditLogsService(auditLogsRepo repositories.AuditLogsRepository, logger *zap.Logger) AuditLogsService {
	return &auditLogsService{
		auditLogsRepo: auditLogsRepo,
		logger:        logger,
	}
}

func (s *auditLogsService) Record(ctx context.Context, entity, recordID, action string, actorID *uuid.UUID, data models.JSONB) {
	auditLog := &models.AuditLog{
		ID:        uuid.New(),
		Entity:    entity,
		RecordID:  recordID,
		Action:    action,
		ActorID:   actorID,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.auditLogsRepo.Create(ctx, auditLog); err != nil {
		s.logger.Warn("failed to record audit log",
			zap.String("entity", entity),
			zap.String("record_id", recordID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *auditLogsService) ListAuditLogs(ctx context.Context, caller models.Identity, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if err := Authorize(caller.Role, OpReadAllDeclarations); err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}
	filters.Limit, filters.Offset = common.ValidatePaginationParams(filters.Limit, filters.Offset)

	logs, err := s.auditLogsRepo.List(ctx, filters)
	if err != nil {
		return nil, common.Persistence(err)
	}
	return logs, nil
}
