package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"civreg/internal/models"

	"github.com/google/uuid"
)

type AuditLogsRepository interface {
	Create(ctx context.Context, auditLog *models.AuditLog) error
	List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
}

type auditLogsRepo struct {
	db DBTX
}

func NewAuditLogsRepo(db DBTX) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, auditLog *models.AuditLog) error {
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}
	if auditLog.CreatedAt.IsZero() {
		auditLog.CreatedAt = time.Now().UTC()
	}

	var data []byte
	if auditLog.Data != nil {
		var err error
		data, err = json.Marshal(auditLog.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal data: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, entity, record_id, action, actor_id, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		auditLog.ID,
		auditLog.Entity,
		auditLog.RecordID,
		auditLog.Action,
		auditLog.ActorID,
		data,
		auditLog.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditLogsRepo) List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}

	query := `
		SELECT id, entity, record_id, action, actor_id, data, created_at
		FROM audit_logs
		WHERE 1 = 1`
	var args []interface{}

	if filters.Entity != nil {
		args = append(args, *filters.Entity)
		query += fmt.Sprintf(" AND entity = $%d", len(args))
	}
	if filters.RecordID != nil {
		args = append(args, *filters.RecordID)
		query += fmt.Sprintf(" AND record_id = $%d", len(args))
	}
	if filters.Action != nil {
		args = append(args, *filters.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filters.ActorID != nil {
		args = append(args, *filters.ActorID)
		query += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		if filters.Offset > 0 {
			args = append(args, filters.Offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	auditLogs := []*models.AuditLog{}
	for rows.Next() {
		auditLog := &models.AuditLog{}
		var data []byte
		if err := rows.Scan(&auditLog.ID, &auditLog.Entity, &auditLog.RecordID, &auditLog.Action, &auditLog.ActorID, &data, &auditLog.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &auditLog.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal data: %w", err)
			}
		}
		auditLogs = append(auditLogs, auditLog)
	}
	return auditLogs, rows.Err()
}
