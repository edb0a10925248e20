package postgres

import (
	"context"
	"encoding/json"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
)

type auditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, e *domain.AuditEntry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_entries (organization_id, actor_id, action, entity_type, entity_id, metadata, ip, user_agent, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	logger.DatabaseCall("INSERT", "audit_entries", "action", e.Action, "entityID", e.EntityID)
	err = r.db.QueryRowContext(ctx, query,
		e.OrganizationID, e.ActorID, e.Action, e.EntityType, e.EntityID, meta,
		nullString(e.IP), nullString(e.UserAgent), e.CreatedAt,
	).Scan(&e.ID)
	logger.DatabaseResult("INSERT", 1, err, "auditID", e.ID)
	return err
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityType string, entityID int32) ([]domain.AuditEntry, error) {
	query := `SELECT id, organization_id, actor_id, action, entity_type, entity_id, metadata,
	                 COALESCE(ip, ''), COALESCE(user_agent, ''), created_at
	          FROM audit_entries WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &meta,
			&e.IP, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
