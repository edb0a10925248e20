package postgres

import (
	"context"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
)

const approvalColumns = `id, organization_id, approvable_type, approvable_id, approver_id, round, sequence, status,
	requested_at, responded_at, COALESCE(comments, '')`

type approvalRepository struct {
	db DBTX
}

func NewApprovalRepository(db DBTX) repository.ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(ctx context.Context, a *domain.ApprovalRecord) error {
	query := `INSERT INTO approval_records (organization_id, approvable_type, approvable_id, approver_id, round, sequence, status, requested_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		a.OrganizationID, a.ApprovableType, a.ApprovableID, a.ApproverID, a.Round, a.Sequence, a.Status, a.RequestedAt,
	).Scan(&a.ID)
	return mapError(err)
}

func (r *approvalRepository) GetByID(ctx context.Context, id int32) (*domain.ApprovalRecord, error) {
	a := &domain.ApprovalRecord{}
	query := `SELECT ` + approvalColumns + ` FROM approval_records WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.OrganizationID, &a.ApprovableType, &a.ApprovableID, &a.ApproverID, &a.Round, &a.Sequence, &a.Status,
		&a.RequestedAt, &a.RespondedAt, &a.Comments,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

// ListByApprovable returns the latest round of the parent's chain.
func (r *approvalRepository) ListByApprovable(ctx context.Context, ref domain.ApprovableRef) ([]domain.ApprovalRecord, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_records
	          WHERE approvable_type = $1 AND approvable_id = $2
	            AND round = (SELECT COALESCE(MAX(round), 0) FROM approval_records WHERE approvable_type = $1 AND approvable_id = $2)
	          ORDER BY sequence`
	rows, err := r.db.QueryContext(ctx, query, ref.Type, ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ApprovalRecord
	for rows.Next() {
		var a domain.ApprovalRecord
		if err := rows.Scan(
			&a.ID, &a.OrganizationID, &a.ApprovableType, &a.ApprovableID, &a.ApproverID, &a.Round, &a.Sequence, &a.Status,
			&a.RequestedAt, &a.RespondedAt, &a.Comments,
		); err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

func (r *approvalRepository) Resolve(ctx context.Context, id int32, status domain.ApprovalStatus, comments string, at time.Time) error {
	logger.DatabaseCall("UPDATE", "approval_records", "approvalID", id, "status", status)
	query := `UPDATE approval_records SET status = $1, comments = $2, responded_at = $3
	          WHERE id = $4 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, status, nullString(comments), at, id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	return expectOneRow(result)
}

func (r *approvalRepository) CloseRemaining(ctx context.Context, ref domain.ApprovableRef, at time.Time) (int64, error) {
	query := `UPDATE approval_records SET status = 'rejected', responded_at = $1
	          WHERE approvable_type = $2 AND approvable_id = $3 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, at, ref.Type, ref.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
