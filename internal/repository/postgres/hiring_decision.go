package postgres

import (
	"context"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
)

const decisionColumns = `id, application_id, organization_id, decided_by, approved_by, decision, status,
	COALESCE(rationale, ''), proposed_salary, proposed_start_date, COALESCE(rejection_reason, ''),
	decided_at, approved_at`

type hiringDecisionRepository struct {
	db DBTX
}

func NewHiringDecisionRepository(db DBTX) repository.HiringDecisionRepository {
	return &hiringDecisionRepository{db: db}
}

func (r *hiringDecisionRepository) Create(ctx context.Context, d *domain.HiringDecision) error {
	logger.EnterMethod("hiringDecisionRepository.Create", "applicationID", d.ApplicationID, "decision", d.Decision)

	query := `INSERT INTO hiring_decisions (
			application_id, organization_id, decided_by, approved_by, decision, status,
			rationale, proposed_salary, proposed_start_date, decided_at, approved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		d.ApplicationID, d.OrganizationID, d.DecidedBy, d.ApprovedBy, d.Decision, d.Status,
		nullString(d.Rationale), d.ProposedSalary, d.ProposedStartDate, d.DecidedAt, d.ApprovedAt,
	).Scan(&d.ID)
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("hiringDecisionRepository.Create", err, "applicationID", d.ApplicationID)
		return err
	}

	logger.ExitMethod("hiringDecisionRepository.Create", "decisionID", d.ID)
	return nil
}

func scanDecision(scan func(dest ...any) error, d *domain.HiringDecision) error {
	return scan(
		&d.ID, &d.ApplicationID, &d.OrganizationID, &d.DecidedBy, &d.ApprovedBy, &d.Decision, &d.Status,
		&d.Rationale, &d.ProposedSalary, &d.ProposedStartDate, &d.RejectionReason,
		&d.DecidedAt, &d.ApprovedAt,
	)
}

func (r *hiringDecisionRepository) GetByID(ctx context.Context, id int32) (*domain.HiringDecision, error) {
	d := &domain.HiringDecision{}
	query := `SELECT ` + decisionColumns + ` FROM hiring_decisions WHERE id = $1`
	if err := scanDecision(r.db.QueryRowContext(ctx, query, id).Scan, d); err != nil {
		return nil, mapError(err)
	}
	return d, nil
}

func (r *hiringDecisionRepository) HasPending(ctx context.Context, applicationID int32) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM hiring_decisions WHERE application_id = $1 AND status = 'pending')`
	err := r.db.QueryRowContext(ctx, query, applicationID).Scan(&exists)
	return exists, err
}

func (r *hiringDecisionRepository) ListByApplication(ctx context.Context, applicationID int32) ([]domain.HiringDecision, error) {
	query := `SELECT ` + decisionColumns + ` FROM hiring_decisions WHERE application_id = $1 ORDER BY decided_at, id`
	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []domain.HiringDecision
	for rows.Next() {
		var d domain.HiringDecision
		if err := scanDecision(rows.Scan, &d); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

func (r *hiringDecisionRepository) Resolve(ctx context.Context, id int32, status domain.DecisionStatus, approvedBy int32, rejectionReason string, at time.Time) error {
	logger.DatabaseCall("UPDATE", "hiring_decisions", "decisionID", id, "status", status)
	query := `UPDATE hiring_decisions SET status = $1, approved_by = $2, approved_at = $3, rejection_reason = $4
	          WHERE id = $5 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, status, approvedBy, at, nullString(rejectionReason), id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	return expectOneRow(result)
}
