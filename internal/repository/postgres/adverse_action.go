package postgres

import (
	"context"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
)

const adverseActionColumns = `id, application_id, organization_id, initiated_by, status, action_type, reason_category,
	COALESCE(reason_details, ''), COALESCE(background_check_provider, ''), waiting_period_days,
	pre_adverse_sent_at, COALESCE(pre_adverse_content, ''), pre_adverse_delivery_method, waiting_period_ends_at,
	candidate_disputed, COALESCE(dispute_details, ''), dispute_received_at,
	final_adverse_sent_at, COALESCE(final_adverse_content, ''), final_adverse_delivery_method,
	cancelled_at, cancelled_by, COALESCE(cancelled_reason, ''), created_at, updated_at`

type adverseActionRepository struct {
	db DBTX
}

func NewAdverseActionRepository(db DBTX) repository.AdverseActionRepository {
	return &adverseActionRepository{db: db}
}

func scanAdverseAction(scan func(dest ...any) error, a *domain.AdverseAction) error {
	return scan(
		&a.ID, &a.ApplicationID, &a.OrganizationID, &a.InitiatedBy, &a.Status, &a.ActionType, &a.ReasonCategory,
		&a.ReasonDetails, &a.BackgroundCheckProvider, &a.WaitingPeriodDays,
		&a.PreAdverseSentAt, &a.PreAdverseContent, &a.PreAdverseDeliveryMethod, &a.WaitingPeriodEndsAt,
		&a.CandidateDisputed, &a.DisputeDetails, &a.DisputeReceivedAt,
		&a.FinalAdverseSentAt, &a.FinalAdverseContent, &a.FinalAdverseDeliveryMethod,
		&a.CancelledAt, &a.CancelledBy, &a.CancelledReason, &a.CreatedAt, &a.UpdatedAt,
	)
}

func (r *adverseActionRepository) Create(ctx context.Context, a *domain.AdverseAction) error {
	logger.EnterMethod("adverseActionRepository.Create", "applicationID", a.ApplicationID, "actionType", a.ActionType)

	query := `INSERT INTO adverse_actions (
			application_id, organization_id, initiated_by, status, action_type, reason_category,
			reason_details, background_check_provider, waiting_period_days, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		a.ApplicationID, a.OrganizationID, a.InitiatedBy, a.Status, a.ActionType, a.ReasonCategory,
		nullString(a.ReasonDetails), nullString(a.BackgroundCheckProvider), a.WaitingPeriodDays, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("adverseActionRepository.Create", err, "applicationID", a.ApplicationID)
		return err
	}

	a.UpdatedAt = a.CreatedAt
	logger.ExitMethod("adverseActionRepository.Create", "adverseActionID", a.ID)
	return nil
}

func (r *adverseActionRepository) GetByID(ctx context.Context, id int32) (*domain.AdverseAction, error) {
	a := &domain.AdverseAction{}
	query := `SELECT ` + adverseActionColumns + ` FROM adverse_actions WHERE id = $1`
	if err := scanAdverseAction(r.db.QueryRowContext(ctx, query, id).Scan, a); err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *adverseActionRepository) GetForUpdate(ctx context.Context, id int32) (*domain.AdverseAction, error) {
	a := &domain.AdverseAction{}
	query := `SELECT ` + adverseActionColumns + ` FROM adverse_actions WHERE id = $1 FOR UPDATE`
	if err := scanAdverseAction(r.db.QueryRowContext(ctx, query, id).Scan, a); err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *adverseActionRepository) HasActive(ctx context.Context, applicationID int32) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM adverse_actions
	          WHERE application_id = $1 AND status NOT IN ('completed', 'cancelled'))`
	err := r.db.QueryRowContext(ctx, query, applicationID).Scan(&exists)
	return exists, err
}

func (r *adverseActionRepository) Update(ctx context.Context, a *domain.AdverseAction, from domain.AdverseActionStatus) error {
	logger.DatabaseCall("UPDATE", "adverse_actions", "adverseActionID", a.ID, "from", from, "to", a.Status)

	query := `UPDATE adverse_actions SET
			status = $1, pre_adverse_sent_at = $2, pre_adverse_content = $3, pre_adverse_delivery_method = $4,
			waiting_period_ends_at = $5, candidate_disputed = $6, dispute_details = $7, dispute_received_at = $8,
			final_adverse_sent_at = $9, final_adverse_content = $10, final_adverse_delivery_method = $11,
			cancelled_at = $12, cancelled_by = $13, cancelled_reason = $14, updated_at = $15
		WHERE id = $16 AND status = $17`
	result, err := r.db.ExecContext(ctx, query,
		a.Status, a.PreAdverseSentAt, nullString(a.PreAdverseContent), a.PreAdverseDeliveryMethod,
		a.WaitingPeriodEndsAt, a.CandidateDisputed, nullString(a.DisputeDetails), a.DisputeReceivedAt,
		a.FinalAdverseSentAt, nullString(a.FinalAdverseContent), a.FinalAdverseDeliveryMethod,
		a.CancelledAt, a.CancelledBy, nullString(a.CancelledReason), a.UpdatedAt,
		a.ID, from,
	)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	return expectOneRow(result)
}

// ListWaitingPeriodEnded returns actions whose waiting period is over but
// whose final notice has not been sent.
func (r *adverseActionRepository) ListWaitingPeriodEnded(ctx context.Context, now time.Time) ([]domain.AdverseAction, error) {
	query := `SELECT ` + adverseActionColumns + ` FROM adverse_actions
	          WHERE status = 'waiting_period' AND waiting_period_ends_at <= $1
	          ORDER BY waiting_period_ends_at, id`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AdverseAction
	for rows.Next() {
		var a domain.AdverseAction
		if err := scanAdverseAction(rows.Scan, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
