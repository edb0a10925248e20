package postgres

import (
	"context"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
)

const applicationColumns = `id, organization_id, job_id, candidate_id, status, current_stage_id,
	last_activity_at, discarded_at, i9_required, i9_status, created_at, updated_at`

type applicationRepository struct {
	db DBTX
}

func NewApplicationRepository(db DBTX) repository.ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) get(ctx context.Context, query string, id int32) (*domain.Application, error) {
	a := &domain.Application{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.OrganizationID, &a.JobID, &a.CandidateID, &a.Status, &a.CurrentStageID,
		&a.LastActivityAt, &a.DiscardedAt, &a.I9Required, &a.I9Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id int32) (*domain.Application, error) {
	return r.get(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
}

func (r *applicationRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Application, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "applications", "applicationID", id)
	a, err := r.get(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, id)
	logger.DatabaseResult("SELECT FOR UPDATE", 1, err, "applicationID", id)
	return a, err
}

func (r *applicationRepository) UpdateStage(ctx context.Context, id, stageID int32, at time.Time) error {
	query := `UPDATE applications SET current_stage_id = $1, last_activity_at = $2, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, stageID, at, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id int32, from, to domain.ApplicationStatus, at time.Time) error {
	logger.DatabaseCall("UPDATE", "applications", "applicationID", id, "from", from, "to", to)
	query := `UPDATE applications SET status = $1, last_activity_at = $2, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	return expectOneRow(result)
}

func (r *applicationRepository) UpdateI9Status(ctx context.Context, id int32, status domain.I9Status, at time.Time) error {
	query := `UPDATE applications SET i9_status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, at, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

type candidateRepository struct {
	db DBTX
}

func NewCandidateRepository(db DBTX) repository.CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) GetByID(ctx context.Context, id int32) (*domain.Candidate, error) {
	c := &domain.Candidate{}
	query := `SELECT id, organization_id, first_name, COALESCE(last_name, ''), COALESCE(email, '') FROM candidates WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.OrganizationID, &c.FirstName, &c.LastName, &c.Email)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}
