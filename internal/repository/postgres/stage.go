package postgres

import (
	"context"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
)

type stageRepository struct {
	db DBTX
}

// NewStageRepository returns a repository that also serves as the
// StageCatalog read model.
func NewStageRepository(db DBTX) *stageRepository {
	return &stageRepository{db: db}
}

var (
	_ repository.StageRepository = (*stageRepository)(nil)
	_ repository.StageCatalog    = (*stageRepository)(nil)
)

func (r *stageRepository) GetByID(ctx context.Context, id int32) (*domain.Stage, error) {
	s := &domain.Stage{}
	query := `SELECT id, organization_id, name, position, stage_type FROM stages WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.OrganizationID, &s.Name, &s.Position, &s.StageType)
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

func (r *stageRepository) FindOrCreateRejected(ctx context.Context, orgID int32) (*domain.Stage, error) {
	logger.EnterMethod("stageRepository.FindOrCreateRejected", "orgID", orgID)

	// uq_stages_org_rejected makes the insert a no-op for every caller but the first.
	insert := `INSERT INTO stages (organization_id, name, position, stage_type)
	           VALUES ($1, $2, 1000, 'rejected')
	           ON CONFLICT (organization_id) WHERE stage_type = 'rejected' DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, orgID, domain.RejectedStageName); err != nil {
		logger.ExitMethodWithError("stageRepository.FindOrCreateRejected", err, "orgID", orgID)
		return nil, err
	}

	s := &domain.Stage{}
	query := `SELECT id, organization_id, name, position, stage_type FROM stages
	          WHERE organization_id = $1 AND stage_type = 'rejected'`
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(&s.ID, &s.OrganizationID, &s.Name, &s.Position, &s.StageType)
	if err != nil {
		logger.ExitMethodWithError("stageRepository.FindOrCreateRejected", err, "orgID", orgID)
		return nil, mapError(err)
	}

	logger.ExitMethod("stageRepository.FindOrCreateRejected", "stageID", s.ID)
	return s, nil
}

// StagesFor lists the stages configured for a job, in pipeline order.
func (r *stageRepository) StagesFor(ctx context.Context, jobID int32) ([]domain.Stage, error) {
	query := `SELECT s.id, s.organization_id, s.name, s.position, s.stage_type
	          FROM job_stages js JOIN stages s ON s.id = js.stage_id
	          WHERE js.job_id = $1 ORDER BY s.position, s.id`
	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []domain.Stage
	for rows.Next() {
		var s domain.Stage
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.Name, &s.Position, &s.StageType); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

type stageTransitionRepository struct {
	db DBTX
}

func NewStageTransitionRepository(db DBTX) repository.StageTransitionRepository {
	return &stageTransitionRepository{db: db}
}

func (r *stageTransitionRepository) Create(ctx context.Context, t *domain.StageTransition) error {
	logger.DatabaseCall("INSERT", "stage_transitions", "applicationID", t.ApplicationID, "toStageID", t.ToStageID)
	query := `INSERT INTO stage_transitions (application_id, from_stage_id, to_stage_id, moved_by, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		t.ApplicationID, t.FromStageID, t.ToStageID, t.MovedBy, t.Notes, t.CreatedAt,
	).Scan(&t.ID)
	logger.DatabaseResult("INSERT", 1, err, "transitionID", t.ID)
	return err
}

func (r *stageTransitionRepository) ListByApplication(ctx context.Context, applicationID int32) ([]domain.StageTransition, error) {
	query := `SELECT id, application_id, from_stage_id, to_stage_id, moved_by, COALESCE(notes, ''), created_at
	          FROM stage_transitions WHERE application_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []domain.StageTransition
	for rows.Next() {
		var t domain.StageTransition
		if err := rows.Scan(&t.ID, &t.ApplicationID, &t.FromStageID, &t.ToStageID, &t.MovedBy, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}

type rejectionReasonRepository struct {
	db DBTX
}

func NewRejectionReasonRepository(db DBTX) repository.RejectionReasonRepository {
	return &rejectionReasonRepository{db: db}
}

func (r *rejectionReasonRepository) GetByID(ctx context.Context, id int32) (*domain.RejectionReason, error) {
	rr := &domain.RejectionReason{}
	query := `SELECT id, organization_id, name FROM rejection_reasons WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&rr.ID, &rr.OrganizationID, &rr.Name); err != nil {
		return nil, mapError(err)
	}
	return rr, nil
}
