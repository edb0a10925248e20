package postgres

import (
	"context"
	"fmt"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
)

type jobRepository struct {
	db DBTX
}

func NewJobRepository(db DBTX) repository.JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) GetByID(ctx context.Context, id int32) (*domain.Job, error) {
	j := &domain.Job{}
	query := `SELECT id, organization_id, title, status, owner_id, hiring_manager_id FROM jobs WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&j.ID, &j.OrganizationID, &j.Title, &j.Status, &j.OwnerID, &j.HiringManagerID)
	if err != nil {
		return nil, mapError(err)
	}
	return j, nil
}

type offerRepository struct {
	db DBTX
}

func NewOfferRepository(db DBTX) repository.OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) GetByID(ctx context.Context, id int32) (*domain.Offer, error) {
	o := &domain.Offer{}
	query := `SELECT id, application_id, status, salary, start_date, created_by FROM offers WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.ApplicationID, &o.Status, &o.Salary, &o.StartDate, &o.CreatedBy)
	if err != nil {
		return nil, mapError(err)
	}
	return o, nil
}

type approvableRepository struct {
	db DBTX
}

func NewApprovableRepository(db DBTX) repository.ApprovableRepository {
	return &approvableRepository{db: db}
}

func approvableTable(t domain.ApprovableType) (string, error) {
	switch t {
	case domain.ApprovableOffer:
		return "offers", nil
	case domain.ApprovableJob:
		return "jobs", nil
	}
	return "", fmt.Errorf("unknown approvable type %q", t)
}

func (r *approvableRepository) Lock(ctx context.Context, ref domain.ApprovableRef) (int32, domain.ApprovableStatus, error) {
	var query string
	switch ref.Type {
	case domain.ApprovableOffer:
		query = `SELECT a.organization_id, o.status FROM offers o
		         JOIN applications a ON a.id = o.application_id
		         WHERE o.id = $1 FOR UPDATE OF o`
	case domain.ApprovableJob:
		query = `SELECT organization_id, status FROM jobs WHERE id = $1 FOR UPDATE`
	default:
		return 0, "", fmt.Errorf("unknown approvable type %q", ref.Type)
	}

	var orgID int32
	var status domain.ApprovableStatus
	logger.DatabaseCall("SELECT FOR UPDATE", string(ref.Type), "id", ref.ID)
	if err := r.db.QueryRowContext(ctx, query, ref.ID).Scan(&orgID, &status); err != nil {
		return 0, "", mapError(err)
	}
	return orgID, status, nil
}

func (r *approvableRepository) SetStatus(ctx context.Context, ref domain.ApprovableRef, from, to domain.ApprovableStatus) error {
	table, err := approvableTable(ref.Type)
	if err != nil {
		return err
	}
	query := `UPDATE ` + table + ` SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, to, ref.ID, from)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}
