package postgres

import (
	"context"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/repository"
)

type organizationRepository struct {
	db DBTX
}

func NewOrganizationRepository(db DBTX) repository.OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) GetByID(ctx context.Context, id int32) (*domain.Organization, error) {
	o := &domain.Organization{}
	query := `SELECT id, name, COALESCE(address, ''), requires_everify, created_on FROM orgs WHERE id = $1`
	var createdOn time.Time
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.Name, &o.Address, &o.RequiresEVerify, &createdOn)
	if err != nil {
		return nil, mapError(err)
	}
	o.CreatedOn = createdOn.Format("2006-01-02")
	return o, nil
}
