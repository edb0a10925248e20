package postgres

import (
	"context"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/repository"
)

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, name FROM users WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name); err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

type memberRepository struct {
	db DBTX
}

func NewMemberRepository(db DBTX) repository.MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Get(ctx context.Context, orgID, userID int32) (*domain.Member, error) {
	m := &domain.Member{}
	query := `SELECT user_id, org_id, role, active FROM users_orgs WHERE org_id = $1 AND user_id = $2`
	if err := r.db.QueryRowContext(ctx, query, orgID, userID).Scan(&m.UserID, &m.OrganizationID, &m.Role, &m.Active); err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

func (r *memberRepository) ListAdmins(ctx context.Context, orgID int32) ([]domain.Member, error) {
	query := `SELECT user_id, org_id, role, active FROM users_orgs
	          WHERE org_id = $1 AND role = 'admin' AND active ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.OrganizationID, &m.Role, &m.Active); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
