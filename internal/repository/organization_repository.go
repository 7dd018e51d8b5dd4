package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskhive/deskhive/internal/domain"
)

// OrganizationRepository handles persistence for tenants.
type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	Update(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
}

type organizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository instantiates the repository.
func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	const query = `
        INSERT INTO organizations (name, sector, employee_count, plan, monthly_ticket_limit, agent_limit, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		org.Name,
		org.Sector,
		org.EmployeeCount,
		org.Plan,
		org.MonthlyTicketLimit,
		org.AgentLimit,
		org.IsActive,
	).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
}

func (r *organizationRepository) Update(ctx context.Context, org *domain.Organization) error {
	const query = `
        UPDATE organizations
        SET name=$1, sector=$2, employee_count=$3, plan=$4, monthly_ticket_limit=$5,
            agent_limit=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		org.Name,
		org.Sector,
		org.EmployeeCount,
		org.Plan,
		org.MonthlyTicketLimit,
		org.AgentLimit,
		org.IsActive,
		org.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	const query = `
        SELECT id, name, sector, employee_count, plan, monthly_ticket_limit, agent_limit,
               is_active, created_at, updated_at
        FROM organizations WHERE id=$1`

	var org domain.Organization
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.Sector,
		&org.EmployeeCount,
		&org.Plan,
		&org.MonthlyTicketLimit,
		&org.AgentLimit,
		&org.IsActive,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &org, nil
}
