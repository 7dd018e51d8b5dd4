package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskhive/deskhive/internal/domain"
)

// CategoryRepository handles persistence for categories and agent
// eligibility assignments.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	ListByOrganization(ctx context.Context, orgID string, activeOnly bool) ([]domain.Category, error)
	AssignAgent(ctx context.Context, userID, categoryID string) error
	UnassignAgent(ctx context.Context, userID, categoryID string) error
	ListAssignmentsForUser(ctx context.Context, userID string) ([]domain.CategoryAssignment, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository instantiates the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

const categoryColumns = `id, organization_id, name, description, keywords, is_active,
        auto_assign_enabled, response_sla_minutes, resolution_sla_minutes, priority_level,
        created_at, updated_at`

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (organization_id, name, description, keywords, is_active,
                                auto_assign_enabled, response_sla_minutes, resolution_sla_minutes, priority_level)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		category.OrganizationID,
		category.Name,
		category.Description,
		category.Keywords,
		category.IsActive,
		category.AutoAssignEnabled,
		category.ResponseSLAMinutes,
		category.ResolutionSLAMinutes,
		category.PriorityLevel,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
        UPDATE categories
        SET name=$1, description=$2, keywords=$3, is_active=$4, auto_assign_enabled=$5,
            response_sla_minutes=$6, resolution_sla_minutes=$7, priority_level=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		category.Name,
		category.Description,
		category.Keywords,
		category.IsActive,
		category.AutoAssignEnabled,
		category.ResponseSLAMinutes,
		category.ResolutionSLAMinutes,
		category.PriorityLevel,
		category.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
        SELECT ` + categoryColumns + `
        FROM categories WHERE id=$1`

	var category domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.OrganizationID,
		&category.Name,
		&category.Description,
		&category.Keywords,
		&category.IsActive,
		&category.AutoAssignEnabled,
		&category.ResponseSLAMinutes,
		&category.ResolutionSLAMinutes,
		&category.PriorityLevel,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) ListByOrganization(ctx context.Context, orgID string, activeOnly bool) ([]domain.Category, error) {
	query := `
        SELECT ` + categoryColumns + `
        FROM categories WHERE organization_id=$1`
	if activeOnly {
		query += ` AND is_active=TRUE`
	}
	query += ` ORDER BY priority_level ASC, name ASC`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(
			&category.ID,
			&category.OrganizationID,
			&category.Name,
			&category.Description,
			&category.Keywords,
			&category.IsActive,
			&category.AutoAssignEnabled,
			&category.ResponseSLAMinutes,
			&category.ResolutionSLAMinutes,
			&category.PriorityLevel,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) AssignAgent(ctx context.Context, userID, categoryID string) error {
	const query = `
        INSERT INTO category_assignments (user_id, category_id)
        VALUES ($1,$2)
        ON CONFLICT (user_id, category_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, userID, categoryID)
	return err
}

func (r *categoryRepository) UnassignAgent(ctx context.Context, userID, categoryID string) error {
	const query = `DELETE FROM category_assignments WHERE user_id=$1 AND category_id=$2`
	_, err := r.pool.Exec(ctx, query, userID, categoryID)
	return err
}

func (r *categoryRepository) ListAssignmentsForUser(ctx context.Context, userID string) ([]domain.CategoryAssignment, error) {
	const query = `
        SELECT id, user_id, category_id, created_at
        FROM category_assignments WHERE user_id=$1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CategoryAssignment
	for rows.Next() {
		var assignment domain.CategoryAssignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.UserID,
			&assignment.CategoryID,
			&assignment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	return result, rows.Err()
}
