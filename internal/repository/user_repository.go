package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskhive/deskhive/internal/domain"
)

// UserFilter defines query params for member listing.
type UserFilter struct {
	OrganizationID *string
	Role           *domain.UserRole
	Status         *domain.UserStatus
	Active         *bool
	Limit          int
	Offset         int
}

// UserRepository handles persistence for organization members.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	// ListAssignableAgents returns agents eligible for new assignments:
	// role=agent, is_active, status=active.
	ListAssignableAgents(ctx context.Context, orgID string) ([]domain.User, error)
	// ListAssignableAgentsForCategory narrows assignable agents to those
	// holding a category assignment for the given category.
	ListAssignableAgentsForCategory(ctx context.Context, orgID, categoryID string) ([]domain.User, error)
	UpdateLastAssigned(ctx context.Context, userID string, at time.Time) error
	CountAgents(ctx context.Context, orgID string) (int, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates the repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, organization_id, email, name, phone, password_hash, role, status,
        last_assigned_at, is_active, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (organization_id, email, name, phone, password_hash, role, status, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.OrganizationID,
		user.Email,
		user.Name,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users
        SET email=$1, name=$2, phone=$3, password_hash=$4, role=$5, status=$6,
            last_assigned_at=$7, is_active=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		user.Email,
		user.Name,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.LastAssignedAt,
		user.IsActive,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id=$1`, userColumns)
	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email=$1`, userColumns)
	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, email), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users`, userColumns)
	args := []any{}
	clauses := []string{}

	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("organization_id=$%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) ListAssignableAgents(ctx context.Context, orgID string) ([]domain.User, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM users
        WHERE organization_id=$1 AND role='agent' AND is_active=TRUE AND status='active'
        ORDER BY created_at ASC`, userColumns)

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) ListAssignableAgentsForCategory(ctx context.Context, orgID, categoryID string) ([]domain.User, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM users u
        WHERE u.organization_id=$1 AND u.role='agent' AND u.is_active=TRUE AND u.status='active'
          AND EXISTS (
              SELECT 1 FROM category_assignments ca
              WHERE ca.user_id = u.id AND ca.category_id = $2
          )
        ORDER BY u.created_at ASC`, prefixedUserColumns("u"))

	rows, err := r.pool.Query(ctx, query, orgID, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) UpdateLastAssigned(ctx context.Context, userID string, at time.Time) error {
	const query = `UPDATE users SET last_assigned_at=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) CountAgents(ctx context.Context, orgID string) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE organization_id=$1 AND role='agent' AND is_active=TRUE`
	var count int
	if err := r.pool.QueryRow(ctx, query, orgID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func prefixedUserColumns(alias string) string {
	cols := strings.Split(userColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.OrganizationID,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.LastAssignedAt,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.OrganizationID,
			&user.Email,
			&user.Name,
			&user.Phone,
			&user.PasswordHash,
			&user.Role,
			&user.Status,
			&user.LastAssignedAt,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
