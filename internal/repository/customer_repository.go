package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskhive/deskhive/internal/domain"
)

// CustomerRepository handles persistence for external requesters.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByChannelIdentifier(ctx context.Context, orgID string, channel domain.Channel, identifier string) (*domain.Customer, error)
	// Upsert finds-or-creates the customer keyed by (org, channel, identifier).
	Upsert(ctx context.Context, customer *domain.Customer) error
	ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]domain.Customer, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository instantiates the repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const customerColumns = `id, organization_id, email, name, phone, channel, channel_identifier,
        created_at, updated_at`

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const query = `
        INSERT INTO customers (organization_id, email, name, phone, channel, channel_identifier)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		customer.OrganizationID,
		customer.Email,
		customer.Name,
		customer.Phone,
		customer.Channel,
		customer.ChannelIdentifier,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	const query = `SELECT ` + customerColumns + ` FROM customers WHERE id=$1`
	var customer domain.Customer
	if err := scanCustomer(r.pool.QueryRow(ctx, query, id), &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) GetByChannelIdentifier(ctx context.Context, orgID string, channel domain.Channel, identifier string) (*domain.Customer, error) {
	const query = `
        SELECT ` + customerColumns + `
        FROM customers WHERE organization_id=$1 AND channel=$2 AND channel_identifier=$3`
	var customer domain.Customer
	if err := scanCustomer(r.pool.QueryRow(ctx, query, orgID, channel, identifier), &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) Upsert(ctx context.Context, customer *domain.Customer) error {
	const query = `
        INSERT INTO customers (organization_id, email, name, phone, channel, channel_identifier)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (organization_id, channel, channel_identifier)
        DO UPDATE SET email=EXCLUDED.email, name=COALESCE(EXCLUDED.name, customers.name), updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		customer.OrganizationID,
		customer.Email,
		customer.Name,
		customer.Phone,
		customer.Channel,
		customer.ChannelIdentifier,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
}

func (r *customerRepository) ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT ` + customerColumns + `
        FROM customers WHERE organization_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Customer
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(
			&customer.ID,
			&customer.OrganizationID,
			&customer.Email,
			&customer.Name,
			&customer.Phone,
			&customer.Channel,
			&customer.ChannelIdentifier,
			&customer.CreatedAt,
			&customer.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, customer)
	}
	return result, rows.Err()
}

func scanCustomer(row pgx.Row, customer *domain.Customer) error {
	return row.Scan(
		&customer.ID,
		&customer.OrganizationID,
		&customer.Email,
		&customer.Name,
		&customer.Phone,
		&customer.Channel,
		&customer.ChannelIdentifier,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
}
