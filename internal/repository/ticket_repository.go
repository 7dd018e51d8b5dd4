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

// TicketFilter captures ticket search parameters.
type TicketFilter struct {
	OrganizationID  *string
	CustomerID      *string
	CategoryID      *string
	AssignedAgentID *string
	Unassigned      bool
	Statuses        []domain.TicketStatus
	Criticalities   []domain.Criticality
	SearchTerm      *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// SLACandidate pairs an unresolved ticket with its category's SLA minutes
// for the periodic breach sweep.
type SLACandidate struct {
	Ticket               domain.Ticket
	ResponseSLAMinutes   int
	ResolutionSLAMinutes int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// CountActiveByAgent returns the agent's live unresolved-ticket count.
	// Always queried fresh; never cached.
	CountActiveByAgent(ctx context.Context, agentID string) (int, error)
	CountByOrganizationSince(ctx context.Context, orgID string, since time.Time) (int, error)
	// ListUnassignedSince returns tickets without an agent whose last
	// update is older than the cutoff, for the assignment retry sweep.
	ListUnassignedSince(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error)
	// ListSLACandidates returns unresolved categorized tickets joined with
	// their category SLA configuration.
	ListSLACandidates(ctx context.Context, limit int) ([]SLACandidate, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, organization_id, customer_id, category_id, assigned_agent_id,
               subject, description, channel, criticality, confidence_score, status,
               resolution, resolution_type, estimated_time,
               assigned_at, resolved_at, closed_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (organization_id, customer_id, category_id, assigned_agent_id,
                             subject, description, channel, criticality, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.OrganizationID,
		ticket.CustomerID,
		ticket.CategoryID,
		ticket.AssignedAgentID,
		ticket.Subject,
		ticket.Description,
		ticket.Channel,
		ticket.Criticality,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET category_id=$1, assigned_agent_id=$2, subject=$3, description=$4,
            criticality=$5, confidence_score=$6, status=$7, resolution=$8, resolution_type=$9,
            estimated_time=$10, assigned_at=$11, resolved_at=$12, closed_at=$13, updated_at=NOW()
        WHERE id=$14`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.CategoryID,
		ticket.AssignedAgentID,
		ticket.Subject,
		ticket.Description,
		ticket.Criticality,
		ticket.ConfidenceScore,
		ticket.Status,
		ticket.Resolution,
		ticket.ResolutionType,
		ticket.EstimatedTime,
		ticket.AssignedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("organization_id=$%d", len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_agent_id IS NULL")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Criticalities) > 0 {
		placeholders := make([]string, len(filter.Criticalities))
		for i, crit := range filter.Criticalities {
			args = append(args, crit)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("criticality IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountActiveByAgent(ctx context.Context, agentID string) (int, error) {
	placeholders := make([]string, len(domain.ActiveStatuses))
	args := []any{agentID}
	for i, status := range domain.ActiveStatuses {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE assigned_agent_id=$1 AND status IN (%s)`,
		strings.Join(placeholders, ","))

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) CountByOrganizationSince(ctx context.Context, orgID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE organization_id=$1 AND created_at >= $2`
	var count int
	if err := r.pool.QueryRow(ctx, query, orgID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) ListUnassignedSince(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE assigned_agent_id IS NULL
          AND status IN ('new','open','pending')
          AND updated_at <= $1
        ORDER BY created_at ASC LIMIT %d`, ticketColumns, limit)

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListSLACandidates(ctx context.Context, limit int) ([]SLACandidate, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`
        SELECT %s, c.response_sla_minutes, c.resolution_sla_minutes
        FROM tickets t
        JOIN categories c ON c.id = t.category_id
        WHERE t.status NOT IN ('resolved','closed')
        ORDER BY t.created_at ASC LIMIT %d`, prefixedTicketColumns("t"), limit)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SLACandidate
	for rows.Next() {
		var candidate SLACandidate
		if err := rows.Scan(
			ticketScanTargets(&candidate.Ticket,
				&candidate.ResponseSLAMinutes,
				&candidate.ResolutionSLAMinutes)...,
		); err != nil {
			return nil, err
		}
		result = append(result, candidate)
	}
	return result, rows.Err()
}

func prefixedTicketColumns(alias string) string {
	cols := strings.Split(ticketColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

func ticketScanTargets(ticket *domain.Ticket, extra ...any) []any {
	targets := []any{
		&ticket.ID,
		&ticket.OrganizationID,
		&ticket.CustomerID,
		&ticket.CategoryID,
		&ticket.AssignedAgentID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Channel,
		&ticket.Criticality,
		&ticket.ConfidenceScore,
		&ticket.Status,
		&ticket.Resolution,
		&ticket.ResolutionType,
		&ticket.EstimatedTime,
		&ticket.AssignedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	}
	return append(targets, extra...)
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(ticketScanTargets(ticket)...)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketScanTargets(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
