package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssignmentRepository commits the ticket+agent assignment pair as a
// single transaction: the ticket row (assigned_agent_id, status,
// assigned_at) and the agent row (last_assigned_at) are written together
// or not at all.
type AssignmentRepository interface {
	AssignTicketToAgent(ctx context.Context, ticketID, agentID string, at time.Time) error
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) AssignTicketToAgent(ctx context.Context, ticketID, agentID string, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const ticketQuery = `
        UPDATE tickets
        SET assigned_agent_id=$1, status='assigned', assigned_at=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := tx.Exec(ctx, ticketQuery, agentID, at, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	const agentQuery = `UPDATE users SET last_assigned_at=$1, updated_at=NOW() WHERE id=$2`
	cmd, err = tx.Exec(ctx, agentQuery, at, agentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}
