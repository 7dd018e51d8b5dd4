package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/cache"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/events"
	"github.com/deskhive/deskhive/internal/observability"
	"github.com/deskhive/deskhive/internal/repository"
	apperrors "github.com/deskhive/deskhive/pkg/util/errorutil"
)

// AssignmentService balances tickets across agents. Candidates are ranked
// by (active ticket count, last_assigned_at): fewest open tickets first,
// ties broken by who was assigned longest ago, never-assigned agents
// before everyone else.
type AssignmentService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	assignments repository.AssignmentRepository
	cache       *cache.TicketCache
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo     repository.TicketRepository
	UserRepo       repository.UserRepository
	AssignmentRepo repository.AssignmentRepository
	Cache          *cache.TicketCache
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		assignments: deps.AssignmentRepo,
		cache:       deps.Cache,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// SelectAgent picks the least-loaded candidate from the pool. Counts are
// queried live for every call. Returns nil when the pool is empty.
func (s *AssignmentService) SelectAgent(ctx context.Context, candidates []domain.User) (*domain.User, error) {
	var best *domain.User
	bestCount := 0
	for i := range candidates {
		candidate := &candidates[i]
		count, err := s.tickets.CountActiveByAgent(ctx, candidate.ID)
		if err != nil {
			return nil, err
		}
		if best == nil || count < bestCount ||
			(count == bestCount && lessAssigned(candidate.LastAssignedAt, best.LastAssignedAt)) {
			best = candidate
			bestCount = count
		}
	}
	return best, nil
}

// lessAssigned reports whether a was assigned strictly longer ago than b.
// A nil timestamp means never assigned and sorts before everything.
func lessAssigned(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return true
	case b == nil:
		return false
	default:
		return a.Before(*b)
	}
}

// AssignToAvailableAgent assigns the ticket to the best available agent.
// Already-assigned tickets are left untouched and the current agent is
// returned. When no agent is eligible the ticket stays unassigned and
// (nil, nil) is returned; the periodic sweep retries later.
func (s *AssignmentService) AssignToAvailableAgent(ctx context.Context, ticketID string) (*domain.User, error) {
	return s.assign(ctx, ticketID, false)
}

// ForceAssign ignores category eligibility and assigns from the full
// agent pool. Used as the safety net when automated processing has
// exhausted its retries: the ticket must reach a human.
func (s *AssignmentService) ForceAssign(ctx context.Context, ticketID string) (*domain.User, error) {
	return s.assign(ctx, ticketID, true)
}

func (s *AssignmentService) assign(ctx context.Context, ticketID string, ignoreCategory bool) (*domain.User, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	if ticket.Assigned() {
		s.metrics.AssignmentTotal.WithLabelValues("skipped").Inc()
		agent, err := s.users.GetByID(ctx, *ticket.AssignedAgentID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return agent, nil
	}

	// Resolved and closed tickets are past assignment; a late requeue or
	// exhausted-retry fallback must not reopen them.
	if !ticket.Status.IsActive() {
		s.metrics.AssignmentTotal.WithLabelValues("skipped").Inc()
		return nil, nil
	}

	candidates, err := s.candidatePool(ctx, ticket, ignoreCategory)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	agent, err := s.SelectAgent(ctx, candidates)
	if err != nil {
		s.metrics.AssignmentTotal.WithLabelValues("error").Inc()
		return nil, apperrors.MapError(err)
	}
	if agent == nil {
		s.logger.Warn("no available agent",
			zap.String("ticket_id", ticket.ID),
			zap.String("organization_id", ticket.OrganizationID))
		s.metrics.AssignmentTotal.WithLabelValues("no_agent").Inc()
		return nil, nil
	}

	now := time.Now()
	if err := s.assignments.AssignTicketToAgent(ctx, ticket.ID, agent.ID, now); err != nil {
		s.metrics.AssignmentTotal.WithLabelValues("error").Inc()
		return nil, apperrors.MapError(err)
	}
	s.metrics.AssignmentTotal.WithLabelValues("assigned").Inc()
	_ = s.cache.Invalidate(ctx, ticket.ID)

	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("agent_id", agent.ID))

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:           events.EventTicketAssigned,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          systemActor(),
		Timestamp:      now,
		Payload: events.TicketAssignedPayload{
			AgentID: agent.ID,
			Subject: ticket.Subject,
		},
	})
	return agent, nil
}

// candidatePool narrows to category-eligible agents when the ticket is
// categorized. An uncategorized ticket draws from the whole organization.
func (s *AssignmentService) candidatePool(ctx context.Context, ticket *domain.Ticket, ignoreCategory bool) ([]domain.User, error) {
	if !ignoreCategory && ticket.CategoryID != nil {
		return s.users.ListAssignableAgentsForCategory(ctx, ticket.OrganizationID, *ticket.CategoryID)
	}
	return s.users.ListAssignableAgents(ctx, ticket.OrganizationID)
}
