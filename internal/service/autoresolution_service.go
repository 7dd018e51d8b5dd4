package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/ai"
	"github.com/deskhive/deskhive/internal/cache"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/events"
	"github.com/deskhive/deskhive/internal/observability"
	"github.com/deskhive/deskhive/internal/queue"
	"github.com/deskhive/deskhive/internal/repository"
	apperrors "github.com/deskhive/deskhive/pkg/util/errorutil"
)

// AutoResolutionService attempts automatic resolution of low-criticality
// tickets. A failed attempt never drops the ticket: it falls back to
// human assignment.
type AutoResolutionService struct {
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	categories  repository.CategoryRepository
	resolver    ai.Resolver
	enhancer    ai.Enhancer
	assignments *AssignmentService
	cache       *cache.TicketCache
	publisher   queue.Publisher
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// AutoResolutionDependencies bundles collaborators.
type AutoResolutionDependencies struct {
	TicketRepo   repository.TicketRepository
	MessageRepo  repository.TicketMessageRepository
	CategoryRepo repository.CategoryRepository
	Resolver     ai.Resolver
	Enhancer     ai.Enhancer
	Assignments  *AssignmentService
	Cache        *cache.TicketCache
	Publisher    queue.Publisher
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewAutoResolutionService creates the service.
func NewAutoResolutionService(deps AutoResolutionDependencies) *AutoResolutionService {
	return &AutoResolutionService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		categories:  deps.CategoryRepo,
		resolver:    deps.Resolver,
		enhancer:    deps.Enhancer,
		assignments: deps.Assignments,
		cache:       deps.Cache,
		publisher:   deps.Publisher,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// ResolveTicket runs one auto-resolution attempt.
func (s *AutoResolutionService) ResolveTicket(ctx context.Context, ticketID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	if ticket.Assigned() || !ticket.Status.IsActive() {
		return nil
	}

	categoryName := ""
	if ticket.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *ticket.CategoryID)
		if err == nil {
			categoryName = category.Name
		}
	}

	outcome, err := s.resolver.GenerateSolution(ctx, ticket, categoryName)
	if err != nil {
		// Infrastructure error: let the queue retry; its fallback forces
		// human assignment after the retry budget.
		s.metrics.AutoResolveTotal.WithLabelValues("error").Inc()
		return apperrors.MapError(err)
	}
	if !outcome.Resolved {
		s.logger.Info("auto-resolution declined, assigning to agent",
			zap.String("ticket_id", ticket.ID),
			zap.String("reason", outcome.Reason))
		s.metrics.AutoResolveTotal.WithLabelValues("fallback").Inc()
		_, err := s.assignments.AssignToAvailableAgent(ctx, ticket.ID)
		return err
	}

	text := outcome.Text
	if s.enhancer != nil {
		if enhanced, err := s.enhancer.Enhance(ctx, text, "friendly"); err == nil && enhanced != "" {
			text = enhanced
		}
	}

	now := time.Now()
	rt := domain.ResolutionTypeAuto
	ticket.Status = domain.TicketStatusResolved
	ticket.Resolution = &text
	ticket.ResolutionType = &rt
	ticket.ResolvedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return apperrors.MapError(err)
	}
	_ = s.cache.Invalidate(ctx, ticket.ID)
	s.metrics.AutoResolveTotal.WithLabelValues("resolved").Inc()

	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: domain.SenderTypeSystem,
		Body:       text,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		s.logger.Error("recording auto-resolution message failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	// Deliver the answer back over the intake channel.
	if err := s.publisher.Publish(ctx, queue.QueueNotifications, queue.Task{
		Action:   queue.ActionReply,
		TicketID: ticket.ID,
		Meta:     map[string]string{"channel": string(ticket.Channel)},
	}); err != nil {
		s.logger.Error("enqueue channel reply failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:           events.EventTicketAutoResolved,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          systemActor(),
		Payload: events.TicketResolvedPayload{
			ResolutionType: rt,
			Resolution:     text,
		},
	})
	return nil
}
