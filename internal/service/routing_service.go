package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/cache"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/events"
	"github.com/deskhive/deskhive/internal/queue"
	"github.com/deskhive/deskhive/internal/repository"
	apperrors "github.com/deskhive/deskhive/pkg/util/errorutil"
)

// RoutingService decides what happens to a classified ticket: low
// criticality goes to automated resolution, everything else (including
// unclassifiable tickets) goes to a human agent.
type RoutingService struct {
	tickets     repository.TicketRepository
	assignments *AssignmentService
	cache       *cache.TicketCache
	publisher   queue.Publisher
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// RoutingDependencies bundles collaborators.
type RoutingDependencies struct {
	TicketRepo  repository.TicketRepository
	Assignments *AssignmentService
	Cache       *cache.TicketCache
	Publisher   queue.Publisher
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewRoutingService creates the service.
func NewRoutingService(deps RoutingDependencies) *RoutingService {
	return &RoutingService{
		tickets:     deps.TicketRepo,
		assignments: deps.Assignments,
		cache:       deps.Cache,
		publisher:   deps.Publisher,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// RouteTicket dispatches the ticket down the auto-resolution or human
// path based on its criticality.
func (s *RoutingService) RouteTicket(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.Assigned() || !ticket.Status.IsActive() {
		return nil
	}

	switch ticket.Criticality {
	case domain.CriticalityLow:
		s.logger.Info("routing to auto-resolution",
			zap.String("ticket_id", ticket.ID))
		if err := s.publisher.Publish(ctx, queue.QueueProcessing, queue.Task{
			Action:   queue.ActionAutoResolve,
			TicketID: ticket.ID,
		}); err != nil {
			// Queue failure must not strand the ticket; hand it to a human.
			s.logger.Error("enqueue auto-resolution failed, assigning to agent",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
			return s.routeToHuman(ctx, ticket)
		}
		return nil
	default:
		return s.routeToHuman(ctx, ticket)
	}
}

func (s *RoutingService) routeToHuman(ctx context.Context, ticket *domain.Ticket) error {
	oldStatus := ticket.Status
	if ticket.Status == domain.TicketStatusNew || ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusPending
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		_ = s.cache.Invalidate(ctx, ticket.ID)
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:           events.EventTicketUpdated,
			OrganizationID: ticket.OrganizationID,
			TicketID:       ticket.ID,
			Actor:          systemActor(),
			Payload: events.TicketUpdatedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	_, err := s.assignments.AssignToAvailableAgent(ctx, ticket.ID)
	return err
}
