package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/ai"
	"github.com/deskhive/deskhive/internal/cache"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/events"
	"github.com/deskhive/deskhive/internal/observability"
	"github.com/deskhive/deskhive/internal/repository"
	apperrors "github.com/deskhive/deskhive/pkg/util/errorutil"
)

// ClassificationService runs the classifier against new tickets and
// hands the result to the router. A classifier failure is not fatal:
// the ticket proceeds with unknown criticality, which always routes to
// a human agent.
type ClassificationService struct {
	tickets    repository.TicketRepository
	categories repository.CategoryRepository
	classifier ai.Classifier
	router     *RoutingService
	cache      *cache.TicketCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// ClassificationDependencies bundles collaborators.
type ClassificationDependencies struct {
	TicketRepo   repository.TicketRepository
	CategoryRepo repository.CategoryRepository
	Classifier   ai.Classifier
	Router       *RoutingService
	Cache        *cache.TicketCache
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewClassificationService creates the service.
func NewClassificationService(deps ClassificationDependencies) *ClassificationService {
	return &ClassificationService{
		tickets:    deps.TicketRepo,
		categories: deps.CategoryRepo,
		classifier: deps.Classifier,
		router:     deps.Router,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// ClassifyTicket classifies the ticket and routes it.
func (s *ClassificationService) ClassifyTicket(ctx context.Context, ticketID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	if !ticket.Status.IsActive() {
		return nil
	}

	result, err := s.classifier.Classify(ctx, ticket.Subject, ticket.Description, ticket.OrganizationID)
	if err != nil {
		s.logger.Warn("classification failed, routing to human",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		s.metrics.ClassifyFailures.Inc()
		result = ai.Classification{Criticality: domain.CriticalityUnknown}
	}

	// The classifier's category must exist in the ticket's organization;
	// a stale or hallucinated id would either break the update or build
	// an always-empty agent pool.
	if result.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *result.CategoryID)
		if err != nil || category.OrganizationID != ticket.OrganizationID || !category.IsActive {
			s.logger.Warn("classifier returned unusable category, dropping",
				zap.String("ticket_id", ticket.ID),
				zap.String("category_id", *result.CategoryID))
			result.CategoryID = nil
		}
	}

	ticket.CategoryID = result.CategoryID
	ticket.Criticality = result.Criticality
	ticket.ConfidenceScore = result.Confidence
	ticket.EstimatedTime = result.EstimatedTime
	if ticket.Status == domain.TicketStatusNew {
		ticket.Status = domain.TicketStatusOpen
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return apperrors.MapError(err)
	}
	_ = s.cache.Invalidate(ctx, ticket.ID)

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:           events.EventTicketClassified,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          systemActor(),
		Payload: events.TicketClassifiedPayload{
			CategoryID:  ticket.CategoryID,
			Criticality: ticket.Criticality,
		},
	})

	return s.router.RouteTicket(ctx, ticket)
}
