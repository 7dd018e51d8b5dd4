package worker

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/config"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/events"
	"github.com/deskhive/deskhive/internal/observability"
	"github.com/deskhive/deskhive/internal/queue"
	"github.com/deskhive/deskhive/internal/repository"
)

const sweepBatchSize = 500

// Sweeper runs the periodic maintenance jobs: SLA breach detection and
// re-enqueueing of tickets stuck without an agent.
type Sweeper struct {
	tickets    repository.TicketRepository
	publisher  queue.Publisher
	dispatcher events.Dispatcher
	cfg        config.SLAConfig
	logger     *zap.Logger
	metrics    *observability.Metrics
	cron       *cron.Cron

	mu       sync.Mutex
	breached map[string]struct{}
}

// SweeperDependencies bundles collaborators.
type SweeperDependencies struct {
	TicketRepo repository.TicketRepository
	Publisher  queue.Publisher
	Dispatcher events.Dispatcher
	Config     config.SLAConfig
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewSweeper builds the sweeper.
func NewSweeper(deps SweeperDependencies) *Sweeper {
	return &Sweeper{
		tickets:    deps.TicketRepo,
		publisher:  deps.Publisher,
		dispatcher: deps.Dispatcher,
		cfg:        deps.Config,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		cron:       cron.New(),
		breached:   make(map[string]struct{}),
	}
}

// Start schedules the jobs and starts the cron runner.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, func() { s.SweepSLA(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.RequeueSchedule, func() { s.RequeueUnassigned(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron runner and waits for running jobs.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// SweepSLA flags tickets past their response or resolution deadline.
func (s *Sweeper) SweepSLA(ctx context.Context) {
	candidates, err := s.tickets.ListSLACandidates(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error("sla sweep failed", zap.Error(err))
		return
	}
	now := time.Now()
	for _, candidate := range candidates {
		ticket := candidate.Ticket
		responseDeadline := ticket.CreatedAt.Add(time.Duration(candidate.ResponseSLAMinutes) * time.Minute)
		resolutionDeadline := ticket.CreatedAt.Add(time.Duration(candidate.ResolutionSLAMinutes) * time.Minute)

		// Response SLA: an agent must have picked the ticket up in time.
		if !ticket.Assigned() && now.After(responseDeadline) {
			s.flagBreach(ctx, &ticket, "response", responseDeadline)
		}
		if ticket.ResolvedAt == nil && now.After(resolutionDeadline) {
			s.flagBreach(ctx, &ticket, "resolution", resolutionDeadline)
		}
	}
}

func (s *Sweeper) flagBreach(ctx context.Context, ticket *domain.Ticket, kind string, deadline time.Time) {
	key := ticket.ID + ":" + kind
	s.mu.Lock()
	if _, seen := s.breached[key]; seen {
		s.mu.Unlock()
		return
	}
	s.breached[key] = struct{}{}
	s.mu.Unlock()

	s.logger.Warn("sla breached",
		zap.String("ticket_id", ticket.ID),
		zap.String("kind", kind),
		zap.Time("deadline", deadline))
	s.metrics.SLABreachTotal.WithLabelValues(kind).Inc()

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:           events.EventSLABreached,
			OrganizationID: ticket.OrganizationID,
			TicketID:       ticket.ID,
			Actor:          events.Actor{Type: domain.SubjectTypeSystem},
			Timestamp:      time.Now(),
			Payload: events.SLABreachedPayload{
				Kind:     kind,
				Deadline: deadline,
			},
		})
	}
}

// RequeueUnassigned re-enqueues assignment for tickets that have sat
// without an agent longer than the configured window. Covers tickets
// created while no agent was eligible: once an agent is added or comes
// back, the next sweep assigns them.
func (s *Sweeper) RequeueUnassigned(ctx context.Context) {
	after := s.cfg.RequeueAfterMinutes
	if after <= 0 {
		after = 10
	}
	cutoff := time.Now().Add(-time.Duration(after) * time.Minute)
	tickets, err := s.tickets.ListUnassignedSince(ctx, cutoff, sweepBatchSize)
	if err != nil {
		s.logger.Error("requeue sweep failed", zap.Error(err))
		return
	}
	for _, ticket := range tickets {
		if err := s.publisher.Publish(ctx, queue.QueueProcessing, queue.Task{
			Action:   queue.ActionAssign,
			TicketID: ticket.ID,
		}); err != nil {
			s.logger.Error("requeue enqueue failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	if len(tickets) > 0 {
		s.logger.Info("requeued unassigned tickets", zap.Int("count", len(tickets)))
	}
}
