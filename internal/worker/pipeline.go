package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/queue"
	"github.com/deskhive/deskhive/internal/service"
)

// Pipeline wires the queue consumer to the ticket processing services.
type Pipeline struct {
	consumer       *queue.Consumer
	classification *service.ClassificationService
	autoResolution *service.AutoResolutionService
	assignments    *service.AssignmentService
	analysis       *service.AnalysisService
	replies        *ChannelNotifier
	logger         *zap.Logger
}

// PipelineDependencies bundles collaborators.
type PipelineDependencies struct {
	Consumer       *queue.Consumer
	Classification *service.ClassificationService
	AutoResolution *service.AutoResolutionService
	Assignments    *service.AssignmentService
	Analysis       *service.AnalysisService
	Replies        *ChannelNotifier
	Logger         *zap.Logger
}

// NewPipeline builds the pipeline.
func NewPipeline(deps PipelineDependencies) *Pipeline {
	return &Pipeline{
		consumer:       deps.Consumer,
		classification: deps.Classification,
		autoResolution: deps.AutoResolution,
		assignments:    deps.Assignments,
		analysis:       deps.Analysis,
		replies:        deps.Replies,
		logger:         deps.Logger,
	}
}

// Register binds queue handlers and their exhausted-retry fallbacks. Both
// automated stages fall back to human assignment: a ticket that cannot be
// classified or auto-resolved still reaches an agent.
func (p *Pipeline) Register() {
	p.consumer.Handle(queue.QueueClassification, p.handleClassification)
	p.consumer.HandleFallback(queue.QueueClassification, p.forceHumanAssignment)

	p.consumer.Handle(queue.QueueProcessing, p.handleProcessing)
	p.consumer.HandleFallback(queue.QueueProcessing, p.forceHumanAssignment)

	p.consumer.Handle(queue.QueueNotifications, p.handleNotification)
}

// Run drains the queues until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	p.consumer.Run(ctx)
}

func (p *Pipeline) handleClassification(ctx context.Context, task queue.Task) error {
	switch task.Action {
	case queue.ActionClassify:
		return p.classification.ClassifyTicket(ctx, task.TicketID)
	default:
		p.logger.Warn("unknown classification task", zap.String("action", task.Action))
		return nil
	}
}

func (p *Pipeline) handleProcessing(ctx context.Context, task queue.Task) error {
	switch task.Action {
	case queue.ActionAutoResolve:
		return p.autoResolution.ResolveTicket(ctx, task.TicketID)
	case queue.ActionAssign:
		_, err := p.assignments.AssignToAvailableAgent(ctx, task.TicketID)
		return err
	case queue.ActionAnalyze:
		return p.analysis.AnalyzeTicket(ctx, task.TicketID)
	default:
		p.logger.Warn("unknown processing task", zap.String("action", task.Action))
		return nil
	}
}

func (p *Pipeline) handleNotification(ctx context.Context, task queue.Task) error {
	switch task.Action {
	case queue.ActionReply, queue.ActionNotify:
		return p.replies.Deliver(ctx, task)
	default:
		p.logger.Warn("unknown notification task", zap.String("action", task.Action))
		return nil
	}
}

func (p *Pipeline) forceHumanAssignment(ctx context.Context, task queue.Task) {
	if task.TicketID == "" {
		return
	}
	// Analysis runs after resolution; an exhausted analysis task must not
	// bounce a resolved ticket back to an agent.
	if task.Action == queue.ActionAnalyze {
		return
	}
	p.logger.Warn("automated processing exhausted, forcing human assignment",
		zap.String("ticket_id", task.TicketID),
		zap.String("action", task.Action))
	if _, err := p.assignments.ForceAssign(ctx, task.TicketID); err != nil {
		p.logger.Error("forced assignment failed",
			zap.String("ticket_id", task.TicketID), zap.Error(err))
	}
}
