package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/ai"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/repository"
	apperrors "github.com/deskhive/deskhive/pkg/util/errorutil"
)

// AnalysisService reviews resolved tickets and files the verdict as an
// internal note on the thread, where agents see it next to the
// conversation it describes.
type AnalysisService struct {
	tickets  repository.TicketRepository
	messages repository.TicketMessageRepository
	analyzer ai.Analyzer
	logger   *zap.Logger
}

// AnalysisDependencies bundles collaborators.
type AnalysisDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	Analyzer    ai.Analyzer
	Logger      *zap.Logger
}

// NewAnalysisService creates the service.
func NewAnalysisService(deps AnalysisDependencies) *AnalysisService {
	return &AnalysisService{
		tickets:  deps.TicketRepo,
		messages: deps.MessageRepo,
		analyzer: deps.Analyzer,
		logger:   deps.Logger,
	}
}

// AnalyzeTicket runs the post-resolution review for a ticket. Tickets
// that vanished or lost their resolution since enqueue are skipped.
func (s *AnalysisService) AnalyzeTicket(ctx context.Context, ticketID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return apperrors.MapError(err)
	}
	if ticket.Resolution == nil {
		return nil
	}

	analysis, err := s.analyzer.AnalyzeResolution(ctx, ticket, *ticket.Resolution)
	if err != nil {
		return err
	}
	if analysis.Summary == "" {
		s.logger.Debug("analysis returned no summary", zap.String("ticket_id", ticket.ID))
		return nil
	}

	body := fmt.Sprintf("Resolution review: %s", analysis.Summary)
	if analysis.Sentiment != "" {
		body += fmt.Sprintf(" (customer sentiment: %s)", analysis.Sentiment)
	}
	if analysis.FollowUp {
		body += " Follow-up recommended."
	}

	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: domain.SenderTypeSystem,
		Body:       body,
		IsInternal: true,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return apperrors.MapError(err)
	}

	s.logger.Info("resolution analyzed",
		zap.String("ticket_id", ticket.ID),
		zap.String("sentiment", analysis.Sentiment),
		zap.Bool("follow_up", analysis.FollowUp))
	return nil
}
