package ai

import (
	"context"

	"github.com/deskhive/deskhive/internal/domain"
)

// Classification is the classifier's verdict for an incoming ticket.
type Classification struct {
	CategoryID    *string
	Criticality   domain.Criticality
	Confidence    *float64
	EstimatedTime *int
}

// Classifier assigns category and criticality to a ticket. Errors are
// recovered by the caller: an unclassifiable ticket routes to a human.
type Classifier interface {
	Classify(ctx context.Context, subject, description, organizationID string) (Classification, error)
}

// Outcome is the explicit result of an auto-resolution attempt. Exactly
// one of Resolved/Failed applies; failures carry the reason instead of
// being signalled through errors.
type Outcome struct {
	Resolved bool
	Text     string
	Reason   string
}

// ResolvedOutcome builds a successful outcome.
func ResolvedOutcome(text string) Outcome {
	return Outcome{Resolved: true, Text: text}
}

// FailedOutcome builds a failed outcome with a reason.
func FailedOutcome(reason string) Outcome {
	return Outcome{Resolved: false, Reason: reason}
}

// Resolver generates an automatic solution for a ticket. Infrastructure
// errors (gateway unreachable) are returned as errors; a gateway that
// answered but could not produce a solution is a Failed outcome.
type Resolver interface {
	GenerateSolution(ctx context.Context, ticket *domain.Ticket, categoryName string) (Outcome, error)
}

// Enhancer polishes generated or agent-drafted response text.
type Enhancer interface {
	Enhance(ctx context.Context, text, tone string) (string, error)
}

// Analysis is the post-resolution review of a ticket: how the
// conversation went and whether the resolution looks sound.
type Analysis struct {
	Summary   string
	Sentiment string
	FollowUp  bool
}

// Analyzer reviews a resolved ticket. Infrastructure errors are returned
// as errors and retried by the queue.
type Analyzer interface {
	AnalyzeResolution(ctx context.Context, ticket *domain.Ticket, resolution string) (Analysis, error)
}
