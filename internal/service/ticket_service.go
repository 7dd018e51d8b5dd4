package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/cache"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/events"
	"github.com/deskhive/deskhive/internal/queue"
	"github.com/deskhive/deskhive/internal/repository"
	apperrors "github.com/deskhive/deskhive/pkg/util/errorutil"
)

// TicketService coordinates ticket intake and lifecycle.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	customers  repository.CustomerRepository
	categories repository.CategoryRepository
	orgs       repository.OrganizationRepository
	cache      *cache.TicketCache
	publisher  queue.Publisher
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	MessageRepo  repository.TicketMessageRepository
	CustomerRepo repository.CustomerRepository
	CategoryRepo repository.CategoryRepository
	OrgRepo      repository.OrganizationRepository
	Cache        *cache.TicketCache
	Publisher    queue.Publisher
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// TicketCreateInput describes ticket intake payload.
type TicketCreateInput struct {
	OrganizationID    string
	Channel           domain.Channel
	ChannelIdentifier string
	CustomerEmail     string
	CustomerName      *string
	Subject           string
	Description       string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		customers:  deps.CustomerRepo,
		categories: deps.CategoryRepo,
		orgs:       deps.OrgRepo,
		cache:      deps.Cache,
		publisher:  deps.Publisher,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicket ingests a ticket from any channel. The customer record is
// found-or-created by channel identity, the organization's plan limit is
// checked against this month's volume, and classification is enqueued.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	org, err := s.orgs.GetByID(ctx, input.OrganizationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("organization", map[string]any{"organization_id": input.OrganizationID})
		}
		return nil, apperrors.MapError(err)
	}
	if !org.IsActive {
		return nil, apperrors.NewConflict("organization inactive", map[string]any{"organization_id": org.ID})
	}

	if org.MonthlyTicketLimit > 0 {
		monthStart := startOfMonth(time.Now())
		count, err := s.tickets.CountByOrganizationSince(ctx, org.ID, monthStart)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if count >= org.MonthlyTicketLimit {
			return nil, apperrors.NewPlanLimitExceeded("monthly ticket limit reached", map[string]any{
				"limit": org.MonthlyTicketLimit,
				"plan":  org.Plan,
			})
		}
	}

	identifier := input.ChannelIdentifier
	if identifier == "" {
		identifier = input.CustomerEmail
	}
	customer := &domain.Customer{
		OrganizationID:    org.ID,
		Email:             input.CustomerEmail,
		Name:              input.CustomerName,
		Channel:           input.Channel,
		ChannelIdentifier: identifier,
	}
	if err := s.customers.Upsert(ctx, customer); err != nil {
		return nil, apperrors.MapError(err)
	}

	ticket := &domain.Ticket{
		OrganizationID: org.ID,
		CustomerID:     customer.ID,
		Subject:        strings.TrimSpace(input.Subject),
		Description:    strings.TrimSpace(input.Description),
		Channel:        input.Channel,
		Criticality:    domain.CriticalityUnknown,
		Status:         domain.TicketStatusNew,
	}
	if ticket.Subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.publisher.Publish(ctx, queue.QueueClassification, queue.Task{
		Action:   queue.ActionClassify,
		TicketID: ticket.ID,
	}); err != nil {
		s.logger.Error("enqueue classification failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	s.publish(ctx, events.Event{
		Type:           events.EventTicketCreated,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          customerActor(customer.ID),
		Payload: events.TicketCreatedPayload{
			CustomerID: customer.ID,
			Channel:    ticket.Channel,
			Subject:    ticket.Subject,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket through the read cache.
func (s *TicketService) GetTicket(ctx context.Context, orgID, ticketID string) (*domain.Ticket, error) {
	if cached, err := s.cache.Get(ctx, ticketID); err == nil && cached.OrganizationID == orgID {
		return cached, nil
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.OrganizationID != orgID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	_ = s.cache.Set(ctx, ticket)
	return ticket, nil
}

// GetTicketForCustomer returns a ticket the customer opened.
func (s *TicketService) GetTicketForCustomer(ctx context.Context, customer *domain.Customer, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, customer.OrganizationID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CustomerID != customer.ID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// ListMessagesForCustomer returns the customer-visible side of the
// conversation. Internal agent notes stay out.
func (s *TicketService) ListMessagesForCustomer(ctx context.Context, customer *domain.Customer, ticketID string) ([]domain.TicketMessage, error) {
	if _, err := s.GetTicketForCustomer(ctx, customer, ticketID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	visible := msgs[:0]
	for _, msg := range msgs {
		if !msg.IsInternal {
			visible = append(visible, msg)
		}
	}
	return visible, nil
}

// ListTickets returns tickets for an organization.
func (s *TicketService) ListTickets(ctx context.Context, orgID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter.OrganizationID = &orgID
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateStatus moves a ticket through its lifecycle by a member action.
func (s *TicketService) UpdateStatus(ctx context.Context, member *domain.User, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.ownedTicket(ctx, member, ticketID)
	if err != nil {
		return nil, err
	}
	if !validTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}
	oldStatus := ticket.Status
	now := time.Now()
	ticket.Status = newStatus
	switch newStatus {
	case domain.TicketStatusResolved:
		ticket.ResolvedAt = &now
		rt := domain.ResolutionTypeAgent
		ticket.ResolutionType = &rt
	case domain.TicketStatusClosed:
		ticket.ClosedAt = &now
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	_ = s.cache.Invalidate(ctx, ticket.ID)

	event := events.Event{
		Type:           events.EventTicketUpdated,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          memberActor(member.ID),
		Payload: events.TicketUpdatedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	}
	if newStatus == domain.TicketStatusResolved {
		event.Type = events.EventTicketResolved
		event.Payload = events.TicketResolvedPayload{
			ResolutionType: domain.ResolutionTypeAgent,
		}
	}
	s.publish(ctx, event)
	return ticket, nil
}

// ResolveTicket records an agent resolution with its text.
func (s *TicketService) ResolveTicket(ctx context.Context, member *domain.User, ticketID, resolution string) (*domain.Ticket, error) {
	ticket, err := s.ownedTicket(ctx, member, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.Status.IsActive() {
		return nil, apperrors.NewConflict("ticket is not open", map[string]any{"status": ticket.Status})
	}
	now := time.Now()
	rt := domain.ResolutionTypeAgent
	ticket.Status = domain.TicketStatusResolved
	ticket.Resolution = &resolution
	ticket.ResolutionType = &rt
	ticket.ResolvedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	_ = s.cache.Invalidate(ctx, ticket.ID)

	if err := s.publisher.Publish(ctx, queue.QueueProcessing, queue.Task{
		Action:   queue.ActionAnalyze,
		TicketID: ticket.ID,
	}); err != nil {
		s.logger.Error("enqueue resolution analysis failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	s.publish(ctx, events.Event{
		Type:           events.EventTicketResolved,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          memberActor(member.ID),
		Payload: events.TicketResolvedPayload{
			ResolutionType: rt,
			Resolution:     resolution,
		},
	})
	return ticket, nil
}

// CloseTicket closes a resolved ticket.
func (s *TicketService) CloseTicket(ctx context.Context, member *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.UpdateStatus(ctx, member, ticketID, domain.TicketStatusClosed)
}

// AddMessage appends a message to the ticket thread.
func (s *TicketService) AddMessage(ctx context.Context, member *domain.User, ticketID, body string, internal bool) (*domain.TicketMessage, error) {
	ticket, err := s.ownedTicket(ctx, member, ticketID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is required", nil)
	}
	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: domain.SenderTypeAgent,
		SenderID:   &member.ID,
		Body:       body,
		IsInternal: internal,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:           events.EventTicketMessageAdded,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          memberActor(member.ID),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			SenderType:  msg.SenderType,
			SenderID:    msg.SenderID,
			IsInternal:  msg.IsInternal,
			BodyPreview: preview(body, 120),
		},
	})
	return msg, nil
}

// ListMessages returns the ticket thread. Internal notes are included
// only for member callers.
func (s *TicketService) ListMessages(ctx context.Context, member *domain.User, ticketID string) ([]domain.TicketMessage, error) {
	if _, err := s.ownedTicket(ctx, member, ticketID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

func (s *TicketService) ownedTicket(ctx context.Context, member *domain.User, ticketID string) (*domain.Ticket, error) {
	if member == nil {
		return nil, apperrors.NewUnauthorized("member required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.OrganizationID != member.OrganizationID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

func startOfMonth(t time.Time) time.Time {
	year, month, _ := t.UTC().Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusOpen, domain.TicketStatusPending, domain.TicketStatusAssigned, domain.TicketStatusClosed},
	domain.TicketStatusOpen:       {domain.TicketStatusPending, domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusPending:    {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusAssigned:   {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {},
}

func validTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
