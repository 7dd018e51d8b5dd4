package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/ai"
	"github.com/deskhive/deskhive/internal/cache"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/events"
	"github.com/deskhive/deskhive/internal/observability"
	"github.com/deskhive/deskhive/internal/queue"
)

type pipelineFixture struct {
	tickets        *fakeTicketRepo
	users          *fakeUserRepo
	publisher      *fakePublisher
	classifier     *fakeClassifier
	resolver       *fakeResolver
	messages       *fakeMessageRepo
	categories     *fakeCategoryRepo
	router         *RoutingService
	classification *ClassificationService
	autoResolution *AutoResolutionService
}

func newPipelineFixture() *pipelineFixture {
	tickets := newFakeTicketRepo()
	users := newFakeUserRepo()
	publisher := &fakePublisher{}
	classifier := &fakeClassifier{}
	resolver := &fakeResolver{}
	messages := &fakeMessageRepo{}
	categories := newFakeCategoryRepo()
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	ticketCache := cache.NewTicketCache(nil, 0)
	logger := zap.NewNop()

	assignments := NewAssignmentService(AssignmentDependencies{
		TicketRepo:     tickets,
		UserRepo:       users,
		AssignmentRepo: &fakeAssignmentRepo{tickets: tickets, users: users},
		Cache:          ticketCache,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        metrics,
	})
	router := NewRoutingService(RoutingDependencies{
		TicketRepo:  tickets,
		Assignments: assignments,
		Cache:       ticketCache,
		Publisher:   publisher,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	classification := NewClassificationService(ClassificationDependencies{
		TicketRepo:   tickets,
		CategoryRepo: categories,
		Classifier:   classifier,
		Router:       router,
		Cache:        ticketCache,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
	})
	autoResolution := NewAutoResolutionService(AutoResolutionDependencies{
		TicketRepo:   tickets,
		MessageRepo:  messages,
		CategoryRepo: categories,
		Resolver:     resolver,
		Enhancer:     &fakeEnhancer{},
		Assignments:  assignments,
		Cache:        ticketCache,
		Publisher:    publisher,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
	})
	return &pipelineFixture{
		tickets:        tickets,
		users:          users,
		publisher:      publisher,
		classifier:     classifier,
		resolver:       resolver,
		messages:       messages,
		categories:     categories,
		router:         router,
		classification: classification,
		autoResolution: autoResolution,
	}
}

func TestRouteLowCriticalityEnqueuesAutoResolution(t *testing.T) {
	f := newPipelineFixture()
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusOpen,
		Criticality:    domain.CriticalityLow,
	})

	require.NoError(t, f.router.RouteTicket(context.Background(), ticket))

	enqueued := f.publisher.byAction(queue.ActionAutoResolve)
	require.Len(t, enqueued, 1)
	assert.Equal(t, queue.QueueProcessing, enqueued[0].Queue)
	assert.Equal(t, ticket.ID, enqueued[0].Task.TicketID)
}

func TestRouteHighCriticalityGoesToHuman(t *testing.T) {
	f := newPipelineFixture()
	f.users.put(agent("bob", nil))
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusOpen,
		Criticality:    domain.CriticalityHigh,
	})

	require.NoError(t, f.router.RouteTicket(context.Background(), ticket))

	assert.Empty(t, f.publisher.byAction(queue.ActionAutoResolve))
	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, "bob", *stored.AssignedAgentID)
}

func TestRouteUnknownCriticalityGoesToHuman(t *testing.T) {
	f := newPipelineFixture()
	f.users.put(agent("bob", nil))
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusOpen,
		Criticality:    domain.CriticalityUnknown,
	})

	require.NoError(t, f.router.RouteTicket(context.Background(), ticket))

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
}

func TestRouteEnqueueFailureFallsBackToHuman(t *testing.T) {
	f := newPipelineFixture()
	f.users.put(agent("bob", nil))
	f.publisher.fail = errors.New("redis down")
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusOpen,
		Criticality:    domain.CriticalityLow,
	})

	require.NoError(t, f.router.RouteTicket(context.Background(), ticket))

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
}

func TestRouteSkipsAssignedAndTerminalTickets(t *testing.T) {
	f := newPipelineFixture()
	bobID := "bob"
	assigned := f.tickets.put(domain.Ticket{
		OrganizationID:  "org-1",
		Status:          domain.TicketStatusAssigned,
		AssignedAgentID: &bobID,
		Criticality:     domain.CriticalityLow,
	})
	closed := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusClosed,
		Criticality:    domain.CriticalityLow,
	})

	require.NoError(t, f.router.RouteTicket(context.Background(), assigned))
	require.NoError(t, f.router.RouteTicket(context.Background(), closed))
	assert.Empty(t, f.publisher.tasks)
}

func TestClassifyPersistsVerdictAndRoutes(t *testing.T) {
	f := newPipelineFixture()
	f.categories.put(domain.Category{ID: "cat-billing", OrganizationID: "org-1", IsActive: true})
	category := "cat-billing"
	confidence := 0.92
	f.classifier.result = ai.Classification{
		CategoryID:  &category,
		Criticality: domain.CriticalityLow,
		Confidence:  &confidence,
	}
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusNew,
	})

	require.NoError(t, f.classification.ClassifyTicket(context.Background(), ticket.ID))

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CategoryID)
	assert.Equal(t, category, *stored.CategoryID)
	assert.Equal(t, domain.CriticalityLow, stored.Criticality)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	require.Len(t, f.publisher.byAction(queue.ActionAutoResolve), 1)
}

func TestClassifyDropsCategoryFromAnotherOrganization(t *testing.T) {
	f := newPipelineFixture()
	f.categories.put(domain.Category{ID: "cat-foreign", OrganizationID: "org-2", IsActive: true})
	category := "cat-foreign"
	f.classifier.result = ai.Classification{
		CategoryID:  &category,
		Criticality: domain.CriticalityLow,
	}
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusNew,
	})

	require.NoError(t, f.classification.ClassifyTicket(context.Background(), ticket.ID))

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CategoryID)
	assert.Equal(t, domain.CriticalityLow, stored.Criticality)
}

func TestClassifyDropsUnknownCategory(t *testing.T) {
	f := newPipelineFixture()
	category := "cat-hallucinated"
	f.classifier.result = ai.Classification{
		CategoryID:  &category,
		Criticality: domain.CriticalityHigh,
	}
	f.users.put(agent("bob", nil))
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusNew,
	})

	require.NoError(t, f.classification.ClassifyTicket(context.Background(), ticket.ID))

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CategoryID)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, "bob", *stored.AssignedAgentID)
}

func TestClassifierFailureRoutesToHuman(t *testing.T) {
	f := newPipelineFixture()
	f.users.put(agent("bob", nil))
	f.classifier.err = errors.New("gateway timeout")
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusNew,
	})

	require.NoError(t, f.classification.ClassifyTicket(context.Background(), ticket.ID))

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CriticalityUnknown, stored.Criticality)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Empty(t, f.publisher.byAction(queue.ActionAutoResolve))
}

func TestAutoResolveSuccessClosesLoop(t *testing.T) {
	f := newPipelineFixture()
	f.resolver.outcome = ai.ResolvedOutcome("restart the router")
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusOpen,
		Channel:        domain.ChannelEmail,
		Criticality:    domain.CriticalityLow,
	})

	require.NoError(t, f.autoResolution.ResolveTicket(context.Background(), ticket.ID))

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)
	require.NotNil(t, stored.Resolution)
	assert.Equal(t, "restart the router", *stored.Resolution)
	require.NotNil(t, stored.ResolutionType)
	assert.Equal(t, domain.ResolutionTypeAuto, *stored.ResolutionType)
	require.NotNil(t, stored.ResolvedAt)

	// The answer lands in the thread and goes back out over email.
	thread, err := f.messages.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, domain.SenderTypeSystem, thread[0].SenderType)

	replies := f.publisher.byAction(queue.ActionReply)
	require.Len(t, replies, 1)
	assert.Equal(t, queue.QueueNotifications, replies[0].Queue)
	assert.Equal(t, "email", replies[0].Task.Meta["channel"])
}

func TestAutoResolveDeclinedFallsBackToHuman(t *testing.T) {
	f := newPipelineFixture()
	f.users.put(agent("bob", nil))
	f.resolver.outcome = ai.FailedOutcome("needs account access")
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusOpen,
		Criticality:    domain.CriticalityLow,
	})

	require.NoError(t, f.autoResolution.ResolveTicket(context.Background(), ticket.ID))

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, stored.Status)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, "bob", *stored.AssignedAgentID)
}

func TestAutoResolveInfrastructureErrorPropagates(t *testing.T) {
	f := newPipelineFixture()
	f.users.put(agent("bob", nil))
	f.resolver.err = errors.New("gateway unreachable")
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusOpen,
		Criticality:    domain.CriticalityLow,
	})

	err := f.autoResolution.ResolveTicket(context.Background(), ticket.ID)
	require.Error(t, err)

	// The queue owns the retry: the ticket must stay untouched.
	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Nil(t, stored.AssignedAgentID)
}

func TestAutoResolveSkipsAssignedTickets(t *testing.T) {
	f := newPipelineFixture()
	bobID := "bob"
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID:  "org-1",
		Status:          domain.TicketStatusAssigned,
		AssignedAgentID: &bobID,
	})

	require.NoError(t, f.autoResolution.ResolveTicket(context.Background(), ticket.ID))
	assert.Zero(t, f.resolver.calls)
}

func TestAutoResolveUsesEnhancedText(t *testing.T) {
	f := newPipelineFixture()
	f.resolver.outcome = ai.ResolvedOutcome("restart the router")
	f.autoResolution.enhancer = &fakeEnhancer{polished: "Hi! Please restart your router."}
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusOpen,
		Criticality:    domain.CriticalityLow,
	})

	require.NoError(t, f.autoResolution.ResolveTicket(context.Background(), ticket.ID))

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Resolution)
	assert.Equal(t, "Hi! Please restart your router.", *stored.Resolution)
}
