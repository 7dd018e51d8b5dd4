package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/cache"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/events"
	"github.com/deskhive/deskhive/internal/observability"
)

type assignmentFixture struct {
	tickets     *fakeTicketRepo
	users       *fakeUserRepo
	assignments *fakeAssignmentRepo
	dispatcher  events.Dispatcher
	service     *AssignmentService
}

func newAssignmentFixture() *assignmentFixture {
	tickets := newFakeTicketRepo()
	users := newFakeUserRepo()
	assignments := &fakeAssignmentRepo{tickets: tickets, users: users}
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewAssignmentService(AssignmentDependencies{
		TicketRepo:     tickets,
		UserRepo:       users,
		AssignmentRepo: assignments,
		Cache:          cache.NewTicketCache(nil, 0),
		Dispatcher:     dispatcher,
		Logger:         zap.NewNop(),
		Metrics:        observability.NewMetrics(prometheus.NewRegistry()),
	})
	return &assignmentFixture{
		tickets:     tickets,
		users:       users,
		assignments: assignments,
		dispatcher:  dispatcher,
		service:     svc,
	}
}

func agent(id string, lastAssigned *time.Time) domain.User {
	return domain.User{
		ID:             id,
		OrganizationID: "org-1",
		Email:          id + "@example.com",
		Name:           id,
		Role:           domain.UserRoleAgent,
		Status:         domain.UserStatusActive,
		LastAssignedAt: lastAssigned,
		IsActive:       true,
	}
}

func at(hour int) *time.Time {
	t := time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC)
	return &t
}

func TestSelectAgentPrefersLowestActiveCount(t *testing.T) {
	f := newAssignmentFixture()
	f.tickets.activeCounts = map[string]int{"alice": 3, "bob": 1, "carol": 2}

	picked, err := f.service.SelectAgent(context.Background(), []domain.User{
		agent("alice", nil), agent("bob", nil), agent("carol", nil),
	})
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "bob", picked.ID)
}

func TestSelectAgentTieBreaksByOldestAssignment(t *testing.T) {
	f := newAssignmentFixture()
	// alice carries two active tickets; bob and carol tie at zero but
	// carol was assigned longer ago.
	f.tickets.activeCounts = map[string]int{"alice": 2}

	picked, err := f.service.SelectAgent(context.Background(), []domain.User{
		agent("alice", at(9)),
		agent("bob", at(11)),
		agent("carol", at(10)),
	})
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "carol", picked.ID)
}

func TestSelectAgentNeverAssignedWinsTies(t *testing.T) {
	f := newAssignmentFixture()

	picked, err := f.service.SelectAgent(context.Background(), []domain.User{
		agent("bob", at(8)),
		agent("carol", nil),
	})
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "carol", picked.ID)
}

func TestSelectAgentFullTieKeepsPoolOrder(t *testing.T) {
	f := newAssignmentFixture()

	picked, err := f.service.SelectAgent(context.Background(), []domain.User{
		agent("bob", nil),
		agent("carol", nil),
	})
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "bob", picked.ID)
}

func TestSelectAgentEmptyPool(t *testing.T) {
	f := newAssignmentFixture()

	picked, err := f.service.SelectAgent(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, picked)
}

func TestAssignToAvailableAgentWritesTicketAndAgentTogether(t *testing.T) {
	f := newAssignmentFixture()
	f.users.put(agent("bob", nil))
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Subject:        "printer on fire",
		Status:         domain.TicketStatusPending,
	})

	var published []events.Event
	f.dispatcher.Subscribe(events.EventTicketAssigned, func(_ context.Context, event events.Event) error {
		published = append(published, event)
		return nil
	})

	picked, err := f.service.AssignToAvailableAgent(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "bob", picked.ID)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, "bob", *stored.AssignedAgentID)
	assert.Equal(t, domain.TicketStatusAssigned, stored.Status)
	require.NotNil(t, stored.AssignedAt)

	bob, err := f.users.GetByID(context.Background(), "bob")
	require.NoError(t, err)
	require.NotNil(t, bob.LastAssignedAt)
	assert.Equal(t, *stored.AssignedAt, *bob.LastAssignedAt)

	require.Len(t, published, 1)
	payload, ok := published[0].Payload.(events.TicketAssignedPayload)
	require.True(t, ok)
	assert.Equal(t, "bob", payload.AgentID)
}

func TestAssignIsIdempotentOnAssignedTickets(t *testing.T) {
	f := newAssignmentFixture()
	f.users.put(agent("bob", at(9)))
	f.users.put(agent("carol", nil))
	bobID := "bob"
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID:  "org-1",
		Status:          domain.TicketStatusAssigned,
		AssignedAgentID: &bobID,
	})

	picked, err := f.service.AssignToAvailableAgent(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "bob", picked.ID)
	assert.Zero(t, f.assignments.calls)
}

func TestAssignNoAgentLeavesTicketUnassigned(t *testing.T) {
	f := newAssignmentFixture()
	away := agent("bob", nil)
	away.Status = domain.UserStatusAway
	f.users.put(away)
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusPending,
	})

	picked, err := f.service.AssignToAvailableAgent(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, picked)
	assert.Zero(t, f.assignments.calls)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedAgentID)
	assert.Equal(t, domain.TicketStatusPending, stored.Status)
}

func TestAssignFailureLeavesBothRowsUntouched(t *testing.T) {
	f := newAssignmentFixture()
	f.users.put(agent("bob", nil))
	f.assignments.fail = errors.New("deadlock detected")
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusPending,
	})

	_, err := f.service.AssignToAvailableAgent(context.Background(), ticket.ID)
	require.Error(t, err)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedAgentID)
	assert.Equal(t, domain.TicketStatusPending, stored.Status)

	bob, err := f.users.GetByID(context.Background(), "bob")
	require.NoError(t, err)
	assert.Nil(t, bob.LastAssignedAt)
}

func TestAssignCategorizedTicketDrawsFromCategoryPool(t *testing.T) {
	f := newAssignmentFixture()
	f.users.put(agent("bob", nil))
	f.users.put(agent("carol", nil))
	f.users.categoryAgents["cat-billing"] = []string{"carol"}
	category := "cat-billing"
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		CategoryID:     &category,
		Status:         domain.TicketStatusPending,
	})

	picked, err := f.service.AssignToAvailableAgent(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "carol", picked.ID)
}

func TestAssignEmptyCategoryPoolWaitsForEligibleAgent(t *testing.T) {
	f := newAssignmentFixture()
	f.users.put(agent("bob", nil))
	category := "cat-billing"
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		CategoryID:     &category,
		Status:         domain.TicketStatusPending,
	})

	// Nobody holds the category yet: the ticket stays unassigned even
	// though bob is free.
	picked, err := f.service.AssignToAvailableAgent(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, picked)

	// Once bob picks up the category the retry sweep can place it.
	f.users.categoryAgents["cat-billing"] = []string{"bob"}
	picked, err = f.service.AssignToAvailableAgent(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "bob", picked.ID)
}

func TestForceAssignIgnoresCategoryEligibility(t *testing.T) {
	f := newAssignmentFixture()
	f.users.put(agent("bob", nil))
	category := "cat-billing"
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		CategoryID:     &category,
		Status:         domain.TicketStatusPending,
	})

	picked, err := f.service.ForceAssign(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "bob", picked.ID)
}

func TestAssignLeavesResolvedTicketsAlone(t *testing.T) {
	f := newAssignmentFixture()
	f.users.put(agent("bob", nil))
	resolution := "restart the client"
	ticket := f.tickets.put(domain.Ticket{
		OrganizationID: "org-1",
		Status:         domain.TicketStatusResolved,
		Resolution:     &resolution,
	})

	selected, err := f.service.ForceAssign(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, selected)
	assert.Zero(t, f.assignments.calls)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)
	assert.Nil(t, stored.AssignedAgentID)
}

func TestAssignMissingTicketReturnsNotFound(t *testing.T) {
	f := newAssignmentFixture()

	_, err := f.service.AssignToAvailableAgent(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
