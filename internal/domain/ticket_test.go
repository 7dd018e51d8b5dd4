package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsActive(t *testing.T) {
	for _, status := range ActiveStatuses {
		assert.True(t, status.IsActive(), string(status))
	}
	assert.False(t, TicketStatusResolved.IsActive())
	assert.False(t, TicketStatusClosed.IsActive())
}

func TestTicketAssigned(t *testing.T) {
	var ticket Ticket
	assert.False(t, ticket.Assigned())
	agentID := "agent-1"
	ticket.AssignedAgentID = &agentID
	assert.True(t, ticket.Assigned())
}

func TestUserAssignable(t *testing.T) {
	user := User{Role: UserRoleAgent, Status: UserStatusActive, IsActive: true}
	assert.True(t, user.Assignable())

	away := user
	away.Status = UserStatusAway
	assert.False(t, away.Assignable())

	disabled := user
	disabled.IsActive = false
	assert.False(t, disabled.Assignable())

	admin := user
	admin.Role = UserRoleAdmin
	assert.False(t, admin.Assignable())
}

func TestCategoryDeadlines(t *testing.T) {
	category := Category{ResponseSLAMinutes: 30, ResolutionSLAMinutes: 240}
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, created.Add(30*time.Minute), category.ResponseDeadline(created))
	assert.Equal(t, created.Add(4*time.Hour), category.ResolutionDeadline(created))
}
