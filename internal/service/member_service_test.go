package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/repository"
	apperrors "github.com/deskhive/deskhive/pkg/util/errorutil"
)

type memberFixture struct {
	users      *fakeUserRepo
	orgs       *fakeOrgRepo
	categories *fakeCategoryRepo
	admin      *domain.User
	service    *MemberService
}

func newMemberFixture(agentLimit int) *memberFixture {
	users := newFakeUserRepo()
	orgs := newFakeOrgRepo()
	categories := newFakeCategoryRepo()
	org := activeOrg("org-1", 0)
	org.AgentLimit = agentLimit
	orgs.put(org)
	admin := users.put(domain.User{
		ID:             "admin-1",
		OrganizationID: "org-1",
		Email:          "admin@acme.test",
		Role:           domain.UserRoleAdmin,
		Status:         domain.UserStatusActive,
		IsActive:       true,
	})
	svc := NewMemberService(testConfig(), MemberDependencies{
		UserRepo:     users,
		OrgRepo:      orgs,
		CategoryRepo: categories,
	})
	return &memberFixture{users: users, orgs: orgs, categories: categories, admin: admin, service: svc}
}

func TestCreateMemberRequiresAdmin(t *testing.T) {
	f := newMemberFixture(10)
	agent := f.users.put(*supportMember("agent-1", "org-1"))

	_, err := f.service.CreateMember(context.Background(), agent, CreateAgentInput{
		Email:    "new@acme.test",
		Name:     "New",
		Password: "hunter22",
	})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestCreateMemberDefaultsToAgentRole(t *testing.T) {
	f := newMemberFixture(10)

	member, err := f.service.CreateMember(context.Background(), f.admin, CreateAgentInput{
		Email:    "new@acme.test",
		Name:     "New",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleAgent, member.Role)
	assert.Equal(t, "org-1", member.OrganizationID)
	assert.True(t, member.Assignable())
}

func TestCreateMemberEnforcesAgentLimit(t *testing.T) {
	f := newMemberFixture(1)
	f.users.put(*supportMember("agent-1", "org-1"))

	_, err := f.service.CreateMember(context.Background(), f.admin, CreateAgentInput{
		Email:    "overflow@acme.test",
		Name:     "Overflow",
		Password: "hunter22",
	})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PLAN_LIMIT_EXCEEDED", domainErr.Code)
}

func TestSetAvailabilitySelfOrAdminOnly(t *testing.T) {
	f := newMemberFixture(10)
	alice := f.users.put(*supportMember("alice", "org-1"))
	f.users.put(*supportMember("bob", "org-1"))

	// Agents may change their own status.
	updated, err := f.service.SetAvailability(context.Background(), alice, "alice", domain.UserStatusAway)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusAway, updated.Status)

	// But not each other's.
	_, err = f.service.SetAvailability(context.Background(), alice, "bob", domain.UserStatusAway)
	require.Error(t, err)

	// Admins may change anyone's.
	updated, err = f.service.SetAvailability(context.Background(), f.admin, "bob", domain.UserStatusAway)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusAway, updated.Status)
}

func TestAwayAgentLeavesAssignablePool(t *testing.T) {
	f := newMemberFixture(10)
	f.users.put(*supportMember("alice", "org-1"))

	pool, err := f.users.ListAssignableAgents(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, pool, 1)

	_, err = f.service.SetAvailability(context.Background(), f.admin, "alice", domain.UserStatusAway)
	require.NoError(t, err)

	pool, err = f.users.ListAssignableAgents(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Empty(t, pool)
}

func TestDeactivateMember(t *testing.T) {
	f := newMemberFixture(10)
	f.users.put(*supportMember("alice", "org-1"))

	member, err := f.service.Deactivate(context.Background(), f.admin, "alice")
	require.NoError(t, err)
	assert.False(t, member.IsActive)
	assert.False(t, member.Assignable())
}

func TestCategoryAssignmentScopedToOrganization(t *testing.T) {
	f := newMemberFixture(10)
	f.users.put(*supportMember("alice", "org-1"))
	billing := &domain.Category{
		OrganizationID:       "org-1",
		Name:                 "Billing",
		ResponseSLAMinutes:   60,
		ResolutionSLAMinutes: 240,
		PriorityLevel:        2,
		IsActive:             true,
	}
	require.NoError(t, f.categories.Create(context.Background(), billing))
	foreign := &domain.Category{
		OrganizationID:       "org-2",
		Name:                 "Other",
		ResponseSLAMinutes:   60,
		ResolutionSLAMinutes: 240,
		PriorityLevel:        2,
		IsActive:             true,
	}
	require.NoError(t, f.categories.Create(context.Background(), foreign))

	require.NoError(t, f.service.AssignCategory(context.Background(), f.admin, "alice", billing.ID))
	require.Error(t, f.service.AssignCategory(context.Background(), f.admin, "alice", foreign.ID))

	links, err := f.service.ListCategoryAssignments(context.Background(), f.admin, "alice")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, billing.ID, links[0].CategoryID)

	require.NoError(t, f.service.UnassignCategory(context.Background(), f.admin, "alice", billing.ID))
	links, err = f.service.ListCategoryAssignments(context.Background(), f.admin, "alice")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestListMembersScopedToActorOrganization(t *testing.T) {
	f := newMemberFixture(10)
	f.users.put(*supportMember("alice", "org-1"))
	f.users.put(*supportMember("outsider", "org-2"))

	members, err := f.service.ListMembers(context.Background(), f.admin, repository.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, members, 2)
}
