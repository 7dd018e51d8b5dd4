package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/deskhive/deskhive/internal/auth"
	"github.com/deskhive/deskhive/internal/config"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/repository"
	apperrors "github.com/deskhive/deskhive/pkg/util/errorutil"
)

// MemberService manages organization members and their category
// eligibility.
type MemberService struct {
	users      repository.UserRepository
	orgs       repository.OrganizationRepository
	categories repository.CategoryRepository
	bcryptCost int
}

// MemberDependencies encapsulates repositories for member management.
type MemberDependencies struct {
	UserRepo     repository.UserRepository
	OrgRepo      repository.OrganizationRepository
	CategoryRepo repository.CategoryRepository
}

// NewMemberService constructs the service.
func NewMemberService(cfg config.Config, deps MemberDependencies) *MemberService {
	return &MemberService{
		users:      deps.UserRepo,
		orgs:       deps.OrgRepo,
		categories: deps.CategoryRepo,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

func requireAdmin(actor *domain.User) error {
	if actor == nil || actor.Role != domain.UserRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateAgentInput describes a new agent account.
type CreateAgentInput struct {
	Email    string
	Name     string
	Phone    *string
	Password string
	Role     domain.UserRole
}

// CreateMember adds an agent or admin to the actor's organization,
// enforcing the plan's agent limit.
func (s *MemberService) CreateMember(ctx context.Context, actor *domain.User, input CreateAgentInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	role := input.Role
	if role == "" {
		role = domain.UserRoleAgent
	}
	if role == domain.UserRoleAgent {
		org, err := s.orgs.GetByID(ctx, actor.OrganizationID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if org.AgentLimit > 0 {
			count, err := s.users.CountAgents(ctx, org.ID)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			if count >= org.AgentLimit {
				return nil, apperrors.NewPlanLimitExceeded("agent limit reached", map[string]any{
					"limit": org.AgentLimit,
					"plan":  org.Plan,
				})
			}
		}
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	member := &domain.User{
		OrganizationID: actor.OrganizationID,
		Email:          input.Email,
		Name:           input.Name,
		Phone:          input.Phone,
		PasswordHash:   hash,
		Role:           role,
		Status:         domain.UserStatusActive,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// ListMembers returns members of the actor's organization.
func (s *MemberService) ListMembers(ctx context.Context, actor *domain.User, filter repository.UserFilter) ([]domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("member required")
	}
	filter.OrganizationID = &actor.OrganizationID
	members, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

// SetAvailability flips an agent between active and away. Away agents
// keep their open tickets but receive no new assignments.
func (s *MemberService) SetAvailability(ctx context.Context, actor *domain.User, memberID string, status domain.UserStatus) (*domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("member required")
	}
	if actor.ID != memberID && actor.Role != domain.UserRoleAdmin {
		return nil, apperrors.NewForbidden("cannot change another member's availability")
	}
	member, err := s.memberInOrg(ctx, actor.OrganizationID, memberID)
	if err != nil {
		return nil, err
	}
	member.Status = status
	if err := s.users.Update(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// Deactivate disables a member account.
func (s *MemberService) Deactivate(ctx context.Context, actor *domain.User, memberID string) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	member, err := s.memberInOrg(ctx, actor.OrganizationID, memberID)
	if err != nil {
		return nil, err
	}
	member.IsActive = false
	if err := s.users.Update(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// AssignCategory makes the agent eligible for tickets of the category.
func (s *MemberService) AssignCategory(ctx context.Context, actor *domain.User, memberID, categoryID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	member, err := s.memberInOrg(ctx, actor.OrganizationID, memberID)
	if err != nil {
		return err
	}
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
		}
		return apperrors.MapError(err)
	}
	if category.OrganizationID != actor.OrganizationID {
		return apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
	}
	return apperrors.MapError(s.categories.AssignAgent(ctx, member.ID, category.ID))
}

// UnassignCategory revokes the agent's category eligibility.
func (s *MemberService) UnassignCategory(ctx context.Context, actor *domain.User, memberID, categoryID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	member, err := s.memberInOrg(ctx, actor.OrganizationID, memberID)
	if err != nil {
		return err
	}
	return apperrors.MapError(s.categories.UnassignAgent(ctx, member.ID, categoryID))
}

// ListCategoryAssignments returns the agent's category links.
func (s *MemberService) ListCategoryAssignments(ctx context.Context, actor *domain.User, memberID string) ([]domain.CategoryAssignment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("member required")
	}
	member, err := s.memberInOrg(ctx, actor.OrganizationID, memberID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.categories.ListAssignmentsForUser(ctx, member.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assignments, nil
}

func (s *MemberService) memberInOrg(ctx context.Context, orgID, memberID string) (*domain.User, error) {
	member, err := s.users.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("member", map[string]any{"member_id": memberID})
		}
		return nil, apperrors.MapError(err)
	}
	if member.OrganizationID != orgID {
		return nil, apperrors.NewNotFound("member", map[string]any{"member_id": memberID})
	}
	return member, nil
}
