package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskhive/deskhive/internal/auth"
	"github.com/deskhive/deskhive/internal/config"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/repository"
	apperrors "github.com/deskhive/deskhive/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	orgs       repository.OrganizationRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	OrgRepo  repository.OrganizationRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		orgs:       deps.OrgRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterOrganizationInput describes the signup payload.
type RegisterOrganizationInput struct {
	OrganizationName string
	Sector           *string
	EmployeeCount    *int
	Plan             domain.Plan
	AdminName        string
	AdminEmail       string
	Password         string
}

// planDefaults returns the limits a subscription tier grants.
func planDefaults(plan domain.Plan) (ticketLimit, agentLimit int) {
	switch plan {
	case domain.PlanStarter:
		return 1000, 10
	case domain.PlanEnterprise:
		return 0, 0 // unlimited
	default:
		return 100, 3
	}
}

// RegisterOrganization creates a tenant together with its first admin
// and returns a ready-to-use token.
func (s *AuthService) RegisterOrganization(ctx context.Context, input RegisterOrganizationInput) (*domain.Organization, *domain.User, string, time.Time, error) {
	if _, err := s.users.GetByEmail(ctx, input.AdminEmail); err == nil {
		return nil, nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": input.AdminEmail})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, "", time.Time{}, apperrors.MapError(err)
	}

	plan := input.Plan
	if plan == "" {
		plan = domain.PlanFree
	}
	ticketLimit, agentLimit := planDefaults(plan)
	org := &domain.Organization{
		Name:               input.OrganizationName,
		Sector:             input.Sector,
		EmployeeCount:      input.EmployeeCount,
		Plan:               plan,
		MonthlyTicketLimit: ticketLimit,
		AgentLimit:         agentLimit,
		IsActive:           true,
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, nil, "", time.Time{}, apperrors.MapError(err)
	}
	admin := &domain.User{
		OrganizationID: org.ID,
		Email:          input.AdminEmail,
		Name:           input.AdminName,
		PasswordHash:   hash,
		Role:           domain.UserRoleAdmin,
		Status:         domain.UserStatusActive,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(admin.ID, domain.SubjectTypeMember, org.ID, &admin.Role)
	if err != nil {
		return nil, nil, "", time.Time{}, apperrors.MapError(err)
	}
	return org, admin, token, exp, nil
}

// Login authenticates an organization member.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !user.IsActive {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeMember, user.OrganizationID, &user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// ChangePassword verifies the current password before updating.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	user.PasswordHash = hash
	return apperrors.MapError(s.users.Update(ctx, user))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
