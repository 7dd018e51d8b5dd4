package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/repository"
	apperrors "github.com/deskhive/deskhive/pkg/util/errorutil"
)

// CategoryService manages ticket categories and their SLA settings.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// CategoryInput describes category creation/update payload.
type CategoryInput struct {
	Name                 string
	Description          string
	Keywords             *string
	AutoAssignEnabled    bool
	ResponseSLAMinutes   int
	ResolutionSLAMinutes int
	PriorityLevel        int
}

func (in CategoryInput) validate() error {
	if in.Name == "" {
		return apperrors.NewValidationError("name is required", nil)
	}
	if in.ResponseSLAMinutes <= 0 || in.ResolutionSLAMinutes <= 0 {
		return apperrors.NewValidationError("sla minutes must be positive", map[string]any{
			"response_sla_minutes":   in.ResponseSLAMinutes,
			"resolution_sla_minutes": in.ResolutionSLAMinutes,
		})
	}
	if in.PriorityLevel < 1 || in.PriorityLevel > 5 {
		return apperrors.NewValidationError("priority level must be 1..5", map[string]any{
			"priority_level": in.PriorityLevel,
		})
	}
	return nil
}

// CreateCategory creates a category in the actor's organization.
func (s *CategoryService) CreateCategory(ctx context.Context, actor *domain.User, input CategoryInput) (*domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	category := &domain.Category{
		OrganizationID:       actor.OrganizationID,
		Name:                 input.Name,
		Description:          input.Description,
		Keywords:             input.Keywords,
		IsActive:             true,
		AutoAssignEnabled:    input.AutoAssignEnabled,
		ResponseSLAMinutes:   input.ResponseSLAMinutes,
		ResolutionSLAMinutes: input.ResolutionSLAMinutes,
		PriorityLevel:        input.PriorityLevel,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// UpdateCategory modifies an existing category.
func (s *CategoryService) UpdateCategory(ctx context.Context, actor *domain.User, categoryID string, input CategoryInput) (*domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	category, err := s.ownedCategory(ctx, actor, categoryID)
	if err != nil {
		return nil, err
	}
	category.Name = input.Name
	category.Description = input.Description
	category.Keywords = input.Keywords
	category.AutoAssignEnabled = input.AutoAssignEnabled
	category.ResponseSLAMinutes = input.ResponseSLAMinutes
	category.ResolutionSLAMinutes = input.ResolutionSLAMinutes
	category.PriorityLevel = input.PriorityLevel
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// DeactivateCategory retires a category; tickets referencing it remain.
func (s *CategoryService) DeactivateCategory(ctx context.Context, actor *domain.User, categoryID string) (*domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	category, err := s.ownedCategory(ctx, actor, categoryID)
	if err != nil {
		return nil, err
	}
	category.IsActive = false
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// ListCategories returns categories of the actor's organization.
func (s *CategoryService) ListCategories(ctx context.Context, actor *domain.User, activeOnly bool) ([]domain.Category, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("member required")
	}
	categories, err := s.categories.ListByOrganization(ctx, actor.OrganizationID, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// GetCategory fetches one category scoped to the actor's organization.
func (s *CategoryService) GetCategory(ctx context.Context, actor *domain.User, categoryID string) (*domain.Category, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("member required")
	}
	return s.ownedCategory(ctx, actor, categoryID)
}

func (s *CategoryService) ownedCategory(ctx context.Context, actor *domain.User, categoryID string) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
		}
		return nil, apperrors.MapError(err)
	}
	if category.OrganizationID != actor.OrganizationID {
		return nil, apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
	}
	return category, nil
}
