package dto

import (
	"time"

	"github.com/deskhive/deskhive/internal/domain"
)

// CategoryRequest payload for create/update.
type CategoryRequest struct {
	Name                 string  `json:"name"`
	Description          string  `json:"description"`
	Keywords             *string `json:"keywords"`
	AutoAssignEnabled    bool    `json:"auto_assign_enabled"`
	ResponseSLAMinutes   int     `json:"response_sla_minutes"`
	ResolutionSLAMinutes int     `json:"resolution_sla_minutes"`
	PriorityLevel        int     `json:"priority_level"`
}

// CategoryResponse represents a category.
type CategoryResponse struct {
	ID                   string    `json:"id"`
	OrganizationID       string    `json:"organization_id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Keywords             *string   `json:"keywords,omitempty"`
	IsActive             bool      `json:"is_active"`
	AutoAssignEnabled    bool      `json:"auto_assign_enabled"`
	ResponseSLAMinutes   int       `json:"response_sla_minutes"`
	ResolutionSLAMinutes int       `json:"resolution_sla_minutes"`
	PriorityLevel        int       `json:"priority_level"`
	CreatedAt            time.Time `json:"created_at"`
}

// NewCategoryResponse maps a domain category.
func NewCategoryResponse(category *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:                   category.ID,
		OrganizationID:       category.OrganizationID,
		Name:                 category.Name,
		Description:          category.Description,
		Keywords:             category.Keywords,
		IsActive:             category.IsActive,
		AutoAssignEnabled:    category.AutoAssignEnabled,
		ResponseSLAMinutes:   category.ResponseSLAMinutes,
		ResolutionSLAMinutes: category.ResolutionSLAMinutes,
		PriorityLevel:        category.PriorityLevel,
		CreatedAt:            category.CreatedAt,
	}
}

// CategoryAssignmentResponse links an agent to a category.
type CategoryAssignmentResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CategoryID string    `json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewCategoryAssignmentResponse maps a domain assignment.
func NewCategoryAssignmentResponse(assignment domain.CategoryAssignment) CategoryAssignmentResponse {
	return CategoryAssignmentResponse{
		ID:         assignment.ID,
		UserID:     assignment.UserID,
		CategoryID: assignment.CategoryID,
		CreatedAt:  assignment.CreatedAt,
	}
}

// CreateMemberRequest payload for adding agents/admins.
type CreateMemberRequest struct {
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Phone    *string         `json:"phone"`
	Password string          `json:"password"`
	Role     domain.UserRole `json:"role"`
}

// SetAvailabilityRequest payload.
type SetAvailabilityRequest struct {
	Status domain.UserStatus `json:"status"`
}
