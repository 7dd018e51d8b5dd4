package dto

import (
	"time"

	"github.com/deskhive/deskhive/internal/domain"
)

// RegisterOrganizationRequest payload.
type RegisterOrganizationRequest struct {
	OrganizationName string      `json:"organization_name"`
	Sector           *string     `json:"sector"`
	EmployeeCount    *int        `json:"employee_count"`
	Plan             domain.Plan `json:"plan"`
	AdminName        string      `json:"admin_name"`
	AdminEmail       string      `json:"admin_email"`
	Password         string      `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse conveys an issued token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MemberResponse represents an organization member.
type MemberResponse struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	Email          string            `json:"email"`
	Name           string            `json:"name"`
	Phone          *string           `json:"phone,omitempty"`
	Role           domain.UserRole   `json:"role"`
	Status         domain.UserStatus `json:"status"`
	LastAssignedAt *time.Time        `json:"last_assigned_at,omitempty"`
	IsActive       bool              `json:"is_active"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewMemberResponse maps a domain user.
func NewMemberResponse(user *domain.User) MemberResponse {
	return MemberResponse{
		ID:             user.ID,
		OrganizationID: user.OrganizationID,
		Email:          user.Email,
		Name:           user.Name,
		Phone:          user.Phone,
		Role:           user.Role,
		Status:         user.Status,
		LastAssignedAt: user.LastAssignedAt,
		IsActive:       user.IsActive,
		CreatedAt:      user.CreatedAt,
	}
}

// OrganizationResponse represents a tenant.
type OrganizationResponse struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Plan               domain.Plan `json:"plan"`
	MonthlyTicketLimit int         `json:"monthly_ticket_limit"`
	AgentLimit         int         `json:"agent_limit"`
	IsActive           bool        `json:"is_active"`
	CreatedAt          time.Time   `json:"created_at"`
}

// NewOrganizationResponse maps a domain organization.
func NewOrganizationResponse(org *domain.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:                 org.ID,
		Name:               org.Name,
		Plan:               org.Plan,
		MonthlyTicketLimit: org.MonthlyTicketLimit,
		AgentLimit:         org.AgentLimit,
		IsActive:           org.IsActive,
		CreatedAt:          org.CreatedAt,
	}
}
