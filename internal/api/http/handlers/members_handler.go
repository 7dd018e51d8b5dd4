package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskhive/deskhive/internal/api/dto"
	"github.com/deskhive/deskhive/internal/auth"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/repository"
	"github.com/deskhive/deskhive/internal/service"
)

// MembersHandler exposes member and eligibility management endpoints.
type MembersHandler struct {
	members *service.MemberService
}

// NewMembersHandler constructs handler.
func NewMembersHandler(members *service.MemberService) *MembersHandler {
	return &MembersHandler{members: members}
}

// Create handles POST /members.
func (h *MembersHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	var req dto.CreateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "name, email, password required")
	}
	member, err := h.members.CreateMember(c.Context(), principal.Member, service.CreateAgentInput{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// List handles GET /members.
func (h *MembersHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	filter := repository.UserFilter{
		Limit:  c.QueryInt("page_size", 50),
		Offset: c.QueryInt("page", 0) * c.QueryInt("page_size", 50),
	}
	if role := c.Query("role"); role != "" {
		r := domain.UserRole(role)
		filter.Role = &r
	}
	if status := c.Query("status"); status != "" {
		st := domain.UserStatus(status)
		filter.Status = &st
	}
	members, err := h.members.ListMembers(c.Context(), principal.Member, filter)
	if err != nil {
		return err
	}
	out := make([]dto.MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, dto.NewMemberResponse(&members[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// SetAvailability handles PATCH /members/:id/availability.
func (h *MembersHandler) SetAvailability(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	var req dto.SetAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Status != domain.UserStatusActive && req.Status != domain.UserStatusAway {
		return fiber.NewError(http.StatusBadRequest, "status must be active or away")
	}
	member, err := h.members.SetAvailability(c.Context(), principal.Member, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// Deactivate handles DELETE /members/:id.
func (h *MembersHandler) Deactivate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	member, err := h.members.Deactivate(c.Context(), principal.Member, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// AssignCategory handles POST /members/:id/categories/:categoryID.
func (h *MembersHandler) AssignCategory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	if err := h.members.AssignCategory(c.Context(), principal.Member, c.Params("id"), c.Params("categoryID")); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"assigned": true}})
}

// UnassignCategory handles DELETE /members/:id/categories/:categoryID.
func (h *MembersHandler) UnassignCategory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	if err := h.members.UnassignCategory(c.Context(), principal.Member, c.Params("id"), c.Params("categoryID")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"assigned": false}})
}

// ListCategoryAssignments handles GET /members/:id/categories.
func (h *MembersHandler) ListCategoryAssignments(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	assignments, err := h.members.ListCategoryAssignments(c.Context(), principal.Member, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.CategoryAssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		out = append(out, dto.NewCategoryAssignmentResponse(assignment))
	}
	return c.JSON(fiber.Map{"data": out})
}
