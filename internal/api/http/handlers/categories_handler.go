package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskhive/deskhive/internal/api/dto"
	"github.com/deskhive/deskhive/internal/auth"
	"github.com/deskhive/deskhive/internal/service"
)

// CategoriesHandler exposes category management endpoints.
type CategoriesHandler struct {
	categories *service.CategoryService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categories *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{categories: categories}
}

// Create handles POST /categories.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	category, err := h.categories.CreateCategory(c.Context(), principal.Member, categoryInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCategoryResponse(category)})
}

// Update handles PUT /categories/:id.
func (h *CategoriesHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	category, err := h.categories.UpdateCategory(c.Context(), principal.Member, c.Params("id"), categoryInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCategoryResponse(category)})
}

// Deactivate handles DELETE /categories/:id.
func (h *CategoriesHandler) Deactivate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	category, err := h.categories.DeactivateCategory(c.Context(), principal.Member, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCategoryResponse(category)})
}

// List handles GET /categories.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	categories, err := h.categories.ListCategories(c.Context(), principal.Member, c.QueryBool("active_only", true))
	if err != nil {
		return err
	}
	out := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, dto.NewCategoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /categories/:id.
func (h *CategoriesHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	category, err := h.categories.GetCategory(c.Context(), principal.Member, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCategoryResponse(category)})
}

func categoryInput(req dto.CategoryRequest) service.CategoryInput {
	return service.CategoryInput{
		Name:                 req.Name,
		Description:          req.Description,
		Keywords:             req.Keywords,
		AutoAssignEnabled:    req.AutoAssignEnabled,
		ResponseSLAMinutes:   req.ResponseSLAMinutes,
		ResolutionSLAMinutes: req.ResolutionSLAMinutes,
		PriorityLevel:        req.PriorityLevel,
	}
}
