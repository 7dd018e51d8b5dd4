package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskhive/deskhive/internal/api/dto"
	"github.com/deskhive/deskhive/internal/auth"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/repository"
	"github.com/deskhive/deskhive/internal/service"
)

// TicketsHandler exposes ticket intake, agent-facing ticket endpoints and
// the customer's read-only view of their own tickets.
type TicketsHandler struct {
	tickets *service.TicketService
	tokens  *auth.TokenManager
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, tokens *auth.TokenManager) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, tokens: tokens}
}

// Create handles POST /orgs/:orgID/tickets — the public web intake.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Subject == "" || req.CustomerEmail == "" {
		return fiber.NewError(http.StatusBadRequest, "subject and customer_email required")
	}

	channel := domain.Channel(req.Channel)
	switch channel {
	case domain.ChannelEmail, domain.ChannelTelegram, domain.ChannelWeb:
	case "":
		channel = domain.ChannelWeb
	default:
		return fiber.NewError(http.StatusBadRequest, "unknown channel")
	}

	ticket, err := h.tickets.CreateTicket(c.Context(), service.TicketCreateInput{
		OrganizationID:    c.Params("orgID"),
		Channel:           channel,
		ChannelIdentifier: req.ChannelIdentifier,
		CustomerEmail:     req.CustomerEmail,
		CustomerName:      req.CustomerName,
		Subject:           req.Subject,
		Description:       req.Description,
	})
	if err != nil {
		return err
	}

	// Token lets the customer poll their ticket afterwards.
	token, exp, err := h.tokens.GenerateToken(ticket.CustomerID, domain.SubjectTypeCustomer, ticket.OrganizationID, nil)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"ticket": dto.NewTicketResponse(ticket),
			"auth":   dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// MyTicket handles GET /my/tickets/:id for customers.
func (h *TicketsHandler) MyTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	ticket, err := h.tickets.GetTicketForCustomer(c.Context(), principal.Customer, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// MyTicketMessages handles GET /my/tickets/:id/messages for customers.
func (h *TicketsHandler) MyTicketMessages(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	msgs, err := h.tickets.ListMessagesForCustomer(c.Context(), principal.Customer, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, dto.NewMessageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// List handles GET /tickets for members.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	filter := repository.TicketFilter{
		Limit:  c.QueryInt("page_size", 50),
		Offset: c.QueryInt("page", 0) * c.QueryInt("page_size", 50),
	}
	if statuses := c.Query("status"); statuses != "" {
		for _, raw := range strings.Split(statuses, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(raw)))
		}
	}
	if agentID := c.Query("agent_id"); agentID != "" {
		filter.AssignedAgentID = &agentID
	}
	if c.QueryBool("unassigned", false) {
		filter.Unassigned = true
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		filter.CategoryID = &categoryID
	}
	if term := c.Query("q"); term != "" {
		filter.SearchTerm = &term
	}

	tickets, err := h.tickets.ListTickets(c.Context(), principal.Member.OrganizationID, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// Get handles GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	ticket, err := h.tickets.GetTicket(c.Context(), principal.Member.OrganizationID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateStatus handles PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	ticket, err := h.tickets.UpdateStatus(c.Context(), principal.Member, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Resolve handles POST /tickets/:id/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	var req dto.ResolveTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Resolution == "" {
		return fiber.NewError(http.StatusBadRequest, "resolution required")
	}
	ticket, err := h.tickets.ResolveTicket(c.Context(), principal.Member, c.Params("id"), req.Resolution)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Close handles POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	ticket, err := h.tickets.CloseTicket(c.Context(), principal.Member, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AddMessage handles POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	msg, err := h.tickets.AddMessage(c.Context(), principal.Member, c.Params("id"), req.Body, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMessageResponse(msg)})
}

// ListMessages handles GET /tickets/:id/messages.
func (h *TicketsHandler) ListMessages(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Member == nil {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	msgs, err := h.tickets.ListMessages(c.Context(), principal.Member, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, dto.NewMessageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}
