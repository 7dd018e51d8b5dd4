package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskhive/deskhive/internal/api/http/handlers"
	"github.com/deskhive/deskhive/internal/auth"
	"github.com/deskhive/deskhive/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Categories     *handlers.CategoriesHandler
	Members        *handlers.MembersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireMember(), cfg.Auth.ChangePassword)

	// Public intake: customers submit tickets without an account.
	api.Post("/orgs/:orgID/tickets", cfg.Tickets.Create)

	my := api.Group("/my/tickets", cfg.AuthMiddleware.Handle, auth.RequireCustomer())
	my.Get("/:id", cfg.Tickets.MyTicket)
	my.Get("/:id/messages", cfg.Tickets.MyTicketMessages)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireMember())
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/resolve", cfg.Tickets.Resolve)
	tickets.Post("/:id/close", cfg.Tickets.Close)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Get("/:id/messages", cfg.Tickets.ListMessages)

	categories := api.Group("/categories", cfg.AuthMiddleware.Handle, auth.RequireMember())
	categories.Get("/", cfg.Categories.List)
	categories.Get("/:id", cfg.Categories.Get)
	categories.Post("/", auth.RequireRole(domain.UserRoleAdmin), cfg.Categories.Create)
	categories.Put("/:id", auth.RequireRole(domain.UserRoleAdmin), cfg.Categories.Update)
	categories.Delete("/:id", auth.RequireRole(domain.UserRoleAdmin), cfg.Categories.Deactivate)

	members := api.Group("/members", cfg.AuthMiddleware.Handle, auth.RequireMember())
	members.Get("/", cfg.Members.List)
	members.Post("/", auth.RequireRole(domain.UserRoleAdmin), cfg.Members.Create)
	members.Patch("/:id/availability", cfg.Members.SetAvailability)
	members.Delete("/:id", auth.RequireRole(domain.UserRoleAdmin), cfg.Members.Deactivate)
	members.Get("/:id/categories", cfg.Members.ListCategoryAssignments)
	members.Post("/:id/categories/:categoryID", auth.RequireRole(domain.UserRoleAdmin), cfg.Members.AssignCategory)
	members.Delete("/:id/categories/:categoryID", auth.RequireRole(domain.UserRoleAdmin), cfg.Members.UnassignCategory)
}
