package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aischool/aischool-backend/internal/account"
)

// RegisterAuthRoutes wires the public account endpoints.
func RegisterAuthRoutes(r fiber.Router, h *account.Handler) {
	group := r.Group("/auth")
	group.Post("/register", h.Register)
	group.Post("/login", h.Login)
	group.Get("/user", h.CurrentUser)
	group.Post("/logout", h.Logout)
}
