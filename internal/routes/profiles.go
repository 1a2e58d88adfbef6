package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aischool/aischool-backend/internal/profile"
)

// RegisterProfileRoutes wires child-profile CRUD behind authn. idem, when
// set, guards profile creation.
func RegisterProfileRoutes(r fiber.Router, h *profile.Handler, authn fiber.Handler, idem fiber.Handler) {
	group := r.Group("/profiles", authn)
	group.Get("/", h.List)
	if idem != nil {
		group.Post("/", idem, h.Create)
	} else {
		group.Post("/", h.Create)
	}
	group.Get("/:id", h.Get)
	group.Put("/:id", h.Update)
	group.Delete("/:id", h.Delete)
}
