package profile

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aischool/aischool-backend/internal/middleware"
)

// Handler exposes profile endpoints. Every route must sit behind
// middleware.BearerAuth; the owner is always the authenticated account.
type Handler struct {
	service *Service
}

// NewHandler constructs a profile HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name          string `json:"name"`
	Age           any    `json:"age"`
	Grade         string `json:"grade"`
	Avatar        string `json:"avatar"`
	LearningGoals string `json:"learning_goals"`
}

// View is the public shape of a profile.
type View struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Age           int        `json:"age"`
	Grade         string     `json:"grade"`
	Avatar        string     `json:"avatar"`
	LearningGoals string     `json:"learning_goals"`
	CreatedAt     time.Time  `json:"created_at"`
	LastActivity  *time.Time `json:"last_activity"`
	Progress      string     `json:"progress"`
}

func ToView(p Profile) View {
	return View{
		ID:            p.ID,
		Name:          p.Name,
		Age:           p.Age,
		Grade:         p.Grade,
		Avatar:        p.Avatar,
		LearningGoals: p.LearningGoals,
		CreatedAt:     p.CreatedAt,
		LastActivity:  p.LastActivity,
		Progress:      p.Progress,
	}
}

func (h *Handler) List(c *fiber.Ctx) error {
	profiles, err := h.service.ListActive(c.UserContext(), middleware.AccountID(c))
	if err != nil {
		return err
	}
	views := make([]View, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, ToView(p))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"profiles": views, "count": len(views)})
}

func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.service.Create(c.UserContext(), middleware.AccountID(c), Draft{
		Name:          req.Name,
		Age:           req.Age,
		Grade:         req.Grade,
		Avatar:        req.Avatar,
		LearningGoals: req.LearningGoals,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Kid profile created successfully",
		"profile": ToView(p),
	})
}

func (h *Handler) Get(c *fiber.Ctx) error {
	p, err := h.service.GetActive(c.UserContext(), middleware.AccountID(c), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"profile": ToView(p)})
}

func (h *Handler) Update(c *fiber.Ctx) error {
	var delta Delta
	if err := c.BodyParser(&delta); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.service.Update(c.UserContext(), middleware.AccountID(c), c.Params("id"), delta)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Profile updated successfully",
		"profile": ToView(p),
	})
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), middleware.AccountID(c), c.Params("id")); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Profile deleted successfully"})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, ErrNotFound.Error())
	default:
		return err
	}
}
