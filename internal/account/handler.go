package account

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aischool/aischool-backend/internal/auth"
	"github.com/aischool/aischool-backend/internal/middleware"
)

// Handler exposes account endpoints under /auth.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs an account HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// View is the public shape of an account. It never carries the password hash.
type View struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	PhoneNumber string     `json:"phone_number"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login"`
}

// ToView projects an account onto its public view.
func ToView(a Account) View {
	return View{
		ID:          a.ID,
		Email:       a.Email,
		FullName:    a.FullName,
		PhoneNumber: a.PhoneNumber,
		CreatedAt:   a.CreatedAt,
		LastLogin:   a.LastLogin,
	}
}

type sessionResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    View   `json:"user"`
}

// Register handles guardian sign-up and returns a session token.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	account, err := h.service.Register(c.UserContext(), Registration{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return mapError(err)
	}
	session, err := h.service.IssueToken(account)
	if err != nil {
		return err
	}
	h.logger.Info("account registered", slog.String("account_id", account.ID))
	return c.Status(http.StatusCreated).JSON(sessionResponse{
		Message: "User registered successfully",
		Token:   session.Token,
		User:    ToView(account),
	})
}

// Login verifies credentials and returns a session token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	session, err := h.service.Login(c.UserContext(), Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(sessionResponse{
		Message: "Login successful",
		Token:   session.Token,
		User:    ToView(session.Account),
	})
}

// CurrentUser returns the account named by the bearer token.
func (h *Handler) CurrentUser(c *fiber.Ctx) error {
	token, ok := middleware.BearerToken(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authorization token required")
	}
	account, err := h.service.GetByToken(c.UserContext(), token)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": ToView(account)})
}

// Logout acknowledges a client-side logout. Tokens are stateless, so nothing
// changes on the server.
func (h *Handler) Logout(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Logged out successfully"})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEmailTaken):
		return fiber.NewError(http.StatusConflict, ErrEmailTaken.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrAccountDeactivated):
		return fiber.NewError(http.StatusUnauthorized, ErrAccountDeactivated.Error())
	case errors.Is(err, auth.ErrAuthFailure):
		return fiber.NewError(http.StatusUnauthorized, auth.ErrAuthFailure.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, ErrNotFound.Error())
	default:
		return err
	}
}
