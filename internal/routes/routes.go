package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/aischool/aischool-backend/internal/account"
	"github.com/aischool/aischool-backend/internal/auth"
	"github.com/aischool/aischool-backend/internal/config"
	"github.com/aischool/aischool-backend/internal/logging"
	"github.com/aischool/aischool-backend/internal/middleware"
	"github.com/aischool/aischool-backend/internal/password"
	"github.com/aischool/aischool-backend/internal/profile"
	"github.com/aischool/aischool-backend/internal/store"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	Store  store.Store
	Cache  redis.UniversalClient // optional; enables idempotent replay
	Logger *slog.Logger
	Hasher account.Hasher // optional; defaults to bcrypt at the default cost
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Store == nil {
		return errors.New("routes: store is required")
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	tokens, err := auth.NewService(d.Cfg.SecretKey, d.Cfg.TokenTTL)
	if err != nil {
		return err
	}
	hasher := d.Hasher
	if hasher == nil {
		hasher = password.Default()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
	}))

	accounts := account.NewService(account.NewTableRepository(d.Store.Table(d.Cfg.UsersTable)), hasher, tokens, d.Logger)
	profiles := profile.NewService(profile.NewTableRepository(d.Store.Table(d.Cfg.ProfilesTable)), d.Logger)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success": true,
			"message": d.Cfg.AppName + " backend API is running",
		})
	})

	api := app.Group(d.Cfg.APIPrefix)
	RegisterHealthRoutes(api, d)
	RegisterAuthRoutes(api, account.NewHandler(accounts, d.Logger))

	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterProfileRoutes(api, profile.NewHandler(profiles), middleware.BearerAuth(tokens), idem)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(http.StatusNotFound, "endpoint not found")
	})
	return nil
}
