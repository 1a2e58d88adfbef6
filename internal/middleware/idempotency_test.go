package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aischool/aischool-backend/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *atomic.Int32) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	var calls atomic.Int32
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(localAccountID, c.Get("X-Test-Account"))
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})
	app.Post("/fails", func(c *fiber.Ctx) error {
		calls.Add(1)
		return fiber.NewError(fiber.StatusBadRequest, "nope")
	})
	return app, &calls
}

func post(t *testing.T, app *fiber.App, path, account, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Test-Account", account)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	app, calls := setupTestApp(t)

	post(t, app, "/resource", "acct-a", "")
	post(t, app, "/resource", "acct-a", "")

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected handler to run twice, ran %d", got)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupTestApp(t)

	status, body := post(t, app, "/resource", "acct-a", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	status2, body2 := post(t, app, "/resource", "acct-a", "abc123")
	if status2 != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status2)
	}
	if body2 != body {
		t.Fatalf("expected cached payload %s got %s", body, body2)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected handler to run once, ran %d", got)
	}
}

func TestIdempotencyKeysAreScopedPerAccount(t *testing.T) {
	app, calls := setupTestApp(t)

	post(t, app, "/resource", "acct-a", "same")
	post(t, app, "/resource", "acct-b", "same")

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected one call per account, got %d", got)
	}
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	app, calls := setupTestApp(t)

	status, _ := post(t, app, "/fails", "acct-a", "k1")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 got %d", status)
	}
	post(t, app, "/fails", "acct-a", "k1")

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected failed request to be retried, got %d calls", got)
	}
}
