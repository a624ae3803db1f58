package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func setupLoginApp(t *testing.T) (*fiber.App, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	app.Post("/auth/login", LoginRateLimit(cache, 3), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, cleanup
}

func postLogin(t *testing.T, app *fiber.App, email string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/auth/login", strings.NewReader(`{"email":"`+email+`","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestLoginRateLimitBlocksAfterThreshold(t *testing.T) {
	app, cleanup := setupLoginApp(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		if status := postLogin(t, app, "rider@example.com"); status != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, status)
		}
	}
	if status := postLogin(t, app, "rider@example.com"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 after threshold, got %d", status)
	}
}

func TestLoginRateLimitKeysOnEmail(t *testing.T) {
	app, cleanup := setupLoginApp(t)
	defer cleanup()

	for i := 0; i < 4; i++ {
		postLogin(t, app, "first@example.com")
	}
	if status := postLogin(t, app, "second@example.com"); status != fiber.StatusOK {
		t.Fatalf("other account must not be throttled, got %d", status)
	}
}

func TestLoginRateLimitFailsOpenWithoutCache(t *testing.T) {
	app := fiber.New()
	app.Post("/auth/login", LoginRateLimit(nil, 1), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 3; i++ {
		if status := postLogin(t, app, "rider@example.com"); status != fiber.StatusOK {
			t.Fatalf("expected pass-through without cache, got %d", status)
		}
	}
}
