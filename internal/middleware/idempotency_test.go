package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/grandkuni/gkb/internal/logging"
)

const testPrefix = "gkb:"

func setupTestApp(t *testing.T) (*fiber.App, *miniredis.Miniredis, *int64) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, testPrefix, logging.Discard()))

	var calls int64
	app.Post("/api/v1/session/entries/:id/toggle", func(c *fiber.Ctx) error {
		n := atomic.AddInt64(&calls, 1)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"calls": n})
	})
	app.Post("/api/v1/session/hold", func(c *fiber.Ctx) error {
		atomic.AddInt64(&calls, 1)
		return fiber.NewError(fiber.StatusConflict, "nothing to commit")
	})

	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})
	return app, mr, &calls
}

func post(t *testing.T, app *fiber.App, path, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
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
	app, _, calls := setupTestApp(t)

	post(t, app, "/api/v1/session/entries/1/toggle", "")
	status, _ := post(t, app, "/api/v1/session/entries/1/toggle", "")

	if status != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, status)
	}
	if *calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", *calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, mr, calls := setupTestApp(t)

	status, payload := post(t, app, "/api/v1/session/entries/1/toggle", "abc123")
	if status != fiber.StatusOK {
		t.Fatalf("expected status %d got %d", fiber.StatusOK, status)
	}

	// A retried toggle must not deselect the entry again.
	status, cachedPayload := post(t, app, "/api/v1/session/entries/1/toggle", "abc123")
	if status != fiber.StatusOK {
		t.Fatalf("expected cached status %d got %d", fiber.StatusOK, status)
	}
	if cachedPayload != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cachedPayload)
	}
	if *calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", *calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cachedPayload), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}

	if !mr.Exists(testPrefix + idempotencyPrefix + "POST:/api/v1/session/entries/1/toggle:abc123") {
		t.Fatalf("expected stored response under the prefixed key, have %v", mr.Keys())
	}
}

func TestIdempotencyKeyIsScopedToPath(t *testing.T) {
	app, _, calls := setupTestApp(t)

	post(t, app, "/api/v1/session/entries/1/toggle", "same")
	post(t, app, "/api/v1/session/entries/2/toggle", "same")

	if *calls != 2 {
		t.Fatalf("expected separate paths to run separately, ran %d times", *calls)
	}
}

func TestIdempotencyReleasesKeyOnError(t *testing.T) {
	app, mr, calls := setupTestApp(t)

	status, _ := post(t, app, "/api/v1/session/hold", "k1")
	if status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("failed request must not keep a reservation, have %v", mr.Keys())
	}

	post(t, app, "/api/v1/session/hold", "k1")
	if *calls != 2 {
		t.Fatalf("expected retry after failure to run the handler, ran %d times", *calls)
	}
}

func TestIdempotencyInProgressConflict(t *testing.T) {
	app, mr, calls := setupTestApp(t)

	mr.Set(testPrefix+idempotencyPrefix+"POST:/api/v1/session/entries/1/toggle:busy", inProgressMarker)
	status, _ := post(t, app, "/api/v1/session/entries/1/toggle", "busy")
	if status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
	if *calls != 0 {
		t.Fatal("handler must not run while the key is reserved")
	}
}

func TestIdempotencyStoreFailure(t *testing.T) {
	app, mr, _ := setupTestApp(t)

	mr.SetError("LOADING redis is loading")
	status, _ := post(t, app, "/api/v1/session/entries/1/toggle", "abc")
	if status != fiber.StatusInternalServerError {
		t.Fatalf("expected %d got %d", fiber.StatusInternalServerError, status)
	}
}
