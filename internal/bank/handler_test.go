package bank_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandkuni/gkb/internal/bank"
	"github.com/grandkuni/gkb/internal/money"
)

func newTestApp(t *testing.T, balance money.Amount) (*fiber.App, *fixture) {
	t.Helper()
	f := newFixture(t, balance)
	h := bank.NewHandler(f.ctrl)

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Get("/state", h.State)
	api.Get("/transactions", h.Transactions)
	api.Get("/catalogs/:kind", h.Catalog)
	api.Post("/flows/:flow", h.OpenFlow)
	api.Post("/confirmations", h.OpenConfirmation)
	api.Delete("/session", h.Cancel)
	api.Post("/session/entries/:id/toggle", h.Toggle)
	api.Post("/session/entries/:id/quantity", h.Quantity)
	api.Post("/session/hold", h.HoldStart)
	api.Delete("/session/hold", h.HoldEnd)
	api.Post("/swipes/:target", h.Swipe)
	return app, f
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestHandlerDebitRoundTrip(t *testing.T) {
	app, f := newTestApp(t, money.FromInt(5))

	status, body := do(t, app, http.MethodPost, "/api/v1/flows/debit", "")
	require.Equal(t, http.StatusCreated, status)
	session := body["session"].(map[string]any)
	assert.Equal(t, "debit", session["flow"])

	status, body = do(t, app, http.MethodPost, "/api/v1/session/entries/1/toggle", "")
	require.Equal(t, http.StatusOK, status)
	session = body["session"].(map[string]any)
	assert.Equal(t, 2.0, session["total"])
	assert.Equal(t, true, session["can_commit"])

	status, _ = do(t, app, http.MethodPost, "/api/v1/session/hold", "")
	require.Equal(t, http.StatusOK, status)
	f.clk.Advance(fullHold + catalogGrace)

	status, body = do(t, app, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3.0, body["balance"])
	assert.Nil(t, body["session"])
	txs := body["transactions"].([]any)
	require.Len(t, txs, 1)
	tx := txs[0].(map[string]any)
	assert.Equal(t, "deduct", tx["type"])
	assert.Equal(t, 2.0, tx["amount"])
	assert.Equal(t, "Pancakes", tx["description"])

	status, body = do(t, app, http.MethodGet, "/api/v1/transactions", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["transactions"], 1)
}

func TestHandlerQuantity(t *testing.T) {
	app, _ := newTestApp(t, money.FromInt(10))
	do(t, app, http.MethodPost, "/api/v1/flows/debit", "")

	status, body := do(t, app, http.MethodPost, "/api/v1/session/entries/3/quantity", `{"delta":2}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3.0, body["session"].(map[string]any)["total"])

	status, body = do(t, app, http.MethodPost, "/api/v1/session/entries/3/quantity", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5.0, body["session"].(map[string]any)["total"])

	status, _ = do(t, app, http.MethodPost, "/api/v1/session/entries/3/quantity", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/api/v1/session/entries/1/quantity", `{"delta":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandlerErrors(t *testing.T) {
	app, _ := newTestApp(t, money.FromInt(1))

	status, _ := do(t, app, http.MethodPost, "/api/v1/session/entries/1/toggle", "")
	assert.Equal(t, http.StatusConflict, status, "no session")

	status, _ = do(t, app, http.MethodPost, "/api/v1/flows/gift", "")
	assert.Equal(t, http.StatusNotFound, status)

	do(t, app, http.MethodPost, "/api/v1/flows/debit", "")

	status, _ = do(t, app, http.MethodPost, "/api/v1/session/entries/2/toggle", "")
	assert.Equal(t, http.StatusConflict, status, "unaffordable")

	status, _ = do(t, app, http.MethodPost, "/api/v1/session/entries/99/toggle", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodPost, "/api/v1/session/entries/abc/toggle", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/api/v1/session/hold", "")
	assert.Equal(t, http.StatusConflict, status, "empty session cannot hold")

	status, _ = do(t, app, http.MethodPost, "/api/v1/swipes/ear", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodGet, "/api/v1/catalogs/gift", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandlerConfirmation(t *testing.T) {
	app, f := newTestApp(t, money.FromInt(2))

	status, body := do(t, app, http.MethodPost, "/api/v1/confirmations", `{"kind":"credit","amount":"1.5","description":"Gift"}`)
	require.Equal(t, http.StatusCreated, status)
	session := body["session"].(map[string]any)
	assert.Equal(t, "confirm", session["flow"])
	assert.Equal(t, 1.5, session["total"])

	do(t, app, http.MethodPost, "/api/v1/session/hold", "")
	f.clk.Advance(fullHold + confirmGrace)
	assert.Equal(t, money.MustParse("3.5"), f.engine.Balance())

	status, _ = do(t, app, http.MethodPost, "/api/v1/confirmations", `{"kind":"debit","amount":0}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandlerRejectsOutOfRangeAmounts(t *testing.T) {
	app, f := newTestApp(t, money.FromInt(2))

	for _, body := range []string{
		`{"kind":"credit","amount":"1e30","description":"Gift"}`,
		`{"kind":"credit","amount":1e30,"description":"Gift"}`,
		`{"kind":"credit","amount":"12,"description":"Gift"}`,
	} {
		status, _ := do(t, app, http.MethodPost, "/api/v1/confirmations", body)
		assert.Equal(t, http.StatusBadRequest, status, body)
	}
	assert.Nil(t, f.ctrl.Snapshot().Session)

	do(t, app, http.MethodPost, "/api/v1/flows/credit", "")
	status, _ := do(t, app, http.MethodPost, "/api/v1/session/entries/8/quantity", `{"quantity":1844674407370955162}`)
	assert.Equal(t, http.StatusBadRequest, status)
	_, body := do(t, app, http.MethodGet, "/api/v1/state", "")
	assert.Equal(t, 0.0, body["session"].(map[string]any)["total"])
	assert.Equal(t, 2.0, body["balance"])
}

func TestHandlerSwipesAndCancel(t *testing.T) {
	app, _ := newTestApp(t, money.FromInt(2))

	for i := 0; i < 3; i++ {
		status, _ := do(t, app, http.MethodPost, "/api/v1/swipes/face", "")
		require.Equal(t, http.StatusOK, status)
	}
	_, body := do(t, app, http.MethodGet, "/api/v1/state", "")
	assert.Equal(t, "credit", body["session"].(map[string]any)["flow"])

	_, body = do(t, app, http.MethodPost, "/api/v1/swipes/tongue", "")
	assert.Equal(t, "debit", body["session"].(map[string]any)["flow"])

	status, body := do(t, app, http.MethodDelete, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["session"])
}

func TestHandlerCatalog(t *testing.T) {
	app, _ := newTestApp(t, money.FromInt(1))

	status, body := do(t, app, http.MethodGet, "/api/v1/catalogs/debit", "")
	require.Equal(t, http.StatusOK, status)
	entries := body["entries"].([]any)
	require.Len(t, entries, 4)
	first := entries[0].(map[string]any)
	assert.Equal(t, "Pancakes", first["label"])
	assert.Equal(t, false, first["selectable"])
}

func TestHandlerHoldEnd(t *testing.T) {
	app, f := newTestApp(t, money.FromInt(5))
	do(t, app, http.MethodPost, "/api/v1/flows/debit", "")
	do(t, app, http.MethodPost, "/api/v1/session/entries/1/toggle", "")
	do(t, app, http.MethodPost, "/api/v1/session/hold", "")
	f.clk.Advance(10 * tick)

	status, body := do(t, app, http.MethodDelete, "/api/v1/session/hold", "")
	require.Equal(t, http.StatusOK, status)
	hold := body["session"].(map[string]any)["hold"].(map[string]any)
	assert.Equal(t, "idle", hold["state"])
	assert.Equal(t, 0.0, hold["progress"])
}
