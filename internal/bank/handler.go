package bank

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/grandkuni/gkb/internal/catalog"
	"github.com/grandkuni/gkb/internal/hold"
	"github.com/grandkuni/gkb/internal/ledger"
	"github.com/grandkuni/gkb/internal/money"
	"github.com/grandkuni/gkb/internal/selection"
)

// Handler exposes the controller's event surface over HTTP.
type Handler struct {
	ctrl *Controller
}

// NewHandler constructs a bank handler.
func NewHandler(ctrl *Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

type confirmationRequest struct {
	Kind        catalog.Kind `json:"kind"`
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description"`
}

type quantityRequest struct {
	Delta    *int `json:"delta"`
	Quantity *int `json:"quantity"`
}

// State returns the current snapshot.
func (h *Handler) State(c *fiber.Ctx) error {
	return c.JSON(h.ctrl.Snapshot())
}

// Transactions returns the ledger log, most recent first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"balance":      h.ctrl.Ledger().Balance(),
		"transactions": h.ctrl.Ledger().Transactions(),
	})
}

// Catalog lists a catalog with selectability against the balance.
func (h *Handler) Catalog(c *fiber.Ctx) error {
	kind, err := catalog.ParseKind(c.Params("kind"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	entries, err := h.ctrl.Catalog(kind)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"kind": kind, "entries": entries})
}

// OpenFlow opens the credit or debit flow.
func (h *Handler) OpenFlow(c *fiber.Ctx) error {
	flow, err := ParseFlow(c.Params("flow"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	if err := h.ctrl.OpenFlow(flow); err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(h.ctrl.Snapshot())
}

// OpenConfirmation opens a fixed-amount confirmation.
func (h *Handler) OpenConfirmation(c *fiber.Ctx) error {
	var req confirmationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.ctrl.OpenConfirmation(req.Kind, req.Amount, req.Description); err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(h.ctrl.Snapshot())
}

// Cancel abandons the open interaction.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	h.ctrl.Cancel()
	return c.JSON(h.ctrl.Snapshot())
}

// Toggle toggles a catalog entry.
func (h *Handler) Toggle(c *fiber.Ctx) error {
	id, err := entryID(c)
	if err != nil {
		return err
	}
	if err := h.ctrl.Toggle(id); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(h.ctrl.Snapshot())
}

// Quantity adjusts (delta) or sets (quantity) a variable entry's quantity.
func (h *Handler) Quantity(c *fiber.Ctx) error {
	id, err := entryID(c)
	if err != nil {
		return err
	}
	var req quantityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	switch {
	case req.Quantity != nil:
		err = h.ctrl.SetQuantity(id, *req.Quantity)
	case req.Delta != nil:
		err = h.ctrl.AdjustQuantity(id, *req.Delta)
	default:
		return fiber.NewError(http.StatusBadRequest, "delta or quantity is required")
	}
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(h.ctrl.Snapshot())
}

// HoldStart begins the hold gesture.
func (h *Handler) HoldStart(c *fiber.Ctx) error {
	if err := h.ctrl.HoldStart(); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(h.ctrl.Snapshot())
}

// HoldEnd releases the hold gesture.
func (h *Handler) HoldEnd(c *fiber.Ctx) error {
	h.ctrl.HoldEnd()
	return c.JSON(h.ctrl.Snapshot())
}

// Swipe records a face or tongue swipe.
func (h *Handler) Swipe(c *fiber.Ctx) error {
	var err error
	switch c.Params("target") {
	case "face":
		_, err = h.ctrl.FaceSwipe()
	case "tongue":
		err = h.ctrl.TongueSwipe()
	default:
		return fiber.NewError(http.StatusNotFound, "unknown swipe target")
	}
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(h.ctrl.Snapshot())
}

func entryID(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid entry id")
	}
	return id, nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, selection.ErrUnknownEntry):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, selection.ErrUnselectable),
		errors.Is(err, hold.ErrNotCommittable),
		errors.Is(err, ErrNoSession),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrBalanceOverflow):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, hold.ErrClosed):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
