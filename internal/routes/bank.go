package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/grandkuni/gkb/internal/bank"
)

// RegisterBankRoutes wires the widget's event surface.
func RegisterBankRoutes(r fiber.Router, h *bank.Handler) {
	r.Get("/state", h.State)
	r.Get("/transactions", h.Transactions)
	r.Get("/catalogs/:kind", h.Catalog)

	r.Post("/flows/:flow", h.OpenFlow)
	r.Post("/confirmations", h.OpenConfirmation)
	r.Delete("/session", h.Cancel)

	r.Post("/session/entries/:id/toggle", h.Toggle)
	r.Post("/session/entries/:id/quantity", h.Quantity)
	r.Post("/session/hold", h.HoldStart)
	r.Delete("/session/hold", h.HoldEnd)

	r.Post("/swipes/:target", h.Swipe)
}
