package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/amirb2607/PortfolioHub/internal/reconciler"
	"github.com/amirb2607/PortfolioHub/pkg/errors"
	"github.com/amirb2607/PortfolioHub/pkg/logger"
	"github.com/amirb2607/PortfolioHub/pkg/middleware"
	"github.com/amirb2607/PortfolioHub/pkg/response"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	manager *reconciler.Manager
}

// NewHandler creates a new portfolio handler
func NewHandler(manager *reconciler.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes mounts the portfolio API. The caller applies auth
// middleware to the router before passing it in.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Get("/portfolio", h.GetPortfolio)
	router.Post("/portfolio/refresh", h.Refresh)
	router.Get("/portfolio/holdings", h.ListHoldings)
	router.Post("/portfolio/holdings", h.AddHolding)
	router.Delete("/portfolio/holdings/:symbol", h.RemoveHolding)
	router.Post("/session/signout", h.SignOut)
}

func (h *Handler) session(c *fiber.Ctx) (*reconciler.Reconciler, error) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return nil, errors.ErrUnauthorized
	}
	return h.manager.Ensure(userID)
}

// GetPortfolio returns the current snapshot with valuation summary
// GET /portfolio
func (h *Handler) GetPortfolio(c *fiber.Ctx) error {
	r, err := h.session(c)
	if err != nil {
		return err
	}
	return response.Success(c, toPortfolioResponse(r.Snapshot()))
}

// Refresh schedules a reconciliation pass
// POST /portfolio/refresh
func (h *Handler) Refresh(c *fiber.Ctx) error {
	r, err := h.session(c)
	if err != nil {
		return err
	}
	r.Refresh()
	return response.SuccessWithStatus(c, fiber.StatusAccepted, fiber.Map{
		"status": "scheduled",
	})
}

// ListHoldings returns the holdings without the summary
// GET /portfolio/holdings
func (h *Handler) ListHoldings(c *fiber.Ctx) error {
	r, err := h.session(c)
	if err != nil {
		return err
	}

	snap := r.Snapshot()
	holdings := make([]HoldingResponse, 0, len(snap.Holdings))
	for i := range snap.Holdings {
		holdings = append(holdings, toHoldingResponse(&snap.Holdings[i], snap.Summary.TotalMarketValue))
	}
	return response.Success(c, holdings)
}

// AddHolding applies a buy, creating or updating the holding
// POST /portfolio/holdings
func (h *Handler) AddHolding(c *fiber.Ctx) error {
	var req AddHoldingRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.ErrValidation.WithDetails("invalid request body")
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return errors.ErrValidation.WithDetails("quantity must be a decimal number")
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return errors.ErrValidation.WithDetails("price must be a decimal number")
	}

	r, err := h.session(c)
	if err != nil {
		return err
	}

	holding, err := r.AddBuy(c.Context(), req.Symbol, quantity, price)
	if err != nil {
		return err
	}

	logger.Info().
		Str("user_id", middleware.GetUserID(c)).
		Str("symbol", holding.Symbol).
		Str("quantity", holding.Quantity.String()).
		Msg("holding added")

	return response.Created(c, toHoldingResponse(holding, decimal.Zero))
}

// RemoveHolding fully liquidates a holding
// DELETE /portfolio/holdings/:symbol
func (h *Handler) RemoveHolding(c *fiber.Ctx) error {
	symbol := c.Params("symbol")

	r, err := h.session(c)
	if err != nil {
		return err
	}

	if err := r.Remove(c.Context(), symbol); err != nil {
		return err
	}

	logger.Info().
		Str("user_id", middleware.GetUserID(c)).
		Str("symbol", symbol).
		Msg("holding removed")

	return response.NoContent(c)
}

// SignOut stops the user's reconciler session
// POST /session/signout
func (h *Handler) SignOut(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return errors.ErrUnauthorized
	}

	h.manager.Stop(userID)
	return response.NoContent(c)
}
