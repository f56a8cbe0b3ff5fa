package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickbite/quickbite/server/internal/store"
)

// createOrder handles POST /api/v1/orders.
func (h *Handler) createOrder(c *gin.Context) {
	var in store.NewOrder
	if err := c.ShouldBindJSON(&in); err != nil {
		jsonErr(c, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := h.store.CreateOrder(c.Request.Context(), in)
	if err != nil {
		storeErr(c, err)
		return
	}
	slog.Info("api: order created", "order", o.OrderID, "user", o.UserID, "items", len(o.Items))
	c.JSON(http.StatusCreated, o)
}

// listOrders handles GET /api/v1/orders. Without ?userId= it lists every
// order and is admin-only.
func (h *Handler) listOrders(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" && !h.auth.Check(c.Request) {
		jsonErr(c, http.StatusUnauthorized, "invalid api key")
		return
	}
	orders, err := h.store.ListOrders(c.Request.Context(), userID)
	if err != nil {
		storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// getOrder handles GET /api/v1/orders/:id.
func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.store.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// updateStatus handles PATCH /api/v1/orders/:id/status.
func (h *Handler) updateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonErr(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Status.Valid() {
		jsonErr(c, http.StatusBadRequest, "unknown status")
		return
	}
	if req.EstimatedTime != nil && *req.EstimatedTime < 0 {
		jsonErr(c, http.StatusBadRequest, "estimatedTime must not be negative")
		return
	}
	o, err := h.store.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status, req.EstimatedTime)
	if err != nil {
		storeErr(c, err)
		return
	}
	slog.Info("api: order status updated", "order", o.OrderID, "status", o.Status)
	c.JSON(http.StatusOK, o)
}

// storeErr maps store errors onto HTTP status codes.
func storeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonErr(c, http.StatusNotFound, "order not found")
	case errors.Is(err, store.ErrInvalidOrder):
		jsonErr(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		jsonErr(c, http.StatusConflict, err.Error())
	default:
		slog.Error("api: store failure", "path", c.FullPath(), "err", err)
		jsonErr(c, http.StatusInternalServerError, "internal error")
	}
}

func jsonErr(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, errorResponse{Error: msg})
}
