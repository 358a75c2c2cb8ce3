package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dexingest/internal/repository"
)

// OrdersHandler serves the read-only API the UI consumes. It never writes;
// the webhook processor owns the write path.
type OrdersHandler struct {
	Repo repository.Repository
}

func (h *OrdersHandler) Register(r *gin.Engine) {
	group := r.Group("/api")
	group.GET("/orders", h.listOrders)
	group.GET("/orders/:marketId/:orderId", h.getOrder)
	group.GET("/orders/:marketId/:orderId/events", h.listOrderEvents)
	group.GET("/events", h.listEvents)
}

// @Summary List order snapshots
// @Tags orders
// @Param market_id query string false "market filter"
// @Param trader query string false "trader address filter"
// @Param status query string false "status filter"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/orders [get]
func (h *OrdersHandler) listOrders(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	params := repository.ListSnapshotsParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		MarketID: strQueryPtr(c, "market_id"),
		Trader:   strQueryPtr(c, "trader"),
		Status:   strQueryPtr(c, "status"),
	}
	if params.Limit > 500 {
		params.Limit = 500
	}

	items, err := h.Repo.ListSnapshots(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountSnapshots(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// @Summary Get one order snapshot
// @Tags orders
// @Param marketId path string true "market id"
// @Param orderId path string true "order id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/orders/{marketId}/{orderId} [get]
func (h *OrdersHandler) getOrder(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	marketID, orderID, ok := orderKey(c)
	if !ok {
		return
	}
	item, err := h.Repo.GetSnapshot(c.Request.Context(), marketID, orderID)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "order not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List the event history of one order
// @Tags orders
// @Param marketId path string true "market id"
// @Param orderId path string true "order id"
// @Success 200 {object} apiResponse
// @Router /api/orders/{marketId}/{orderId}/events [get]
func (h *OrdersHandler) listOrderEvents(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	marketID, orderID, ok := orderKey(c)
	if !ok {
		return
	}
	items, err := h.Repo.ListEventsByOrder(c.Request.Context(), marketID, orderID)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary List recent order events
// @Tags orders
// @Param market_id query string false "market filter"
// @Param event_type query string false "event type filter"
// @Param trader query string false "trader address filter"
// @Param tx_hash query string false "transaction filter"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/events [get]
func (h *OrdersHandler) listEvents(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	params := repository.ListEventsParams{
		Limit:     intQuery(c, "limit", 100),
		Offset:    intQuery(c, "offset", 0),
		MarketID:  strQueryPtr(c, "market_id"),
		EventType: strQueryPtr(c, "event_type"),
		Trader:    strQueryPtr(c, "trader"),
		TxHash:    strQueryPtr(c, "tx_hash"),
	}
	if params.Limit > 1000 {
		params.Limit = 1000
	}
	items, err := h.Repo.ListEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func orderKey(c *gin.Context) (string, decimal.Decimal, bool) {
	marketID := strings.TrimSpace(c.Param("marketId"))
	orderID, err := decimal.NewFromString(strings.TrimSpace(c.Param("orderId")))
	if marketID == "" || err != nil {
		Error(c, http.StatusBadRequest, "invalid market or order id", nil)
		return "", decimal.Decimal{}, false
	}
	return marketID, orderID, true
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func strQueryPtr(c *gin.Context, key string) *string {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	return &raw
}
