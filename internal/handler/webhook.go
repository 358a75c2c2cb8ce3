package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dexingest/internal/chain"
	"dexingest/internal/config"
	"dexingest/internal/webhook"
)

type WebhookHandler struct {
	Processor *webhook.Processor
	Chain     config.ChainConfig
	Logger    *zap.Logger
}

func (h *WebhookHandler) Register(r *gin.Engine) {
	r.POST("/webhooks/alchemy", h.receive)
	r.GET("/webhooks/alchemy", h.status)
}

type webhookResponse struct {
	Success     bool               `json:"success"`
	Processed   int                `json:"processed"`
	OrdersFound int                `json:"ordersFound"`
	Errors      int                `json:"errors"`
	Orders      []webhook.OrderRef `json:"orders"`
}

// @Summary Receive an order-book log webhook
// @Tags webhook
// @Accept json
// @Param X-Alchemy-Signature header string true "HMAC-SHA256 hex digest of the raw body"
// @Success 200 {object} webhookResponse
// @Failure 401 {object} map[string]any
// @Failure 500 {object} map[string]any
// @Router /webhooks/alchemy [post]
func (h *WebhookHandler) receive(c *gin.Context) {
	if h.Processor == nil {
		Error(c, http.StatusInternalServerError, "processor unavailable", nil)
		return
	}
	// The signature covers the exact bytes on the wire, so the body must be
	// read raw, never re-serialized from a bound struct.
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		Error(c, http.StatusInternalServerError, "read body failed", nil)
		return
	}

	result, err := h.Processor.ProcessBatch(c.Request.Context(), body, c.GetHeader(webhook.SignatureHeader))
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid signature"})
			return
		}
		if h.Logger != nil {
			h.Logger.Warn("webhook batch rejected", zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	orders := result.Orders
	if orders == nil {
		orders = []webhook.OrderRef{}
	}
	c.JSON(http.StatusOK, webhookResponse{
		Success:     true,
		Processed:   result.Processed,
		OrdersFound: len(result.Orders),
		Errors:      len(result.Errors),
		Orders:      orders,
	})
}

// @Summary Webhook endpoint metadata
// @Tags webhook
// @Success 200 {object} map[string]any
// @Router /webhooks/alchemy [get]
func (h *WebhookHandler) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"endpoint":  "order-book log ingestion",
		"chain_id":  h.Chain.ChainID,
		"contracts": h.Chain.OrderBookAddresses,
		"events":    chain.KnownEvents(),
	})
}
