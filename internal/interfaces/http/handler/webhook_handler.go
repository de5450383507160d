package handler

import (
	"context"
	"io"
	"net/http"

	integrationapp "github.com/channelsync/backend/internal/application/integration"
	"github.com/channelsync/backend/internal/infrastructure/ecommerce"
	"github.com/channelsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Shopify delivery headers carried on every webhook POST.
const (
	ShopifyTopicHeader     = "X-Shopify-Topic"
	ShopifyHmacHeader      = "X-Shopify-Hmac-Sha256"
	ShopifyWebhookIDHeader = "X-Shopify-Webhook-Id"
)

// Maximum webhook payload size (1MB - a product with a full variant matrix
// stays well under this)
const maxWebhookPayloadSize = 1 << 20

// WebhookProcessor routes one inbound delivery through the sync engine.
type WebhookProcessor interface {
	ProcessEvent(ctx context.Context, event integrationapp.WebhookEvent) (integrationapp.WebhookResult, error)
}

// WebhookHandler receives webhook deliveries from the source platform.
// These endpoints are called by Shopify and authenticate with an HMAC
// signature instead of a bearer token.
type WebhookHandler struct {
	BaseHandler
	processor WebhookProcessor
	secret    string
}

// NewWebhookHandler creates a new WebhookHandler. secret is the shared key
// Shopify signs deliveries with; when empty, signature verification is
// skipped (local development against replayed payloads).
func NewWebhookHandler(processor WebhookProcessor, secret string) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		secret:    secret,
	}
}

// RegisterRoutes registers webhook routes on the given router group
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/shopify", h.HandleShopifyWebhook)
		webhooks.GET("/topics", h.ListTopics)
	}
}

// TopicsResponse lists the webhook topics the engine subscribes to
type TopicsResponse struct {
	Topics []string `json:"topics"`
}

// ListTopics returns the topics registered with the source platform
func (h *WebhookHandler) ListTopics(c *gin.Context) {
	h.Success(c, TopicsResponse{Topics: integrationapp.SubscribedTopics()})
}

// HandleShopifyWebhook ingests one delivery. The raw body is read before any
// parsing because the HMAC covers the exact bytes Shopify sent. Processing
// failures return an error status so the source redelivers; the event
// handlers are idempotent against that.
func (h *WebhookHandler) HandleShopifyWebhook(c *gin.Context) {
	// Read the raw request body with size limit to prevent DoS attacks
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "Payload too large")
		return
	}

	if !ecommerce.VerifyWebhookHMAC(h.secret, payload, c.GetHeader(ShopifyHmacHeader)) {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeWebhookSignature, "Webhook signature verification failed")
		return
	}

	event := integrationapp.WebhookEvent{
		EventID: c.GetHeader(ShopifyWebhookIDHeader),
		Topic:   c.GetHeader(ShopifyTopicHeader),
		Payload: payload,
	}

	result, err := h.processor.ProcessEvent(c.Request.Context(), event)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
