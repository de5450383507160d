package integration

import (
	"context"
	"strings"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Webhook vocabulary
// ---------------------------------------------------------------------------

// Topics this router understands. Everything else is ignored, not rejected.
const (
	TopicProductsCreate        = "products/create"
	TopicProductsUpdate        = "products/update"
	TopicProductsDelete        = "products/delete"
	TopicOrdersCreate          = "orders/create"
	TopicOrdersUpdated         = "orders/updated"
	TopicInventoryLevelsUpdate = "inventory_levels/update"
)

// SubscribedTopics lists what the engine registers with the source platform
// at startup.
func SubscribedTopics() []string {
	return []string{
		TopicProductsCreate,
		TopicProductsUpdate,
		TopicProductsDelete,
		TopicOrdersCreate,
		TopicOrdersUpdated,
		TopicInventoryLevelsUpdate,
	}
}

// WebhookState is one step of an event's processing lifecycle.
type WebhookState string

const (
	// WebhookStateReceived indicates the event arrived and was assigned an id
	WebhookStateReceived WebhookState = "RECEIVED"
	// WebhookStateClassified indicates the topic was matched to a handler
	WebhookStateClassified WebhookState = "CLASSIFIED"
	// WebhookStateUpserted indicates a create-or-update completed
	WebhookStateUpserted WebhookState = "UPSERTED"
	// WebhookStateDeleted indicates a delete completed (or found nothing)
	WebhookStateDeleted WebhookState = "DELETED"
	// WebhookStateIgnored indicates the topic is not routed
	WebhookStateIgnored WebhookState = "IGNORED"
	// WebhookStateAcknowledged indicates processing finished and the source
	// will receive a success response
	WebhookStateAcknowledged WebhookState = "ACKNOWLEDGED"
)

// String returns the string representation of WebhookState
func (s WebhookState) String() string {
	return string(s)
}

// WebhookEvent is one inbound delivery: the topic header plus the raw
// `{"data": ...}` body.
type WebhookEvent struct {
	EventID string
	Topic   string
	Payload []byte
}

// WebhookResult reports how an event was handled.
type WebhookResult struct {
	EventID string       `json:"event_id"`
	Topic   string       `json:"topic"`
	State   WebhookState `json:"state"`
	Action  string       `json:"action,omitempty"`
	Message string       `json:"message,omitempty"`
}

// ---------------------------------------------------------------------------
// WebhookService
// ---------------------------------------------------------------------------

// WebhookService is the router for inbound source-platform events. Each
// event walks RECEIVED → CLASSIFIED → UPSERTED|DELETED|IGNORED →
// ACKNOWLEDGED; every transition is logged and the terminal outcome is
// counted.
type WebhookService struct {
	products  *ProductImportService
	inventory *InventorySyncService
	orders    *OrderSyncService
	monitor   integration.Monitor
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(
	products *ProductImportService,
	inventory *InventorySyncService,
	orders *OrderSyncService,
	monitor integration.Monitor,
) *WebhookService {
	return &WebhookService{
		products:  products,
		inventory: inventory,
		orders:    orders,
		monitor:   monitor,
	}
}

// ProcessEvent routes one delivery. Unknown topics resolve to IGNORED and
// never error. Handler failures abort only this event; the error travels
// back so the HTTP layer reports a failed delivery and the source redelivers
// (every handler is idempotent against that).
func (s *WebhookService) ProcessEvent(ctx context.Context, event WebhookEvent) (WebhookResult, error) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	result := WebhookResult{
		EventID: event.EventID,
		Topic:   event.Topic,
		State:   WebhookStateReceived,
	}
	s.logTransition(event, WebhookStateReceived)

	// Topic headers arrive with arbitrary casing.
	topic := strings.ToLower(strings.TrimSpace(event.Topic))

	switch topic {
	case TopicProductsCreate, TopicProductsUpdate:
		s.logTransition(event, WebhookStateClassified)
		product, err := decodeProductPayload(event.Payload)
		if err != nil {
			return s.fail(ctx, result, err)
		}
		action, err := s.products.SyncOne(ctx, product)
		if err != nil {
			return s.fail(ctx, result, err)
		}
		result.State = WebhookStateUpserted
		result.Action = action
		result.Message = "Product synchronized"

	case TopicProductsDelete:
		s.logTransition(event, WebhookStateClassified)
		externalID, err := decodeDeletePayload(event.Payload)
		if err != nil {
			return s.fail(ctx, result, err)
		}
		deleted, err := s.products.DeleteOne(ctx, externalID)
		if err != nil {
			return s.fail(ctx, result, err)
		}
		result.State = WebhookStateDeleted
		if deleted {
			result.Action = OutcomeDeleted
			result.Message = "Product deleted"
		} else {
			result.Action = OutcomeSkipped
			result.Message = "Product not found"
		}

	case TopicOrdersCreate, TopicOrdersUpdated:
		s.logTransition(event, WebhookStateClassified)
		order, err := decodeOrderPayload(event.Payload)
		if err != nil {
			return s.fail(ctx, result, err)
		}
		action, err := s.orders.ReconcileOne(ctx, order)
		if err != nil {
			return s.fail(ctx, result, err)
		}
		result.State = WebhookStateUpserted
		result.Action = strings.ToLower(action.String())
		result.Message = "Order reconciled"

	case TopicInventoryLevelsUpdate:
		s.logTransition(event, WebhookStateClassified)
		sku, levels, err := decodeInventoryPayload(event.Payload)
		if err != nil {
			return s.fail(ctx, result, err)
		}
		outcome, err := s.inventory.SyncSKU(ctx, sku, levels)
		if err != nil {
			return s.fail(ctx, result, err)
		}
		result.State = WebhookStateUpserted
		result.Action = outcome
		result.Message = "Inventory reconciled"

	default:
		// Unsupported topics are not failures.
		result.State = WebhookStateIgnored
		result.Message = "Topic not handled"
		s.monitor.Info("webhook topic not handled",
			zap.String("event_id", event.EventID),
			zap.String("topic", event.Topic),
		)
	}

	s.countOutcome(ctx, topic, result.State.String())
	s.logTransition(event, WebhookStateAcknowledged)
	return result, nil
}

func (s *WebhookService) fail(ctx context.Context, result WebhookResult, err error) (WebhookResult, error) {
	s.monitor.Error("webhook event failed",
		zap.String("event_id", result.EventID),
		zap.String("topic", result.Topic),
		zap.Error(err),
	)
	s.countOutcome(ctx, strings.ToLower(result.Topic), "failed")
	result.Message = err.Error()
	return result, err
}

func (s *WebhookService) countOutcome(ctx context.Context, topic, state string) {
	s.monitor.Metric(ctx, integration.MetricWebhookEvents, 1,
		attribute.String("topic", topic),
		attribute.String("state", state),
	)
}

func (s *WebhookService) logTransition(event WebhookEvent, state WebhookState) {
	s.monitor.Info("webhook event state",
		zap.String("event_id", event.EventID),
		zap.String("topic", event.Topic),
		zap.String("state", state.String()),
	)
}
