// Package integration provides end-to-end testing for the ChannelSync
// backend API. The suite wires the real application services, scheduler and
// HTTP layer to in-memory platform fakes, so full sync passes and webhook
// deliveries run without network access to either platform.
package integration

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	integrationapp "github.com/channelsync/backend/internal/application/integration"
	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/infrastructure/scheduler"
	"github.com/channelsync/backend/internal/infrastructure/syncstate"
	"github.com/channelsync/backend/internal/interfaces/http/handler"
	"github.com/channelsync/backend/internal/interfaces/http/router"
	"github.com/channelsync/backend/tests/testutil"
)

// TestWebhookSecret signs synthetic deliveries in this suite.
const TestWebhookSecret = "test-webhook-secret"

// Small page size so multi-page listing paths run even with a handful of
// seeded entities.
const testPageSize = 2

// TestServer wraps the wired engine and its fakes for API-level testing
type TestServer struct {
	Source    *testutil.FakeSourcePlatform
	Target    *testutil.FakeTargetPlatform
	State     *syncstate.MemoryStore
	Mappings  *testutil.StaticMappingSource
	Scheduler *scheduler.SyncScheduler
	Webhooks  *integrationapp.WebhookService
	Engine    *gin.Engine
	Fixtures  *testutil.Fixtures
}

// NewTestServer builds the full stack on in-memory fakes. The scheduler's
// periodic loops stay stopped; flows run through the manual trigger
// endpoints.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	source := testutil.NewFakeSourcePlatform()
	target := testutil.NewFakeTargetPlatform()
	state := syncstate.NewMemoryStore()
	mappings := &testutil.StaticMappingSource{Mappings: testutil.StandardMappings()}

	monitor := integration.NopMonitor{}
	retry := integration.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	productImport := integrationapp.NewProductImportService(source, target, mappings, monitor, retry, testPageSize)
	inventorySync := integrationapp.NewInventorySyncService(source, target, monitor, retry, testPageSize)
	orderSync := integrationapp.NewOrderSyncService(source, target, state, monitor, retry, testPageSize, time.Hour, 72*time.Hour)
	webhooks := integrationapp.NewWebhookService(productImport, inventorySync, orderSync, monitor)

	syncScheduler, err := scheduler.NewSyncScheduler(
		scheduler.Config{
			ProductsInterval:  time.Hour,
			InventoryInterval: time.Hour,
			OrdersInterval:    time.Hour,
			RunTimeout:        30 * time.Second,
		},
		map[integration.Flow]scheduler.FlowRunner{
			integration.FlowProducts:  productImport,
			integration.FlowInventory: inventorySync,
			integration.FlowOrders:    orderSync,
		},
		zap.NewNop(),
	)
	require.NoError(t, err)

	engine := gin.New()
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSystemHandler())
	r.Register(handler.NewSyncHandler(syncScheduler))
	r.Register(handler.NewWebhookHandler(webhooks, TestWebhookSecret))
	r.Setup()

	return &TestServer{
		Source:    source,
		Target:    target,
		State:     state,
		Mappings:  mappings,
		Scheduler: syncScheduler,
		Webhooks:  webhooks,
		Engine:    engine,
		Fixtures:  testutil.NewFixtures(42),
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	ts.Engine.ServeHTTP(w, req)
	return w
}

// WebhookRequest delivers a signed webhook body to the intake endpoint.
func (ts *TestServer) WebhookRequest(topic, eventID string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/shopify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handler.ShopifyTopicHeader, topic)
	req.Header.Set(handler.ShopifyHmacHeader, SignPayload(TestWebhookSecret, body))
	if eventID != "" {
		req.Header.Set(handler.ShopifyWebhookIDHeader, eventID)
	}

	w := httptest.NewRecorder()
	ts.Engine.ServeHTTP(w, req)
	return w
}

// SignPayload computes the delivery signature Shopify would send for body.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// APIResponse represents the standard API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta,omitempty"`
}

// DecodeResponse unmarshals a recorded response body into APIResponse
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "response body: %s", w.Body.String())
	return resp
}

// DataObject returns the response data as a JSON object
func DataObject(t *testing.T, resp APIResponse) map[string]interface{} {
	t.Helper()

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "response data is not an object: %v", resp.Data)
	return data
}

// RunResult extracts the flow run report from a trigger response
func RunResult(t *testing.T, resp APIResponse) map[string]interface{} {
	t.Helper()

	data := DataObject(t, resp)
	result, ok := data["result"].(map[string]interface{})
	require.True(t, ok, "run record has no result: %v", data)
	return result
}
