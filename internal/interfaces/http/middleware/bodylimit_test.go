package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// limitedIntake wires BodyLimit in front of a route that drains the body,
// the way the webhook endpoint consumes deliveries.
func limitedIntake(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BodyLimit(maxBytes))
	router.POST("/webhooks/shopify", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusBadRequest, "truncated")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func postDelivery(router *gin.Engine, payload string, declareLength bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(payload))
	if !declareLength {
		req.ContentLength = -1 // chunked transfer, length unknown up front
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBodyLimitPassesSmallDeliveries(t *testing.T) {
	router := limitedIntake(1 << 10)

	w := postDelivery(router, `{"data":{"id":"gid://shopify/Product/42"}}`, true)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodyLimitRejectsDeclaredOversize(t *testing.T) {
	router := limitedIntake(64)

	w := postDelivery(router, strings.Repeat("x", 200), true)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "REQUEST_TOO_LARGE")
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestBodyLimitCatchesChunkedOversizeOnRead(t *testing.T) {
	// No Content-Length to check up front; MaxBytesReader trips while the
	// handler drains the body.
	router := limitedIntake(64)

	w := postDelivery(router, strings.Repeat("x", 200), false)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBodyLimitIgnoresBodylessRequests(t *testing.T) {
	router := limitedIntake(8)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
