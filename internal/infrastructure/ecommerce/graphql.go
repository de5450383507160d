package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/channelsync/backend/internal/domain/integration"
)

const (
	// maxGraphQLResponseSize limits the response body size to prevent memory exhaustion
	maxGraphQLResponseSize = 10 * 1024 * 1024 // 10MB max response
	// defaultBurst allows short request bursts above the sustained rate
	defaultBurst = 4
)

// graphQLRequest is the wire format for a GraphQL call.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLError is one entry of the top-level errors array.
type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// graphQLResponse is the envelope every GraphQL endpoint returns. Data stays
// raw so each call can decode into its own typed payload.
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// graphQLUserError is the mutation-level error shape both platforms share:
// a field path plus a human message.
type graphQLUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// userErrorsToValidation converts a mutation's userErrors into a
// ValidationError, or nil when the mutation succeeded.
func userErrorsToValidation(platform, operation string, errs []graphQLUserError) error {
	if len(errs) == 0 {
		return nil
	}
	fields := make([]integration.FieldError, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, integration.FieldError{
			Field:   strings.Join(e.Field, "."),
			Message: e.Message,
		})
	}
	return &integration.ValidationError{
		Platform:  platform,
		Operation: operation,
		Fields:    fields,
	}
}

// ---------------------------------------------------------------------------
// graphQLClient
// ---------------------------------------------------------------------------

// graphQLClient posts GraphQL documents to a single endpoint, applying the
// platform's auth headers, an outbound rate limit and the shared error
// taxonomy. Both adapters build on it.
type graphQLClient struct {
	platform   string
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// newGraphQLClient creates a client for one platform endpoint. headers are
// attached to every request. requestsPerSecond caps the sustained outbound
// rate; zero or negative disables limiting.
func newGraphQLClient(platform, endpoint string, timeout time.Duration, requestsPerSecond float64, headers map[string]string) *graphQLClient {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), defaultBurst)
	}
	return &graphQLClient{
		platform: platform,
		endpoint: endpoint,
		headers:  headers,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// execute posts the query and decodes the data payload into out. Transport
// failures and 5xx map to ErrPlatformUnavailable, 429 and THROTTLED to
// ErrRateLimited, 401/403 to AuthenticationError; top-level GraphQL errors
// that indicate a broken request map to ErrInvalidResponse.
func (c *graphQLClient) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	bodyBytes, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", c.platform, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", c.platform, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGraphQLResponseSize))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", c.platform, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &integration.AuthenticationError{
			Platform:   c.platform,
			StatusCode: resp.StatusCode,
			Message:    httpErrorMessage(body),
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP 429", integration.ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: HTTP %d", integration.ErrInvalidResponse, resp.StatusCode)
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}

	if len(envelope.Errors) > 0 {
		return c.errorFromGraphQL(envelope.Errors)
	}

	if out != nil {
		if envelope.Data == nil {
			return fmt.Errorf("%w: response has no data", integration.ErrInvalidResponse)
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
		}
	}
	return nil
}

// errorFromGraphQL classifies the top-level errors array. Throttling and
// server-side faults keep their retryable sentinels; everything else means
// the request itself is broken and retrying cannot help.
func (c *graphQLClient) errorFromGraphQL(errs []graphQLError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Extensions.Code {
		case "THROTTLED":
			return fmt.Errorf("%w: %s", integration.ErrRateLimited, e.Message)
		case "INTERNAL_SERVER_ERROR":
			return fmt.Errorf("%w: %s", integration.ErrPlatformUnavailable, e.Message)
		}
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("%w: %s", integration.ErrInvalidResponse, strings.Join(msgs, "; "))
}

// httpErrorMessage extracts a short diagnostic from an error body.
func httpErrorMessage(body []byte) string {
	const maxLen = 200
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	if msg == "" {
		return "authentication rejected"
	}
	return msg
}

// ---------------------------------------------------------------------------
// Shared connection shapes
// ---------------------------------------------------------------------------

// pageInfoPayload is the cursor block every connection carries.
type pageInfoPayload struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// edgePayload is one edge of a connection.
type edgePayload[T any] struct {
	Node T `json:"node"`
}

// connectionPayload is the edges/pageInfo pair GraphQL listings return.
type connectionPayload[T any] struct {
	PageInfo pageInfoPayload  `json:"pageInfo"`
	Edges    []edgePayload[T] `json:"edges"`
}

// nodes flattens the connection's edges.
func (c connectionPayload[T]) nodes() []T {
	out := make([]T, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.Node)
	}
	return out
}

// pageVariables builds the first/after variable pair. An empty cursor omits
// "after" so the listing starts from the beginning.
func pageVariables(cursor string, limit int) map[string]any {
	variables := map[string]any{"first": limit}
	if cursor != "" {
		variables["after"] = cursor
	}
	return variables
}
