package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPTestCase drives one handler invocation and checks the envelope it
// wrote. ExpectedBody compares top-level keys only; Validate runs after the
// built-in checks for anything deeper.
type HTTPTestCase struct {
	Name           string
	Method         string // GET when empty
	Path           string // "/" when empty
	ExpectedStatus int    // skipped when zero
	ExpectedBody   map[string]any
	Validate       func(t *testing.T, tc *TestContext)
}

// RunHTTPTestCases runs each case as a named subtest against handler.
func RunHTTPTestCases(t *testing.T, handler gin.HandlerFunc, cases []HTTPTestCase) {
	t.Helper()

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHTTPTestCase(t, handler, tc)
		})
	}
}

// RunHTTPTestCase invokes handler directly on a recorded gin context, the
// way the operator endpoints are unit tested without a full router.
func RunHTTPTestCase(t *testing.T, handler gin.HandlerFunc, tc HTTPTestCase) {
	t.Helper()

	method := tc.Method
	if method == "" {
		method = http.MethodGet
	}
	path := tc.Path
	if path == "" {
		path = "/"
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)

	handler(c)

	testCtx := &TestContext{Context: c, Recorder: w}
	if tc.ExpectedStatus != 0 {
		assert.Equal(t, tc.ExpectedStatus, w.Code)
	}
	if tc.ExpectedBody != nil {
		body := JSONResponse(t, testCtx)
		for key, want := range tc.ExpectedBody {
			assert.Equal(t, want, body[key], "response key %q", key)
		}
	}
	if tc.Validate != nil {
		tc.Validate(t, testCtx)
	}
}

// JSONResponse decodes the recorded response body into a generic map.
func JSONResponse(t *testing.T, tc *TestContext) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &body), "response is not JSON")
	return body
}

// AssertSuccessResponse checks the success envelope: success true, no error
// object.
func AssertSuccessResponse(t *testing.T, tc *TestContext) {
	t.Helper()

	body := JSONResponse(t, tc)
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["error"])
}
