package ingest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inlet/internal/constants"
	"inlet/internal/logger"
)

func newTestRouter(t *testing.T, burst int) (*gin.Engine, *testPipeline) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	p := newTestPipeline(t, burst)
	handler := NewHandler(p.svc, constants.DefaultSignatureHeader, logger.NopLogger())

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, p
}

func postWebhook(router *gin.Engine, body []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(constants.DefaultSignatureHeader, sig)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_AcceptedSubmission(t *testing.T) {
	router, _ := newTestRouter(t, 10)
	body := []byte(`{"id":"m-1","sender":"alice","body":"hello"}`)

	w := postWebhook(router, body, sign(body))
	require.Equal(t, http.StatusOK, w.Code)

	var receipt Receipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.Equal(t, "m-1", receipt.ID)
	assert.Equal(t, ResultCreated, receipt.Result)
	assert.False(t, receipt.Duplicate)
}

func TestHandler_DuplicateSubmission(t *testing.T) {
	router, _ := newTestRouter(t, 10)
	body := []byte(`{"id":"m-1","sender":"alice","body":"hello"}`)

	w := postWebhook(router, body, sign(body))
	require.Equal(t, http.StatusOK, w.Code)

	w = postWebhook(router, body, sign(body))
	require.Equal(t, http.StatusOK, w.Code)

	var receipt Receipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.True(t, receipt.Duplicate)
}

func TestHandler_ErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		sig      func(body []byte) string
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing signature header",
			body:     []byte(`{"id":"m-1","sender":"alice","body":"x"}`),
			sig:      func([]byte) string { return "" },
			wantCode: http.StatusUnauthorized,
			wantErr:  "INVALID_SIGNATURE",
		},
		{
			name:     "wrong signature",
			body:     []byte(`{"id":"m-1","sender":"alice","body":"x"}`),
			sig:      func([]byte) string { return sign([]byte("something else")) },
			wantCode: http.StatusUnauthorized,
			wantErr:  "INVALID_SIGNATURE",
		},
		{
			name:     "malformed payload",
			body:     []byte(`{"sender":"alice"}`),
			sig:      sign,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "MALFORMED_PAYLOAD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, 10)

			w := postWebhook(router, tt.body, tt.sig(tt.body))
			require.Equal(t, tt.wantCode, w.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp["error_code"])
		})
	}
}

func TestHandler_RateLimited(t *testing.T) {
	router, _ := newTestRouter(t, 1)

	body := []byte(`{"id":"m-1","sender":"alice","body":"x"}`)
	w := postWebhook(router, body, sign(body))
	require.Equal(t, http.StatusOK, w.Code)

	body = []byte(`{"id":"m-2","sender":"alice","body":"x"}`)
	w = postWebhook(router, body, sign(body))
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_LIMITED", resp["error_code"])
}
