package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/whatsapp-intake-agent/pkg/logging"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "/webhook", entry["path"])
	assert.EqualValues(t, http.StatusNotFound, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
	assert.Equal(t, entry["request_id"], w.Header().Get("X-Request-ID"))
}

func TestRequestLoggerReusesChiRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)

	h := middleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.EqualValues(t, http.StatusOK, entry["status"])
}

func TestRequestLoggerErrorLevelOnServerError(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
}
