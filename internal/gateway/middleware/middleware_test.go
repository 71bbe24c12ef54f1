package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestCORS_ReflectsAnyOriginByDefault(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	CORS()(ok).ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCORS_Allowlist(t *testing.T) {
	h := CORS("https://app.example.com")(ok)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	req.Header.Set("Origin", "https://app.example.com")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS()(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Connect-Protocol-Version")
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	rec := httptest.NewRecorder()
	AccessLog(zap.New(core))(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/events", nil))

	entries := logs.FilterMessage("request").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "/ws/events", fields["path"])
		assert.EqualValues(t, http.StatusTeapot, fields["status"])
	}
}
