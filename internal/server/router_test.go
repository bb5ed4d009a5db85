package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aspect-build/attestd/internal/attestation"
	"github.com/gin-gonic/gin"
)

type fixedAttester struct{}

func (fixedAttester) Attest(context.Context) attestation.Response {
	return attestation.Response{
		Platform:     attestation.PlatformUnknown,
		TPMPCRSHA256: attestation.PCRTable{"error": "tpm2-tools not installed"},
		TEEDmesg:     []string{},
	}
}

func newTestRouter(t *testing.T, origins ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return NewRouter(fixedAttester{}, &Config{Host: DefaultHost, Port: DefaultPort, CORSOrigins: origins})
}

func TestRouterAttestationAliases(t *testing.T) {
	r := newTestRouter(t)

	var bodies []string
	for _, path := range []string{"/attestation", "/v1/attestation"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("%s: CORS header = %q", path, got)
		}
		bodies = append(bodies, w.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("aliases differ:\n%s\n%s", bodies[0], bodies[1])
	}
}

func TestRouterNotFound(t *testing.T) {
	r := newTestRouter(t)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/foo", nil),
		httptest.NewRequest(http.MethodPost, "/attestation", nil),
		httptest.NewRequest(http.MethodGet, "/attestation/", nil),
		httptest.NewRequest(http.MethodGet, "/v1/attestation/", nil),
		httptest.NewRequest(http.MethodGet, "/health/", nil),
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", req.Method, req.URL.Path, w.Code)
		}
		if w.Body.String() != `{"error":"Not found"}` {
			t.Fatalf("unexpected body %s", w.Body.String())
		}
	}
}

func TestRouterHealthHasNoCORS(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected CORS header on /health: %q", got)
	}
}

func TestRouterRestrictedCORS(t *testing.T) {
	r := newTestRouter(t, "https://gateway.example.com/")

	req := httptest.NewRequest(http.MethodGet, "/attestation", nil)
	req.Header.Set("Origin", "https://gateway.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://gateway.example.com" {
		t.Fatalf("allowed origin not echoed: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/attestation", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected CORS header for foreign origin: %q", got)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("attestation must still be served, got %d", w.Code)
	}
}

func TestRouterRequestID(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q, want echo", got)
	}
}
