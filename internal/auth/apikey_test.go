package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAPIKeyMiddlewareAcceptsMatchingKey(t *testing.T) {
	mw := NewAPIKeyMiddleware([]byte("secret"))
	var seenBody string
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read restored body: %v", err)
		}
		seenBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))

	body := `{"apikey":"secret","data":"{\"event\":\"powered_on\",\"t\":100}"}`
	req := httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if seenBody != body {
		t.Fatalf("body must be restored for the next handler, got %q", seenBody)
	}
}

func TestAPIKeyMiddlewareRejectsMismatch(t *testing.T) {
	mw := NewAPIKeyMiddleware([]byte("secret"))
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run on key mismatch")
	}))

	req := httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(`{"apikey":"wrong"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "invalid key") {
		t.Fatalf("expected invalid key reply, got %q", resp.Body.String())
	}
}

func TestAPIKeyMiddlewareRejectsWhenUnconfigured(t *testing.T) {
	mw := NewAPIKeyMiddleware(nil)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run without a configured key")
	}))

	req := httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(`{"apikey":""}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:54321"
	if ip := ClientIP(req); ip != "192.0.2.10" {
		t.Fatalf("expected remote addr host, got %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := ClientIP(req); ip != "203.0.113.7" {
		t.Fatalf("expected first forwarded entry, got %q", ip)
	}
}
