package auth

import (
	"bytes"
	"crypto/hmac"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
)

// APIKeyMiddleware gates the device webhook. The producer sends its
// shared key in the JSON body (`apikey` field); the check runs in
// front of the ingest handler and never touches session state.
type APIKeyMiddleware struct {
	Key []byte
}

// NewAPIKeyMiddleware constructs the webhook gate.
func NewAPIKeyMiddleware(key []byte) *APIKeyMiddleware {
	return &APIKeyMiddleware{Key: key}
}

// Wrap enforces the API key and restores the body for the next handler.
func (m *APIKeyMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.Key) == 0 {
			unauthorized(w)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body error", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()

		var envelope struct {
			APIKey string `json:"apikey"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.APIKey == "" {
			unauthorized(w)
			return
		}
		if !hmac.Equal([]byte(envelope.APIKey), m.Key) {
			unauthorized(w)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"reply":"invalid key"}`))
}

// ClientIP resolves the caller's address. Behind a proxy the first
// X-Forwarded-For entry is the user address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
