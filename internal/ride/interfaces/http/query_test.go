package ridehttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bikecloud/internal/ride/application"
	ride "bikecloud/internal/ride/domain"
	"bikecloud/internal/ride/infrastructure/memory"
)

func intPtr(v int) *int { return &v }

func newTestAggregator(t *testing.T, store ride.Store) *application.Aggregator {
	t.Helper()
	aggregator, err := application.NewAggregator(store)
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	return aggregator
}

func TestSummaryEndpoint(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	if err := store.StartSession(ctx, 100, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := store.Append(ctx, ride.Sample{TS: 110, SpeedMPH: 12.5, HeartBPM: 95}); err != nil {
		t.Fatalf("append: %v", err)
	}
	handler, err := NewSummaryHandler(newTestAggregator(t, store))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/summary", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var summary application.Summary
	if err := json.Unmarshal(resp.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.State != application.SummaryLive || summary.Live == nil {
		t.Fatalf("expected live summary, got %+v", summary)
	}
	if summary.Live.SpeedMPH != 12.5 {
		t.Fatalf("expected head speed 12.5, got %v", summary.Live.SpeedMPH)
	}
}

func TestSeriesEndpoint(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, sample := range []ride.Sample{
		{TS: 100, SpeedMPH: 10, HeartBPM: 90, Resistance: intPtr(3)},
		{TS: 101, SpeedMPH: 11, HeartBPM: 91, Resistance: intPtr(4)},
	} {
		if err := store.Append(ctx, sample); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	handler, err := NewSeriesHandler(newTestAggregator(t, store))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/series", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var view application.SeriesView
	if err := json.Unmarshal(resp.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if len(view.Timestamps) != 2 || view.Timestamps[0] != 101 {
		t.Fatalf("expected newest-first timestamps, got %v", view.Timestamps)
	}
	if len(view.Resistance) != 2 {
		t.Fatalf("expected resistance channel, got %v", view.Resistance)
	}
}

func TestAuthorizedEndpoint(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	if err := store.StartSession(ctx, 100, "203.0.113.7"); err != nil {
		t.Fatalf("start: %v", err)
	}
	handler, err := NewAuthorizedHandler(store, false)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	check := func(forwardedFor string, want bool, wantReason string) {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/session/authorized", nil)
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		var out struct {
			Authorized bool   `json:"authorized"`
			Reason     string `json:"reason"`
		}
		if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Authorized != want || out.Reason != wantReason {
			t.Fatalf("forwarded %q: expected %v/%q, got %v/%q", forwardedFor, want, wantReason, out.Authorized, out.Reason)
		}
	}

	check("203.0.113.7", true, "IP Match")
	check("203.0.113.7, 10.0.0.1", true, "IP Match")
	check("198.51.100.1", false, "")

	// The bike address is cleared at session end.
	if err := store.EndSession(ctx, 200); err != nil {
		t.Fatalf("end: %v", err)
	}
	check("203.0.113.7", false, "")
}

func TestAuthorizedEndpointDevMode(t *testing.T) {
	store := memory.NewStore()
	handler, err := NewAuthorizedHandler(store, true)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/authorized", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	var out struct {
		Authorized bool   `json:"authorized"`
		Reason     string `json:"reason"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Authorized || out.Reason != "Dev Mode" {
		t.Fatalf("expected dev mode authorization, got %+v", out)
	}
}
