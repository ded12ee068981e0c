package ridehttp

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xuri/excelize/v2"

	ride "bikecloud/internal/ride/domain"
	"bikecloud/internal/ride/infrastructure/memory"
)

func newEndedSessionStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	if err := store.StartSession(ctx, 100, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, sample := range []ride.Sample{
		{TS: 110, SpeedMPH: 10, HeartBPM: 90, Resistance: intPtr(3)},
		{TS: 120, SpeedMPH: 20, HeartBPM: 100, Resistance: intPtr(5)},
	} {
		if err := store.Append(ctx, sample); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := store.EndSession(ctx, 700); err != nil {
		t.Fatalf("end: %v", err)
	}
	return store
}

func TestReportXLSX(t *testing.T) {
	store := newEndedSessionStore(t)
	handler, err := NewReportHandler(store, newTestAggregator(t, store))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/report.xlsx", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	f, err := excelize.OpenReader(bytes.NewReader(resp.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	title, err := f.GetCellValue("summary", "A1")
	if err != nil {
		t.Fatalf("read title: %v", err)
	}
	if title != "Ride Session Report" {
		t.Fatalf("unexpected title %q", title)
	}
	rows, err := f.GetRows("samples")
	if err != nil {
		t.Fatalf("read samples: %v", err)
	}
	// Header plus two samples.
	if len(rows) != 3 {
		t.Fatalf("expected 3 sample rows, got %d", len(rows))
	}
}

func TestReportPDF(t *testing.T) {
	store := newEndedSessionStore(t)
	handler, err := NewReportHandler(store, newTestAggregator(t, store))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/report.pdf", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected a PDF document")
	}
}

func TestReportWithoutEndedSession(t *testing.T) {
	store := memory.NewStore()
	handler, err := NewReportHandler(store, newTestAggregator(t, store))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/report.xlsx", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 when there is nothing to report, got %d", resp.Code)
	}
}
