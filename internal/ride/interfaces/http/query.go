package ridehttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"bikecloud/internal/auth"
	"bikecloud/internal/observability/metrics"
	"bikecloud/internal/ride/application"
	ride "bikecloud/internal/ride/domain"
)

// SummaryHandler serves the dashboard stats view.
type SummaryHandler struct {
	aggregator *application.Aggregator
}

// NewSummaryHandler constructs a SummaryHandler.
func NewSummaryHandler(aggregator *application.Aggregator) (*SummaryHandler, error) {
	if aggregator == nil {
		return nil, errors.New("summary handler: nil aggregator")
	}
	return &SummaryHandler{aggregator: aggregator}, nil
}

// ServeHTTP handles GET /api/v1/session/summary.
func (h *SummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	summary, err := h.aggregator.Summary(r.Context())
	if err != nil {
		metrics.IncQuery("summary", metrics.ResultError)
		http.Error(w, "summary error", http.StatusInternalServerError)
		return
	}
	metrics.IncQuery("summary", metrics.ResultAccepted)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

// SeriesHandler serves the whole-session series for charting.
type SeriesHandler struct {
	aggregator *application.Aggregator
}

// NewSeriesHandler constructs a SeriesHandler.
func NewSeriesHandler(aggregator *application.Aggregator) (*SeriesHandler, error) {
	if aggregator == nil {
		return nil, errors.New("series handler: nil aggregator")
	}
	return &SeriesHandler{aggregator: aggregator}, nil
}

// ServeHTTP handles GET /api/v1/session/series.
func (h *SeriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	view, err := h.aggregator.Series(r.Context())
	if err != nil {
		metrics.IncQuery("series", metrics.ResultError)
		http.Error(w, "series error", http.StatusInternalServerError)
		return
	}
	metrics.IncQuery("series", metrics.ResultAccepted)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

// AuthorizedHandler answers whether the caller may control the bike.
// Authorization means the caller's address matches the bike's address
// captured at session start, while the session is active.
type AuthorizedHandler struct {
	store   ride.Store
	devMode bool
}

// NewAuthorizedHandler constructs an AuthorizedHandler.
func NewAuthorizedHandler(store ride.Store, devMode bool) (*AuthorizedHandler, error) {
	if store == nil {
		return nil, errors.New("authorized handler: nil store")
	}
	return &AuthorizedHandler{store: store, devMode: devMode}, nil
}

// ServeHTTP handles GET /api/v1/session/authorized.
func (h *AuthorizedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, err := h.store.Session(r.Context())
	if err != nil {
		metrics.IncQuery("authorized", metrics.ResultError)
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}

	authorized := false
	reason := ""
	switch {
	case session.OriginAuthorized(auth.ClientIP(r)):
		authorized = true
		reason = "IP Match"
	case h.devMode:
		authorized = true
		reason = "Dev Mode"
	}

	metrics.IncQuery("authorized", metrics.ResultAccepted)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"authorized": authorized, "reason": reason})
}
