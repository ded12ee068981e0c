package ridehttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"bikecloud/internal/observability/metrics"
	"bikecloud/internal/ride/application"
	ride "bikecloud/internal/ride/domain"
)

// IngestHandler receives webhook events pushed by the bike.
type IngestHandler struct {
	coordinator *application.Coordinator
	logger      *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(coordinator *application.Coordinator, logger *log.Logger) (*IngestHandler, error) {
	if coordinator == nil {
		return nil, errors.New("ingest handler: nil coordinator")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{coordinator: coordinator, logger: logger}, nil
}

// envelope is the webhook body. The device cloud delivers the event
// payload as a JSON-encoded string in the data field.
type envelope struct {
	APIKey string `json:"apikey"`
	Data   string `json:"data"`
}

type eventPayload struct {
	Event      string  `json:"event"`
	T          int64   `json:"t"`
	SpeedMPH   float64 `json:"bike_mph"`
	Resistance *int    `json:"resistance"`
	HeartBPM   float64 `json:"heart_bpm"`
	IP         string  `json:"ip"`
}

func (p eventPayload) toEvent() ride.Event {
	return ride.Event{
		Kind:       ride.EventKind(p.Event),
		T:          p.T,
		SpeedMPH:   p.SpeedMPH,
		Resistance: p.Resistance,
		HeartBPM:   p.HeartBPM,
		BikeIP:     p.IP,
	}
}

// ServeHTTP handles POST /update.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("ingest: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Data == "" {
		h.logger.Printf("ingest: invalid envelope: %v", err)
		metrics.ObserveIngest("unknown", metrics.ResultRejected, time.Since(start))
		writeReply(w, http.StatusBadRequest, "invalid payload")
		return
	}

	var payload eventPayload
	if err := json.Unmarshal([]byte(env.Data), &payload); err != nil {
		h.logger.Printf("ingest: invalid event data: %v", err)
		metrics.ObserveIngest("unknown", metrics.ResultRejected, time.Since(start))
		writeReply(w, http.StatusBadRequest, "invalid payload")
		return
	}

	receipt, err := h.coordinator.Submit(r.Context(), payload.toEvent())
	switch {
	case errors.Is(err, ride.ErrUnknownEvent):
		metrics.ObserveIngest(payload.Event, metrics.ResultRejected, time.Since(start))
		writeReply(w, http.StatusNotImplemented, fmt.Sprintf("event '%s' not understood", payload.Event))
		return
	case errors.Is(err, ride.ErrMalformedEvent):
		metrics.ObserveIngest(payload.Event, metrics.ResultRejected, time.Since(start))
		writeReply(w, http.StatusBadRequest, "invalid payload")
		return
	case err != nil:
		h.logger.Printf("ingest: %s error: %v", payload.Event, err)
		metrics.ObserveIngest(payload.Event, metrics.ResultError, time.Since(start))
		writeReply(w, http.StatusInternalServerError, "storage error")
		return
	}

	result := metrics.ResultAccepted
	if receipt.Ignored {
		result = metrics.ResultIgnored
	}
	metrics.ObserveIngest(payload.Event, result, time.Since(start))
	writeReply(w, http.StatusOK, receipt.Reply)
}

func writeReply(w http.ResponseWriter, status int, reply string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"reply": reply})
}
