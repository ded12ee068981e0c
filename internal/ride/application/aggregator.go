package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	ride "bikecloud/internal/ride/domain"
)

// Summary states.
const (
	SummaryWaiting = "waiting"
	SummaryLive    = "live"
	SummaryFinal   = "final"
)

const waitingMessage = "Waiting to receive data from bike..."

// Summary is the dashboard stats view for the current snapshot.
type Summary struct {
	State   string      `json:"state"`
	Message string      `json:"message,omitempty"`
	Live    *LiveStats  `json:"live,omitempty"`
	Final   *FinalStats `json:"final,omitempty"`
}

// LiveStats reports the current head sample of an active session.
type LiveStats struct {
	StartedAt  int64   `json:"started_at"`
	StartedAgo string  `json:"started_ago"`
	SpeedMPH   float64 `json:"speed_mph"`
	Resistance *int    `json:"resistance,omitempty"`
	HeartBPM   float64 `json:"heart_bpm"`
	LastUpdate int64   `json:"last_update"`
}

// FinalStats summarizes an ended session over the full retained range.
type FinalStats struct {
	DurationSeconds int64    `json:"duration_seconds"`
	Duration        string   `json:"duration"`
	EndedAgo        string   `json:"ended_ago"`
	SpeedMeanMPH    float64  `json:"speed_mean_mph"`
	SpeedMaxMPH     float64  `json:"speed_max_mph"`
	ResistanceMean  *float64 `json:"resistance_mean,omitempty"`
	ResistanceMax   *int     `json:"resistance_max,omitempty"`
	HeartMeanBPM    float64  `json:"heart_mean_bpm"`
	HeartMaxBPM     float64  `json:"heart_max_bpm"`
}

// SeriesView is the whole-session series as parallel channel arrays,
// newest first.
type SeriesView struct {
	Timestamps []int64   `json:"timestamps"`
	SpeedMPH   []float64 `json:"speed_mph"`
	Resistance []*int    `json:"resistance,omitempty"`
	HeartBPM   []float64 `json:"heart_bpm"`
}

// Clock abstracts time for relative phrasing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Aggregator computes point-in-time and whole-session views over the
// store. Results are recomputed from a fresh snapshot on every call;
// nothing is cached.
type Aggregator struct {
	store ride.Store
	clock Clock
}

// NewAggregator constructs an aggregator.
func NewAggregator(store ride.Store, opts ...AggregatorOption) (*Aggregator, error) {
	if store == nil {
		return nil, errors.New("aggregator: nil store")
	}
	a := &Aggregator{store: store, clock: systemClock{}}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AggregatorOption configures the aggregator.
type AggregatorOption func(*Aggregator)

// WithClock overrides the system clock.
func WithClock(clock Clock) AggregatorOption {
	return func(a *Aggregator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// Summary builds the stats view for the current snapshot. An ended
// session with zero retained samples reports "waiting", never "final";
// means and maxima are only computed over non-empty channels.
func (a *Aggregator) Summary(ctx context.Context) (Summary, error) {
	snap, err := a.store.Snapshot(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregator: snapshot: %w", err)
	}

	session, series := snap.Session, snap.Series
	now := a.clock.Now()

	switch {
	case session.HasEnded() && len(series) > 0:
		return Summary{State: SummaryFinal, Final: finalStats(session, series, now)}, nil
	case session.HasStarted() && len(series) > 0:
		head, _ := series.Head()
		return Summary{State: SummaryLive, Live: &LiveStats{
			StartedAt:  session.StartedAt,
			StartedAgo: humanize.RelTime(time.Unix(session.StartedAt, 0), now, "ago", "from now"),
			SpeedMPH:   head.SpeedMPH,
			Resistance: head.Resistance,
			HeartBPM:   head.HeartBPM,
			LastUpdate: head.TS,
		}}, nil
	}
	return Summary{State: SummaryWaiting, Message: waitingMessage}, nil
}

// Series returns the retained sample log as parallel channel arrays.
// The resistance channel is omitted when no retained sample carries it.
func (a *Aggregator) Series(ctx context.Context) (SeriesView, error) {
	snap, err := a.store.Snapshot(ctx)
	if err != nil {
		return SeriesView{}, fmt.Errorf("aggregator: snapshot: %w", err)
	}

	series := snap.Series
	view := SeriesView{
		Timestamps: make([]int64, 0, len(series)),
		SpeedMPH:   make([]float64, 0, len(series)),
		HeartBPM:   make([]float64, 0, len(series)),
	}
	withResistance := series.HasResistance()
	if withResistance {
		view.Resistance = make([]*int, 0, len(series))
	}
	for _, sample := range series {
		view.Timestamps = append(view.Timestamps, sample.TS)
		view.SpeedMPH = append(view.SpeedMPH, sample.SpeedMPH)
		view.HeartBPM = append(view.HeartBPM, sample.HeartBPM)
		if withResistance {
			view.Resistance = append(view.Resistance, sample.Resistance)
		}
	}
	return view, nil
}

func finalStats(session ride.Session, series ride.Series, now time.Time) *FinalStats {
	stats := &FinalStats{
		EndedAgo: humanize.RelTime(time.Unix(session.EndedAt, 0), now, "ago", "from now"),
	}
	if duration, ok := session.Duration(); ok {
		stats.DurationSeconds = int64(duration / time.Second)
		stats.Duration = strings.TrimSpace(humanize.RelTime(time.Unix(session.StartedAt, 0), time.Unix(session.EndedAt, 0), "", ""))
	}

	var speedSum, heartSum float64
	var resistanceSum, resistanceCount int
	for i, sample := range series {
		speedSum += sample.SpeedMPH
		heartSum += sample.HeartBPM
		if i == 0 || sample.SpeedMPH > stats.SpeedMaxMPH {
			stats.SpeedMaxMPH = sample.SpeedMPH
		}
		if i == 0 || sample.HeartBPM > stats.HeartMaxBPM {
			stats.HeartMaxBPM = sample.HeartBPM
		}
		if sample.Resistance != nil {
			level := *sample.Resistance
			if resistanceCount == 0 || level > *stats.ResistanceMax {
				stats.ResistanceMax = &level
			}
			resistanceSum += level
			resistanceCount++
		}
	}
	count := float64(len(series))
	stats.SpeedMeanMPH = speedSum / count
	stats.HeartMeanBPM = heartSum / count
	if resistanceCount > 0 {
		mean := float64(resistanceSum) / float64(resistanceCount)
		stats.ResistanceMean = &mean
	}
	return stats
}
