package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"bikecloud/internal/auth"
	"bikecloud/internal/config"
	"bikecloud/internal/eventing"
	"bikecloud/internal/observability/metrics"
	"bikecloud/internal/ride/application"
	ride "bikecloud/internal/ride/domain"
	"bikecloud/internal/ride/infrastructure/memory"
	ridepostgres "bikecloud/internal/ride/infrastructure/postgres"
	ridehttp "bikecloud/internal/ride/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)
	metrics.Init()

	var store ride.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		pgStore := ridepostgres.NewStore(db, ridepostgres.WithMaxSeriesLength(cfg.MaxSeriesLength))
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			logger.Fatalf("schema error: %v", err)
		}
		store = pgStore
	} else {
		logger.Printf("DATABASE_URL not set, using in-memory store")
		store = memory.NewStore(memory.WithMaxSeriesLength(cfg.MaxSeriesLength))
	}

	bus := eventing.NewBus()
	bus.Subscribe(eventing.TypeFor[application.IngestAccepted](), func(ctx context.Context, event any) error {
		evt, ok := event.(application.IngestAccepted)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.Printf("ingest accepted: event=%s t=%d reply=%q", evt.Kind, evt.T, evt.Reply)
		return nil
	})
	bus.Subscribe(eventing.TypeFor[application.IngestRejected](), func(ctx context.Context, event any) error {
		evt, ok := event.(application.IngestRejected)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.Printf("ingest rejected: event=%s t=%d reason=%q", evt.Kind, evt.T, evt.Reason)
		return nil
	})

	coordinator, err := application.NewCoordinator(store,
		application.WithPublisher(bus),
		application.WithLogger(logger),
		application.WithSettleDelay(cfg.EndSettleDelay),
	)
	if err != nil {
		logger.Fatalf("coordinator error: %v", err)
	}
	aggregator, err := application.NewAggregator(store)
	if err != nil {
		logger.Fatalf("aggregator error: %v", err)
	}

	ingestHandler, err := ridehttp.NewIngestHandler(coordinator, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	summaryHandler, err := ridehttp.NewSummaryHandler(aggregator)
	if err != nil {
		logger.Fatalf("summary handler error: %v", err)
	}
	seriesHandler, err := ridehttp.NewSeriesHandler(aggregator)
	if err != nil {
		logger.Fatalf("series handler error: %v", err)
	}
	authorizedHandler, err := ridehttp.NewAuthorizedHandler(store, cfg.DevMode)
	if err != nil {
		logger.Fatalf("authorized handler error: %v", err)
	}
	reportHandler, err := ridehttp.NewReportHandler(store, aggregator)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}

	ingestGate := auth.NewAPIKeyMiddleware([]byte(cfg.APIKey))

	mux := http.NewServeMux()
	mux.Handle("/update", ingestGate.Wrap(ingestHandler))
	mux.Handle("/api/v1/session/summary", summaryHandler)
	mux.Handle("/api/v1/session/series", seriesHandler)
	mux.Handle("/api/v1/session/authorized", authorizedHandler)
	mux.Handle("/api/v1/session/report.xlsx", reportHandler)
	mux.Handle("/api/v1/session/report.pdf", reportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
