package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-pool/internal/config"
	"github.com/gokatarajesh/quiz-pool/internal/logging"
	httperrors "github.com/gokatarajesh/quiz-pool/pkg/http/errors"
)

// Pinger checks a backing dependency.
type Pinger func(ctx context.Context) error

// Routes are the feature handlers mounted on the mux. Nil handlers are skipped.
type Routes struct {
	Questions   http.HandlerFunc
	PoolStatus  http.HandlerFunc
	Certificate http.HandlerFunc
}

// NewHTTPServer wires base routes (health, metrics, ping) and the feature routes.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, gatherer prometheus.Gatherer, pingers []Pinger, routes Routes) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pingers); err != nil {
			reqLogger := logging.FromContext(r.Context(), logger)
			reqLogger.Error().Err(err).Msg("dependency ping failed")
			httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeServiceUnavailable, "upstream error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if routes.Questions != nil {
		mux.HandleFunc("/v1/questions", routes.Questions)
	}
	if routes.PoolStatus != nil {
		mux.HandleFunc("/v1/pool", routes.PoolStatus)
	}
	if routes.Certificate != nil {
		mux.HandleFunc("/v1/certificate", routes.Certificate)
	}

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           withRequestLogging(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func pingDependencies(ctx context.Context, pingers []Pinger) error {
	for _, ping := range pingers {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLogging tags each request with an id and a request-scoped logger.
func withRequestLogging(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		reqLogger := logger.With().Str("request_id", requestID).Logger()
		ctx := logging.IntoContext(r.Context(), reqLogger)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		reqLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
