package pool

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-pool/internal/logging"
	"github.com/gokatarajesh/quiz-pool/internal/question"
	httperrors "github.com/gokatarajesh/quiz-pool/pkg/http/errors"
)

// Sampler is the read side used by the HTTP handler.
type Sampler interface {
	Sample(ctx context.Context, level string, n int) ([]question.Question, error)
}

// HTTPHandler exposes question sampling and pool status over REST.
type HTTPHandler struct {
	sampler   Sampler
	refresher Refresher
	levels    question.Levels
	count     int
	logger    zerolog.Logger
}

// NewHTTPHandler constructs the pool HTTP handler; count is the quiz length.
func NewHTTPHandler(sampler Sampler, refresher Refresher, levels question.Levels, count int, logger zerolog.Logger) *HTTPHandler {
	if count <= 0 {
		count = 20
	}
	return &HTTPHandler{
		sampler:   sampler,
		refresher: refresher,
		levels:    levels,
		count:     count,
		logger:    logger.With().Str("component", "pool_http").Logger(),
	}
}

// HandleQuestions responds with a sampled quiz for a level.
// Route: GET /v1/questions?level=U10&mode=quiz
func (h *HTTPHandler) HandleQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}

	query := r.URL.Query()
	level := h.levels.Normalize(query.Get("level"))
	mode := query.Get("mode")
	if mode == "" {
		mode = "quiz"
	}

	logger := logging.FromContext(r.Context(), h.logger)
	questions, err := h.sampler.Sample(r.Context(), level, h.count)
	if err != nil {
		// stale content is still served
		logger.Warn().Err(err).Str("level", level).Msg("pool refresh failed during sampling")
	}
	logger.Debug().Str("level", level).Str("mode", mode).Int("count", len(questions)).Msg("questions served")

	respondJSON(w, http.StatusOK, questions)
}

type statusResponse struct {
	LastRefresh *time.Time     `json:"lastRefresh"`
	Total       int            `json:"total"`
	Levels      map[string]int `json:"levels"`
	Stale       bool           `json:"stale,omitempty"`
}

// HandleStatus reports the active pool size per level.
// Route: GET /v1/pool
func (h *HTTPHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}

	current, err := h.refresher.EnsureFresh(r.Context())
	if err != nil {
		logger := logging.FromContext(r.Context(), h.logger)
		logger.Warn().Err(err).Msg("pool refresh failed during status")
	}

	counts := current.CountByLevel()
	levels := make(map[string]int, len(h.levels))
	for _, l := range h.levels {
		levels[l] = counts[l]
	}
	respondJSON(w, http.StatusOK, statusResponse{
		LastRefresh: current.LastRefresh,
		Total:       len(current.Questions),
		Levels:      levels,
		Stale:       err != nil,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
