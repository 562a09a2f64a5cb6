package certificate

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gokatarajesh/quiz-pool/internal/logging"
	"github.com/gokatarajesh/quiz-pool/internal/question"
	httperrors "github.com/gokatarajesh/quiz-pool/pkg/http/errors"
)

const (
	defaultName  = "Dog Fan"
	defaultMode  = "quiz"
	defaultTotal = 80
)

type renderer interface {
	Render(c Certificate) ([]byte, error)
}

type mailer interface {
	Configured() bool
	SendCertificate(ctx context.Context, toEmail string, c Certificate, png []byte) error
}

// Request is the POST /v1/certificate payload.
type Request struct {
	Name  *string `json:"name"`
	Level string  `json:"level"`
	Mode  string  `json:"mode"`
	Score int     `json:"score"`
	Total *int    `json:"total"`
	Email string  `json:"email"`
}

type sendResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// HTTPHandler issues certificates as downloads or by email.
type HTTPHandler struct {
	renderer renderer
	mailer   mailer
	limiter  *rate.Limiter
	levels   question.Levels
	now      func() time.Time
	logger   zerolog.Logger
}

// NewHTTPHandler constructs the certificate handler. A nil limiter disables throttling.
func NewHTTPHandler(r renderer, m mailer, limiter *rate.Limiter, levels question.Levels, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		renderer: r,
		mailer:   m,
		limiter:  limiter,
		levels:   levels,
		now:      time.Now,
		logger:   logger.With().Str("component", "certificate_http").Logger(),
	}
}

// HandleCreate renders a certificate.
// Route: POST /v1/certificate
func (h *HTTPHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}
	if h.limiter != nil && !h.limiter.Allow() {
		httperrors.RespondTooManyRequests(w, strconv.Itoa(h.retryAfterSeconds()))
		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	cert := Certificate{
		Name:     defaultName,
		Level:    h.levels.Normalize(req.Level),
		Mode:     req.Mode,
		Score:    req.Score,
		Total:    defaultTotal,
		IssuedAt: h.now(),
	}
	if req.Name != nil {
		cert.Name = *req.Name
	}
	if cert.Mode == "" {
		cert.Mode = defaultMode
	}
	if req.Total != nil {
		cert.Total = *req.Total
	}
	if cert.Score < 0 {
		httperrors.RespondValidationError(w, "score must not be negative", "score")
		return
	}
	if cert.Total < 0 {
		httperrors.RespondValidationError(w, "total must not be negative", "total")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			httperrors.RespondValidationError(w, "email address is invalid", "email")
			return
		}
	}

	png, err := h.renderer.Render(cert)
	if err != nil {
		logger := logging.FromContext(r.Context(), h.logger)
		logger.Error().Err(err).Msg("certificate render failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeCertificateFailed, "Could not render certificate")
		return
	}

	if email == "" {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": cert.FileName()}))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
		return
	}

	if !h.mailer.Configured() {
		respondJSON(w, sendResponse{OK: false, Error: "SMTP not configured on server."})
		return
	}
	if err := h.mailer.SendCertificate(r.Context(), email, cert, png); err != nil {
		respondJSON(w, sendResponse{OK: false, Error: err.Error()})
		return
	}
	respondJSON(w, sendResponse{OK: true})
}

func (h *HTTPHandler) retryAfterSeconds() int {
	if limit := h.limiter.Limit(); limit > 0 {
		return int(1/float64(limit)) + 1
	}
	return 60
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
