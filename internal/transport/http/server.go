package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"contentengine/internal/config"
	"contentengine/internal/engine"
	"contentengine/internal/trends"
)

const (
	requestTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// TrendSink accepts trend signals submitted through the API.
type TrendSink interface {
	Record(ctx context.Context, s trends.Signal) (trends.Signal, error)
}

type Server struct {
	engine    *engine.Engine
	sink      TrendSink
	maxTrends int
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewServer(e *engine.Engine, cfg config.Config, sink TrendSink) *Server {
	maxTrends := cfg.MaxTrendSuggestions
	if maxTrends <= 0 {
		maxTrends = engine.DefaultMaxTrendSuggestions
	}
	return &Server{
		engine:    e,
		sink:      sink,
		maxTrends: maxTrends,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    slog.Default().With("component", "http"),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	s.useMiddlewares(r)

	r.Get("/healthz", s.health)
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})
	r.Get("/swagger/", serveSwaggerUI)
	r.Get("/swagger/openapi.yaml", serveSwaggerYAML)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/content/analyze", s.handleAnalyze)
		r.Post("/content/score", s.handleScore)
		r.Post("/content/variants", s.handleVariants)
		r.Post("/content/predict", s.handlePredict)
		r.Post("/trends", s.handleIngest)
	})
	return r
}

// useMiddlewares installs the request pipeline. Logging sits outside panic
// recovery so a recovered request is still logged with its 500.
func (s *Server) useMiddlewares(r chi.Router) {
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(corsMiddleware)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type draftPayload struct {
	Text     string `json:"text" validate:"required,max=20000"`
	Platform string `json:"platform" validate:"required"`
	Tone     string `json:"tone"`
	Goal     string `json:"goal"`
}

func (p draftPayload) draft() engine.Draft {
	return engine.Draft{
		Text:     p.Text,
		Platform: engine.Platform(p.Platform),
		Tone:     engine.Tone(p.Tone),
		Goal:     engine.Goal(p.Goal),
	}
}

type analyzeRequest struct {
	draftPayload
	VariantTypes        []engine.VariantType `json:"variant_types"`
	PredictVariants     *bool                `json:"predict_variants"`
	IncludeTrends       *bool                `json:"include_trends"`
	MaxTrendSuggestions int                  `json:"max_trend_suggestions" validate:"gte=0,lte=20"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}

	opts := engine.DefaultOptions()
	opts.VariantTypes = req.VariantTypes
	opts.MaxTrendSuggestions = s.maxTrends
	if req.MaxTrendSuggestions > 0 {
		opts.MaxTrendSuggestions = req.MaxTrendSuggestions
	}
	if req.PredictVariants != nil {
		opts.PredictVariants = *req.PredictVariants
	}
	if req.IncludeTrends != nil {
		opts.IncludeTrends = *req.IncludeTrends
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	result, err := s.engine.Run(ctx, req.draft(), opts)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req draftPayload
	if !s.decode(w, r, &req) {
		return
	}
	score, err := s.engine.Score(req.draft())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

type variantsRequest struct {
	draftPayload
	VariantTypes []engine.VariantType `json:"variant_types"`
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	var req variantsRequest
	if !s.decode(w, r, &req) {
		return
	}
	types := req.VariantTypes
	if types == nil {
		types = engine.VariantTypes
	}
	variants, err := s.engine.GenerateVariants(req.draft(), types)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"variants": variants})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req draftPayload
	if !s.decode(w, r, &req) {
		return
	}
	prediction, err := s.engine.Predict(req.draft())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

type signalPayload struct {
	ID         string  `json:"id"`
	Keyword    string  `json:"keyword" validate:"required,max=100"`
	Score      float64 `json:"score" validate:"gte=0,lte=100"`
	Source     string  `json:"source"`
	ObservedAt string  `json:"observed_at"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		s.writeError(w, http.StatusServiceUnavailable, "ingest disabled")
		return
	}

	var payload signalPayload
	if !s.decode(w, r, &payload) {
		return
	}
	if trends.NormalizeKeyword(payload.Keyword) == "" {
		s.writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	observed := time.Now().UTC()
	if payload.ObservedAt != "" {
		ts, err := time.Parse(time.RFC3339, payload.ObservedAt)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "observed_at must be RFC3339")
			return
		}
		observed = ts.UTC()
	}

	stored, err := s.sink.Record(r.Context(), trends.Signal{
		ID:         payload.ID,
		Keyword:    payload.Keyword,
		Score:      payload.Score,
		Source:     defaultString(payload.Source, "api"),
		ObservedAt: observed,
	})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "record trend signal", "error", err, "request_id", requestIDFromContext(r.Context()))
		s.writeError(w, http.StatusInternalServerError, "could not store signal")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "accepted",
		"id":          stored.ID,
		"keyword":     stored.Keyword,
		"observed_at": stored.ObservedAt,
	})
}

// decode reads a strict JSON body into dst and validates it, writing the
// error response itself when it returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	if engine.IsCallerError(err) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.ErrorContext(r.Context(), "engine failure", "error", err, "request_id", requestIDFromContext(r.Context()))
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid payload"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
