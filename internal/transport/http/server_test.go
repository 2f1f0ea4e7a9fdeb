package transporthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentengine/internal/config"
	"contentengine/internal/engine"
	"contentengine/internal/trends"
)

func newTestServer(t *testing.T, sink TrendSink, provider engine.TrendProvider) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []engine.Option{engine.WithLogger(logger), engine.WithTrendTimeout(time.Second)}
	if provider != nil {
		opts = append(opts, engine.WithTrendProvider(provider))
	}
	e, err := engine.New(engine.MustDefaultCatalog(), opts...)
	require.NoError(t, err)

	srv := NewServer(e, config.Default(), sink)
	srv.logger = logger
	return srv.Routes()
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)).WithContext(context.Background())
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpoint(t *testing.T) {
	ingest := trends.NewIngestProvider("ingest")
	ingest.Add(trends.Signal{Keyword: "coffee", Score: 72})
	h := newTestServer(t, ingest, ingest)

	rec := post(t, h, "/v1/content/analyze", `{"text":"Morning coffee for coffee lovers. Shop now!","platform":"instagram","tone":"casual","goal":"sales"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Variants, len(engine.VariantTypes))
	assert.Len(t, result.Predictions, len(engine.VariantTypes)+1)
	assert.Contains(t, result.Predictions, engine.BaseCandidateID)
	require.NotEmpty(t, result.Trends)
	assert.Equal(t, "coffee", result.Trends[0].Keyword)
	assert.Equal(t, 72, result.Trends[0].TrendScore)
}

func TestAnalyzeEndpointHonoursOptions(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := post(t, h, "/v1/content/analyze", `{"text":"Check out our new product","platform":"twitter","variant_types":["urgency"],"predict_variants":false,"include_trends":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Variants, 1)
	assert.Equal(t, engine.VariantUrgency, result.Variants[0].Type)
	assert.Len(t, result.Predictions, 1)
	assert.Empty(t, result.Trends)
}

func TestAnalyzeEndpointRejectsBadRequests(t *testing.T) {
	h := newTestServer(t, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"empty text", `{"text":"","platform":"twitter"}`},
		{"blank text", `{"text":"   ","platform":"twitter"}`},
		{"unknown platform", `{"text":"hello","platform":"myspace"}`},
		{"unknown tone", `{"text":"hello","platform":"twitter","tone":"sarcastic"}`},
		{"unknown variant", `{"text":"hello","platform":"twitter","variant_types":["haiku"]}`},
		{"unknown field", `{"text":"hello","platform":"twitter","mood":"x"}`},
		{"malformed json", `{"text":`},
		{"too many trends", `{"text":"hello","platform":"twitter","max_trend_suggestions":50}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, h, "/v1/content/analyze", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var payload map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.NotEmpty(t, payload["error"])
		})
	}
}

func TestScoreEndpoint(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := post(t, h, "/v1/content/score", `{"text":"Check out our new product","platform":"twitter","tone":"professional"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var score engine.QualityScore
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &score))
	assert.Equal(t, 37, score.Value)
	assert.NotEmpty(t, score.FiredSuggestions)
}

func TestVariantsEndpoint(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := post(t, h, "/v1/content/variants", `{"text":"We launched a new app","platform":"linkedin"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload struct {
		Variants []engine.Variant `json:"variants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Variants, len(engine.VariantTypes))

	rec = post(t, h, "/v1/content/variants", `{"text":"We launched a new app","platform":"linkedin","variant_types":[]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Empty(t, payload.Variants)
}

func TestPredictEndpoint(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := post(t, h, "/v1/content/predict", `{"text":"Big news today","platform":"tiktok"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var prediction engine.PerformancePrediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prediction))
	assert.Positive(t, prediction.EstimatedReach)
	assert.NotEmpty(t, prediction.OptimalPostingTime)
	assert.GreaterOrEqual(t, prediction.ConfidenceScore, 0)
	assert.LessOrEqual(t, prediction.ConfidenceScore, 100)
}

func TestIngestEndpoint(t *testing.T) {
	ingest := trends.NewIngestProvider("ingest")
	h := newTestServer(t, ingest, ingest)

	rec := post(t, h, "/v1/trends", `{"keyword":"  Sneakers ","score":64,"observed_at":"2026-10-03T12:00:00Z"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "accepted", payload["status"])
	assert.Equal(t, "sneakers", payload["keyword"])
	assert.NotEmpty(t, payload["id"])

	stored := ingest.Signals()
	require.Len(t, stored, 1)
	assert.Equal(t, "api", stored[0].Source)
	assert.Equal(t, time.Date(2026, 10, 3, 12, 0, 0, 0, time.UTC), stored[0].ObservedAt)

	rec = post(t, h, "/v1/content/analyze", `{"text":"New sneakers drop","platform":"instagram","variant_types":[]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotEmpty(t, result.Trends)
	assert.Equal(t, "sneakers", result.Trends[0].Keyword)
}

func TestIngestEndpointValidates(t *testing.T) {
	h := newTestServer(t, trends.NewIngestProvider("ingest"), nil)

	for _, body := range []string{
		`{"keyword":"","score":10}`,
		`{"keyword":"coffee","score":120}`,
		`{"keyword":"coffee","observed_at":"yesterday"}`,
	} {
		rec := post(t, h, "/v1/trends", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestIngestEndpointDisabledWithoutSink(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := post(t, h, "/v1/trends", `{"keyword":"coffee","score":10}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthAndDocs(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, swaggerSpecPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("openapi:")))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger", nil))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))
}

func TestPreflightShortCircuits(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/content/analyze", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPanickingRequestIsRecoveredAndLogged(t *testing.T) {
	e, err := engine.New(engine.MustDefaultCatalog())
	require.NoError(t, err)
	srv := NewServer(e, config.Default(), nil)
	var logs bytes.Buffer
	srv.logger = slog.New(slog.NewTextHandler(&logs, nil))

	r := chi.NewRouter()
	srv.useMiddlewares(r)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "panic recovered")
	assert.Contains(t, logs.String(), `msg="http request"`)
	assert.Contains(t, logs.String(), "status=500")
}
