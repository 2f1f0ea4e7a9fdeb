package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"
)

// Engine runs the scoring, variant, prediction and trend stages for a draft.
// It holds only immutable configuration and is safe for concurrent use.
type Engine struct {
	catalog   Catalog
	scorer    Scorer
	generator Generator
	predictor Predictor
	advisor   Advisor

	provider     TrendProvider
	trendTimeout time.Duration
	logger       *slog.Logger
}

// Option customises an Engine at construction time.
type Option func(*Engine)

// WithTrendProvider injects the trend data source consulted by Run.
func WithTrendProvider(p TrendProvider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithTrendTimeout bounds each trend lookup.
func WithTrendTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.trendTimeout = d
		}
	}
}

// WithLogger sets the logger used for degraded-path reporting.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Options controls a single Run.
type Options struct {
	// VariantTypes selects the styles to generate. Nil means every style,
	// an empty non-nil slice means none.
	VariantTypes        []VariantType `json:"variant_types"`
	PredictVariants     bool          `json:"predict_variants"`
	IncludeTrends       bool          `json:"include_trends"`
	MaxTrendSuggestions int           `json:"max_trend_suggestions"`
}

// DefaultOptions enables every stage with all five variant styles.
func DefaultOptions() Options {
	return Options{
		VariantTypes:        slices.Clone(VariantTypes),
		PredictVariants:     true,
		IncludeTrends:       true,
		MaxTrendSuggestions: DefaultMaxTrendSuggestions,
	}
}

// New validates the catalog and builds an Engine over a private copy of it.
func New(c Catalog, opts ...Option) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		catalog:      c.Clone(),
		trendTimeout: DefaultTrendTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "content_engine")
	e.scorer = NewScorer(e.catalog)
	e.generator = NewGenerator(e.catalog)
	e.predictor = NewPredictor(e.catalog)
	e.advisor = NewAdvisor(e.catalog, e.trendTimeout, e.logger)
	return e, nil
}

// Catalog returns a copy of the configuration the engine was built with.
func (e *Engine) Catalog() Catalog { return e.catalog.Clone() }

// Run validates the draft, scores it, generates the requested variants,
// predicts performance and collects trend suggestions. Any failure outside the
// trend stage aborts the call without a partial result; trend problems only
// ever leave Trends empty.
func (e *Engine) Run(ctx context.Context, draft Draft, opts Options) (*Result, error) {
	d, err := draft.Normalize()
	if err != nil {
		return nil, err
	}

	types := opts.VariantTypes
	if types == nil {
		types = VariantTypes
	}
	if _, err := distinctTypes(types); err != nil {
		return nil, err
	}

	quality, err := e.scorer.score(d)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The trend lookup is independent of the other stages, so it runs while
	// variants and predictions are computed.
	var trendsCh chan []TrendSuggestion
	if opts.IncludeTrends && e.provider != nil {
		trendsCh = make(chan []TrendSuggestion, 1)
		go func() {
			trendsCh <- e.advisor.suggest(ctx, d, e.provider, opts.MaxTrendSuggestions)
		}()
	}

	variants, err := e.generator.generate(d, quality, types)
	if err != nil {
		return nil, err
	}

	predictions := make(map[string]PerformancePrediction, len(variants)+1)
	base, err := e.predictor.Predict(d.Text, d.Platform, quality)
	if err != nil {
		return nil, err
	}
	predictions[BaseCandidateID] = base

	if opts.PredictVariants {
		for _, v := range variants {
			prediction, err := e.predictVariant(d, v)
			if err != nil {
				return nil, err
			}
			predictions[VariantCandidateID(v.Type)] = prediction
		}
	}

	trends := []TrendSuggestion{}
	if trendsCh != nil {
		// The advisor always answers within its timeout, degrading to an empty list.
		trends = <-trendsCh
	}

	e.logger.Debug("content run complete",
		"platform", d.Platform,
		"score", quality.Value,
		"variants", len(variants),
		"trends", len(trends),
	)

	return &Result{
		Draft:       d,
		Quality:     quality,
		Variants:    variants,
		Predictions: predictions,
		Trends:      trends,
	}, nil
}

// predictVariant scores the variant text under the draft's targeting and
// forecasts it from that score.
func (e *Engine) predictVariant(d Draft, v Variant) (PerformancePrediction, error) {
	vd := Draft{Text: v.Text, Platform: d.Platform, Tone: d.Tone, Goal: d.Goal}
	quality, err := e.scorer.score(vd)
	if err != nil {
		return PerformancePrediction{}, err
	}
	return e.predictor.Predict(v.Text, d.Platform, quality)
}

// Score runs only the quality stage.
func (e *Engine) Score(draft Draft) (QualityScore, error) {
	return e.scorer.Score(draft)
}

// GenerateVariants scores the draft and rewrites it into the given styles.
func (e *Engine) GenerateVariants(draft Draft, types []VariantType) ([]Variant, error) {
	d, err := draft.Normalize()
	if err != nil {
		return nil, err
	}
	quality, err := e.scorer.score(d)
	if err != nil {
		return nil, err
	}
	return e.generator.generate(d, quality, types)
}

// Predict scores the draft and forecasts its performance.
func (e *Engine) Predict(draft Draft) (PerformancePrediction, error) {
	d, err := draft.Normalize()
	if err != nil {
		return PerformancePrediction{}, err
	}
	quality, err := e.scorer.score(d)
	if err != nil {
		return PerformancePrediction{}, err
	}
	return e.predictor.Predict(d.Text, d.Platform, quality)
}

// SuggestTrends runs only the trend stage against the configured provider.
func (e *Engine) SuggestTrends(ctx context.Context, draft Draft, limit int) ([]TrendSuggestion, error) {
	return e.advisor.Suggest(ctx, draft, e.provider, limit)
}

// IsCallerError reports whether err is a contract violation by the caller
// rather than an engine or configuration defect.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrInvalidDraft) || errors.Is(err, ErrUnsupportedTarget)
}
