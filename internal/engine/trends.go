package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultMaxTrendSuggestions caps the trend list when the caller does not.
	DefaultMaxTrendSuggestions = 3
	// DefaultTrendTimeout bounds a single provider lookup.
	DefaultTrendTimeout = 2 * time.Second
)

// TrendProvider supplies trending scores for keywords. It is implemented by
// the host application and is the only place where I/O may happen.
type TrendProvider interface {
	Lookup(ctx context.Context, keywords []string) ([]TrendSignal, error)
}

// TrendProviderFunc adapts a function to TrendProvider.
type TrendProviderFunc func(ctx context.Context, keywords []string) ([]TrendSignal, error)

// Lookup calls f.
func (f TrendProviderFunc) Lookup(ctx context.Context, keywords []string) ([]TrendSignal, error) {
	return f(ctx, keywords)
}

// Advisor matches draft keywords against a trend provider.
type Advisor struct {
	stopWords map[string]struct{}
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAdvisor builds an Advisor. A non-positive timeout selects DefaultTrendTimeout.
func NewAdvisor(c Catalog, timeout time.Duration, logger *slog.Logger) Advisor {
	if timeout <= 0 {
		timeout = DefaultTrendTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Advisor{
		stopWords: stopWordSet(c.Lexicon.StopWords),
		timeout:   timeout,
		logger:    logger.With("component", "trend_advisor"),
	}
}

// Suggest returns at most limit trend suggestions for the draft. Provider
// failures, timeouts and empty answers all yield an empty list; only an
// invalid draft is reported as an error.
func (a Advisor) Suggest(ctx context.Context, draft Draft, provider TrendProvider, limit int) ([]TrendSuggestion, error) {
	d, err := draft.Normalize()
	if err != nil {
		return nil, err
	}
	return a.suggest(ctx, d, provider, limit), nil
}

func (a Advisor) suggest(ctx context.Context, d Draft, provider TrendProvider, limit int) []TrendSuggestion {
	out := []TrendSuggestion{}
	if provider == nil {
		return out
	}
	if limit <= 0 {
		limit = DefaultMaxTrendSuggestions
	}

	keywords := extractKeywords(d.Text, a.stopWords)
	if len(keywords) == 0 {
		return out
	}

	signals, err := a.lookup(ctx, provider, keywords)
	if err != nil {
		a.logger.Warn("trend lookup degraded to empty result", "error", err, "keywords", len(keywords))
		return out
	}

	tokens := tokenize(d.Text)
	lower := strings.ToLower(d.Text)
	tags := hashtags(d.Text)

	for _, signal := range mergeSignals(signals) {
		relevance := relevanceOf(signal.Keyword, tokens, lower)
		score := int(math.Round(signal.TrendScore))
		out = append(out, TrendSuggestion{
			Keyword:    signal.Keyword,
			TrendScore: score,
			Relevance:  relevance,
			Suggestion: suggestionFor(signal.Keyword, score, relevance, tags),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].TrendScore*out[i].Relevance, out[j].TrendScore*out[j].Relevance
		if pi != pj {
			return pi > pj
		}
		if out[i].TrendScore != out[j].TrendScore {
			return out[i].TrendScore > out[j].TrendScore
		}
		return out[i].Keyword < out[j].Keyword
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// lookup calls the provider in its own goroutine so that a provider ignoring
// cancellation still cannot hold the caller past the timeout.
func (a Advisor) lookup(ctx context.Context, provider TrendProvider, keywords []string) ([]TrendSignal, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type outcome struct {
		signals []TrendSignal
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("trend provider panic: %v", r)}
			}
		}()
		signals, err := provider.Lookup(ctx, keywords)
		done <- outcome{signals: signals, err: err}
	}()

	select {
	case res := <-done:
		if errors.Is(res.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrProviderTimeout, res.err)
		}
		return res.signals, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrProviderTimeout, a.timeout)
		}
		return nil, ctx.Err()
	}
}

// mergeSignals normalises keywords, clamps scores and keeps the highest score
// per keyword, in first-seen order.
func mergeSignals(signals []TrendSignal) []TrendSignal {
	index := make(map[string]int, len(signals))
	out := make([]TrendSignal, 0, len(signals))
	for _, s := range signals {
		kw := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s.Keyword), "#"))
		if kw == "" {
			continue
		}
		score := clampFloat(s.TrendScore, 0, 100)
		if i, ok := index[kw]; ok {
			out[i].TrendScore = math.Max(out[i].TrendScore, score)
			continue
		}
		index[kw] = len(out)
		out = append(out, TrendSignal{Keyword: kw, TrendScore: score})
	}
	return out
}

// relevanceOf rewards keywords that occur often and early in the draft.
func relevanceOf(keyword string, tokens []string, lower string) int {
	freq, first := 0, -1
	for i, t := range tokens {
		if t == keyword {
			freq++
			if first < 0 {
				first = i
			}
		}
	}
	if freq == 0 {
		if strings.Contains(lower, keyword) {
			return 30
		}
		return 0
	}
	frequency := 60 * float64(min(freq, 3)) / 3
	proximity := 40 * (1 - float64(first)/float64(len(tokens)))
	return clampInt(int(math.Round(frequency+proximity)), 0, 100)
}

func suggestionFor(keyword string, score, relevance int, tags []string) string {
	tag := strings.ReplaceAll(keyword, " ", "")
	switch {
	case slices.Contains(tags, tag):
		return fmt.Sprintf("#%s is trending (%d/100) and already in your post", tag, score)
	case relevance > 0:
		return fmt.Sprintf("Add #%s to ride a trending topic (%d/100)", tag, score)
	default:
		return fmt.Sprintf("Consider working #%s into the post; it is trending (%d/100)", tag, score)
	}
}
