package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"contentengine/internal/engine"
	"contentengine/internal/llm"
)

// DefaultMemoTTL is how long an LLM answer for a keyword set is reused.
const DefaultMemoTTL = 5 * time.Minute

// LLMProvider asks a chat model how much attention keywords are getting and
// falls back to another provider when the model is unavailable or answers
// with something unusable.
type LLMProvider struct {
	Client      llm.ChatClient
	Model       string
	Temperature float64
	MaxTokens   int
	MaxKeywords int
	MemoTTL     time.Duration
	Fallback    Provider
	Logger      *slog.Logger

	mu   sync.Mutex
	memo map[string]memoEntry
}

type memoEntry struct {
	signals []engine.TrendSignal
	expires time.Time
}

// Name returns the provider identifier.
func (p *LLMProvider) Name() string { return "llm" }

// Lookup rates the keywords with the model, or with the fallback on any failure.
func (p *LLMProvider) Lookup(ctx context.Context, keywords []string) ([]engine.TrendSignal, error) {
	keywords = distinctKeywords(keywords)
	if len(keywords) == 0 {
		return nil, nil
	}
	if p.Client == nil || p.Model == "" {
		return p.lookupWithFallback(ctx, keywords, errors.New("llm provider misconfigured"))
	}
	if p.MaxKeywords > 0 && len(keywords) > p.MaxKeywords {
		keywords = keywords[:p.MaxKeywords]
	}

	key := memoKey(keywords)
	if signals, ok := p.recall(key); ok {
		return signals, nil
	}

	messages, err := p.buildPrompt(keywords)
	if err != nil {
		return p.lookupWithFallback(ctx, keywords, err)
	}

	p.logger().Debug("requesting trend ratings", "keywords", len(keywords), "model", p.Model)

	resp, err := p.Client.ChatCompletion(ctx, llm.ChatCompletionRequest{
		Model:          p.Model,
		Messages:       messages,
		Temperature:    p.Temperature,
		MaxTokens:      p.MaxTokens,
		TopP:           0.9,
		ResponseFormat: llm.JSONObject,
	})
	if err != nil {
		return p.lookupWithFallback(ctx, keywords, err)
	}
	content, err := resp.Content()
	if err != nil {
		return p.lookupWithFallback(ctx, keywords, err)
	}

	signals, err := parseRatings(content, keywords)
	if err != nil {
		return p.lookupWithFallback(ctx, keywords, err)
	}
	if len(signals) == 0 {
		return p.lookupWithFallback(ctx, keywords, errors.New("llm response rated no keywords"))
	}

	p.remember(key, signals)
	return signals, nil
}

func (p *LLMProvider) lookupWithFallback(ctx context.Context, keywords []string, cause error) ([]engine.TrendSignal, error) {
	p.logger().Warn("llm trend lookup fell back", "error", cause)
	if p.Fallback != nil {
		signals, fbErr := p.Fallback.Lookup(ctx, keywords)
		if fbErr != nil {
			return nil, fmt.Errorf("llm fallback error: %v (original: %w)", fbErr, cause)
		}
		return signals, nil
	}
	return nil, cause
}

func (p *LLMProvider) buildPrompt(keywords []string) ([]llm.Message, error) {
	payload, err := json.Marshal(struct {
		Keywords []string `json:"keywords"`
	}{Keywords: keywords})
	if err != nil {
		return nil, fmt.Errorf("llm prompt marshal: %w", err)
	}

	system := "You track what is trending on social media. Respond STRICTLY with valid JSON."
	user := fmt.Sprintf(`Rate how much social media attention each keyword is getting right now.
Rules:
- Use a score from 0 (nobody talks about it) to 100 (dominating feeds).
- Only rate the keywords provided; do not invent new ones.
- Omit keywords you have no opinion about.

Respond with JSON using this schema:
{
  "trends": [
    {"keyword": "...", "score": 0}
  ]
}

Keywords:
%s`, string(payload))

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, nil
}

func parseRatings(content string, keywords []string) ([]engine.TrendSignal, error) {
	payload := extractJSON(content)
	if payload == "" {
		return nil, errors.New("llm response missing json payload")
	}

	var decoded struct {
		Trends []struct {
			Keyword string  `json:"keyword"`
			Score   float64 `json:"score"`
		} `json:"trends"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, fmt.Errorf("llm response decode: %w", err)
	}

	signals := make([]Signal, 0, len(decoded.Trends))
	for _, t := range decoded.Trends {
		signals = append(signals, Signal{Keyword: t.Keyword, Score: t.Score})
	}
	return matchSignals(signals, keywords), nil
}

func (p *LLMProvider) recall(key string) ([]engine.TrendSignal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.memo[key]
	if !ok || time.Now().After(entry.expires) {
		delete(p.memo, key)
		return nil, false
	}
	return slices.Clone(entry.signals), true
}

func (p *LLMProvider) remember(key string, signals []engine.TrendSignal) {
	ttl := p.MemoTTL
	if ttl <= 0 {
		ttl = DefaultMemoTTL
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.memo == nil {
		p.memo = make(map[string]memoEntry)
	}
	p.memo[key] = memoEntry{signals: slices.Clone(signals), expires: time.Now().Add(ttl)}
}

func (p *LLMProvider) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default().With("component", "llm_trends")
}

func memoKey(keywords []string) string {
	sorted := slices.Clone(keywords)
	slices.Sort(sorted)
	return strings.Join(sorted, "\x00")
}

func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return content[start : end+1]
}
