package trends

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"contentengine/internal/engine"
)

type stubProvider struct {
	name     string
	signals  []engine.TrendSignal
	err      error
	calls    int
	keywords []string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Lookup(ctx context.Context, keywords []string) ([]engine.TrendSignal, error) {
	s.calls++
	s.keywords = keywords
	if s.err != nil {
		return nil, s.err
	}
	return s.signals, nil
}

// slowProvider answers after delay unless the context ends first.
type slowProvider struct {
	name  string
	delay time.Duration
}

func (s *slowProvider) Name() string { return s.name }

func (s *slowProvider) Lookup(ctx context.Context, keywords []string) ([]engine.TrendSignal, error) {
	select {
	case <-time.After(s.delay):
		return []engine.TrendSignal{{Keyword: "morning", TrendScore: 50}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestStaticFileProviderMatchesKeywords(t *testing.T) {
	provider, err := NewStaticFileProvider("sample", testDataPath(t))
	if err != nil {
		t.Fatalf("static provider: %v", err)
	}

	signals, err := provider.Lookup(context.Background(), []string{"Coffee", "launch", "tea"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d: %+v", len(signals), signals)
	}
	if signals[0].Keyword != "coffee" || signals[0].TrendScore != 81 {
		t.Fatalf("expected coffee at its best score, got %+v", signals[0])
	}
	if signals[1].Keyword != "launch" {
		t.Fatalf("expected launch second, got %+v", signals[1])
	}
}

func TestStaticFileProviderRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`[{"keyword":"coffee","score":1,"mood":"happy"}]`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	provider, err := NewStaticFileProvider("bad", path)
	if err != nil {
		t.Fatalf("static provider: %v", err)
	}
	if _, err := provider.Lookup(context.Background(), []string{"coffee"}); err == nil {
		t.Fatalf("expected decode error for unknown field")
	}
}

func TestNewStaticFileProviderValidatesArguments(t *testing.T) {
	if _, err := NewStaticFileProvider("", "x"); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, err := NewStaticFileProvider("x", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRegistryMergesAndToleratesFailures(t *testing.T) {
	broken := &stubProvider{name: "broken", err: errors.New("down")}
	first := &stubProvider{name: "first", signals: []engine.TrendSignal{{Keyword: "coffee", TrendScore: 40}}}
	second := &stubProvider{name: "second", signals: []engine.TrendSignal{
		{Keyword: "#Coffee", TrendScore: 70},
		{Keyword: "tea", TrendScore: 20},
	}}

	registry, err := NewRegistry(broken, first)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	registry.Add(second)

	signals, err := registry.Lookup(context.Background(), []string{"coffee", "tea"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(signals) != 2 || signals[0].Keyword != "coffee" || signals[0].TrendScore != 70 {
		t.Fatalf("unexpected merge: %+v", signals)
	}
	if broken.calls != 1 || first.calls != 1 || second.calls != 1 {
		t.Fatalf("every provider should be asked once")
	}
}

func TestRegistryFailsWhenEveryProviderFails(t *testing.T) {
	cause := errors.New("down")
	registry, err := NewRegistry(&stubProvider{name: "a", err: cause}, &stubProvider{name: "b", err: cause})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if _, err := registry.Lookup(context.Background(), []string{"coffee"}); !errors.Is(err, cause) {
		t.Fatalf("expected joined provider errors, got %v", err)
	}

	if _, err := NewRegistry(); err == nil {
		t.Fatalf("expected error for empty registry")
	}
}

func TestRegistryFeedsEngine(t *testing.T) {
	static, err := NewStaticFileProvider("sample", testDataPath(t))
	if err != nil {
		t.Fatalf("static provider: %v", err)
	}
	ingest := NewIngestProvider("")
	ingest.Add(Signal{Keyword: "beans", Score: 90})

	registry, err := NewRegistry(static, ingest)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	e, err := engine.New(engine.MustDefaultCatalog(), engine.WithTrendProvider(registry))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	result, err := e.Run(context.Background(), engine.Draft{
		Text:     "Fresh coffee beans for your morning #coffee",
		Platform: engine.PlatformInstagram,
	}, engine.DefaultOptions())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Trends) != 2 {
		t.Fatalf("expected coffee and beans, got %+v", result.Trends)
	}
}

func TestRegistryReturnsFastAnswersWhenAProviderIsSlow(t *testing.T) {
	fast := &stubProvider{name: "snapshot", signals: []engine.TrendSignal{{Keyword: "coffee", TrendScore: 90}}}
	slow := &slowProvider{name: "llm", delay: 300 * time.Millisecond}
	registry, err := NewRegistry(slow, fast)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	signals, err := registry.Lookup(ctx, []string{"coffee", "morning"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= slow.delay {
		t.Fatalf("registry waited for the slow provider: %s", elapsed)
	}
	if len(signals) != 1 || signals[0].Keyword != "coffee" || signals[0].TrendScore != 90 {
		t.Fatalf("expected the fast answer only, got %+v", signals)
	}
}

func TestRegistryFailsWhenNoProviderAnswersInTime(t *testing.T) {
	registry, err := NewRegistry(&slowProvider{name: "llm", delay: time.Second})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := registry.Lookup(ctx, []string{"coffee"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestRegistryToleratesPanickingProvider(t *testing.T) {
	registry, err := NewRegistry(
		&panicProvider{},
		&stubProvider{name: "ok", signals: []engine.TrendSignal{{Keyword: "tea", TrendScore: 10}}},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	signals, err := registry.Lookup(context.Background(), []string{"tea"})
	if err != nil || len(signals) != 1 {
		t.Fatalf("expected tea despite the panic, got %+v, %v", signals, err)
	}
}

type panicProvider struct{}

func (panicProvider) Name() string { return "panic" }

func (panicProvider) Lookup(context.Context, []string) ([]engine.TrendSignal, error) {
	panic("boom")
}

func TestSlowProviderDoesNotEmptyEngineTrends(t *testing.T) {
	fast := &stubProvider{name: "snapshot", signals: []engine.TrendSignal{{Keyword: "coffee", TrendScore: 90}}}
	registry, err := NewRegistry(fast, &slowProvider{name: "llm", delay: 300 * time.Millisecond})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	e, err := engine.New(engine.MustDefaultCatalog(),
		engine.WithTrendProvider(registry),
		engine.WithTrendTimeout(100*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	suggestions, err := e.SuggestTrends(context.Background(), engine.Draft{
		Text:     "Fresh coffee every morning",
		Platform: engine.PlatformInstagram,
	}, 3)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].Keyword != "coffee" {
		t.Fatalf("expected coffee from the fast provider, got %+v", suggestions)
	}
}

func testDataPath(t *testing.T) string {
	t.Helper()
	return filepath.Join("..", "..", "data", "trends_sample.json")
}
