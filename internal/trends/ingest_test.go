package trends

import (
	"context"
	"testing"
	"time"
)

func TestIngestProviderAddAssignsDefaults(t *testing.T) {
	p := NewIngestProvider("")
	if p.Name() != "ingest" {
		t.Fatalf("unexpected default name %q", p.Name())
	}

	s := p.Add(Signal{Keyword: "#Launch", Score: 50})
	if s.ID == "" {
		t.Fatalf("expected generated id")
	}
	if s.ObservedAt.IsZero() {
		t.Fatalf("expected observation time")
	}
	if s.Keyword != "launch" || s.Source != "ingest" {
		t.Fatalf("unexpected signal: %+v", s)
	}

	replaced := p.Add(Signal{ID: s.ID, Keyword: "launch", Score: 75})
	if replaced.Score != 75 || len(p.Signals()) != 1 {
		t.Fatalf("expected replacement of %s, got %d signals", s.ID, len(p.Signals()))
	}
}

func TestIngestProviderLookupAndPrune(t *testing.T) {
	p := NewIngestProvider("api")
	old := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	p.Add(Signal{Keyword: "coffee", Score: 30, ObservedAt: old})
	p.Add(Signal{Keyword: "coffee", Score: 60, ObservedAt: recent})
	p.Add(Signal{Keyword: "tea", Score: 10, ObservedAt: recent})

	signals, err := p.Lookup(context.Background(), []string{"coffee"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(signals) != 1 || signals[0].TrendScore != 60 {
		t.Fatalf("expected best coffee score, got %+v", signals)
	}

	if removed := p.PruneOlderThan(recent); removed != 1 {
		t.Fatalf("expected 1 pruned signal, got %d", removed)
	}
	if got := p.Signals(); len(got) != 2 {
		t.Fatalf("expected 2 remaining signals, got %d", len(got))
	}
}

func TestIngestProviderRecordHonoursContext(t *testing.T) {
	p := NewIngestProvider("api")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Record(ctx, Signal{Keyword: "coffee"}); err == nil {
		t.Fatalf("expected cancelled context error")
	}
	if len(p.Signals()) != 0 {
		t.Fatalf("cancelled record must not store anything")
	}
}
