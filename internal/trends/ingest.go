package trends

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"contentengine/internal/engine"
)

// IngestProvider stores trend signals submitted through the API.
type IngestProvider struct {
	name    string
	mu      sync.RWMutex
	signals []Signal
}

// NewIngestProvider constructs an empty ingest provider.
func NewIngestProvider(name string) *IngestProvider {
	if name == "" {
		name = "ingest"
	}
	return &IngestProvider{name: name}
}

// Name returns the provider identifier.
func (p *IngestProvider) Name() string { return p.name }

// Add stores a signal, generating an id and timestamp when missing.
// A signal with a known id replaces the stored one.
func (p *IngestProvider) Add(s Signal) Signal {
	p.mu.Lock()
	defer p.mu.Unlock()

	s.Keyword = NormalizeKeyword(s.Keyword)
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.ObservedAt.IsZero() {
		s.ObservedAt = time.Now().UTC()
	}
	if s.Source == "" {
		s.Source = p.name
	}

	for i := range p.signals {
		if p.signals[i].ID == s.ID {
			p.signals[i] = s
			return s
		}
	}
	p.signals = append(p.signals, s)
	return s
}

// Record implements the ingest sink used by the HTTP layer.
func (p *IngestProvider) Record(ctx context.Context, s Signal) (Signal, error) {
	if err := ctx.Err(); err != nil {
		return Signal{}, err
	}
	return p.Add(s), nil
}

// Signals returns the stored signals ordered by observation time.
func (p *IngestProvider) Signals() []Signal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Signal, len(p.signals))
	copy(out, p.signals)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ObservedAt.Before(out[j].ObservedAt)
	})
	return out
}

// Lookup returns the best stored score for each requested keyword.
func (p *IngestProvider) Lookup(ctx context.Context, keywords []string) ([]engine.TrendSignal, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return matchSignals(p.signals, keywords), nil
}

// PruneOlderThan drops signals observed before ts and returns how many were removed.
func (p *IngestProvider) PruneOlderThan(ts time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.signals) == 0 {
		return 0
	}

	kept := p.signals[:0]
	removed := 0
	for _, s := range p.signals {
		if s.ObservedAt.Before(ts) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	p.signals = kept
	return removed
}
