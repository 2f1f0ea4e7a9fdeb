package trends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"contentengine/internal/engine"
)

// deadlineShare is the part of the caller's remaining time the registry
// spends waiting for providers, so partial answers arrive before the caller gives up.
const deadlineShare = 0.8

// Registry fans a lookup out to every registered provider.
type Registry struct {
	providers []Provider
	logger    *slog.Logger
}

// NewRegistry builds a registry with the provided providers.
func NewRegistry(providers ...Provider) (*Registry, error) {
	if len(providers) == 0 {
		return nil, errors.New("trends: at least one provider is required")
	}
	return &Registry{
		providers: providers,
		logger:    slog.Default().With("component", "trend_registry"),
	}, nil
}

// Add registers another provider.
func (r *Registry) Add(provider Provider) {
	r.providers = append(r.providers, provider)
}

// Name returns the registry identifier.
func (r *Registry) Name() string { return "registry" }

type providerAnswer struct {
	index   int
	signals []engine.TrendSignal
	err     error
}

// Lookup queries every provider concurrently and merges their answers in
// registration order. A failing provider is skipped. When the caller has a
// deadline, providers that have not answered by deadlineShare of the remaining
// time are abandoned and the answers gathered so far are returned. The lookup
// only fails when no provider answered.
func (r *Registry) Lookup(ctx context.Context, keywords []string) ([]engine.TrendSignal, error) {
	ctx, cancel := r.budget(ctx)
	defer cancel()

	answers := make(chan providerAnswer, len(r.providers))
	for i, p := range r.providers {
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					answers <- providerAnswer{index: i, err: fmt.Errorf("provider panic: %v", rec)}
				}
			}()
			signals, err := p.Lookup(ctx, keywords)
			answers <- providerAnswer{index: i, signals: signals, err: err}
		}()
	}

	batches := make([][]engine.TrendSignal, len(r.providers))
	answered := make([]bool, len(r.providers))
	var (
		errs      []error
		succeeded int
	)
collect:
	for pending := len(r.providers); pending > 0; pending-- {
		select {
		case a := <-answers:
			answered[a.index] = true
			name := r.providers[a.index].Name()
			if a.err != nil {
				r.logger.Warn("trend provider failed", "provider", name, "error", a.err)
				errs = append(errs, fmt.Errorf("lookup from %s: %w", name, a.err))
				continue
			}
			batches[a.index] = a.signals
			succeeded++
		case <-ctx.Done():
			for i, ok := range answered {
				if !ok {
					name := r.providers[i].Name()
					r.logger.Warn("trend provider abandoned", "provider", name, "error", ctx.Err())
					errs = append(errs, fmt.Errorf("lookup from %s: %w", name, ctx.Err()))
				}
			}
			break collect
		}
	}

	if succeeded == 0 {
		return nil, errors.Join(errs...)
	}
	return mergeTrendSignals(batches...), nil
}

func (r *Registry) budget(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	remaining := time.Until(deadline)
	return context.WithTimeout(ctx, time.Duration(float64(remaining)*deadlineShare))
}

// StaticFileProvider serves trend signals from a JSON snapshot file.
type StaticFileProvider struct {
	name string
	path string
}

// NewStaticFileProvider returns a provider reading the given snapshot.
func NewStaticFileProvider(name, path string) (*StaticFileProvider, error) {
	if name == "" {
		return nil, errors.New("static provider requires a name")
	}
	if path == "" {
		return nil, errors.New("static provider requires a path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("static provider: %w", err)
	}
	return &StaticFileProvider{name: name, path: path}, nil
}

// Name returns the provider name.
func (s *StaticFileProvider) Name() string { return s.name }

// Lookup re-reads the snapshot so it can be swapped on disk without a restart.
func (s *StaticFileProvider) Lookup(ctx context.Context, keywords []string) ([]engine.TrendSignal, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	signals, err := LoadSignals(s.path)
	if err != nil {
		return nil, err
	}
	return matchSignals(signals, keywords), nil
}

// LoadSignals reads a JSON snapshot of trend signals.
func LoadSignals(path string) ([]Signal, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trend snapshot %s: %w", path, err)
	}
	signals, err := decodeSignals(raw)
	if err != nil {
		return nil, fmt.Errorf("decode trend snapshot %s: %w", path, err)
	}
	return signals, nil
}
