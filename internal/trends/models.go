package trends

import (
	"strings"
	"time"

	"contentengine/internal/engine"
)

// Signal is one observation of how much attention a keyword is getting.
type Signal struct {
	ID         string    `json:"id"`
	Keyword    string    `json:"keyword"`
	Score      float64   `json:"score"`
	Source     string    `json:"source"`
	ObservedAt time.Time `json:"observed_at"`
}

// Provider is a named trend source usable by the content engine.
type Provider interface {
	engine.TrendProvider
	Name() string
}

// NormalizeKeyword lowercases a keyword and strips a leading hashtag.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(keyword), "#"))
}

// matchSignals keeps the signals whose keyword was asked for, collapsing
// repeated observations to the highest score.
func matchSignals(signals []Signal, keywords []string) []engine.TrendSignal {
	wanted := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if kw = NormalizeKeyword(kw); kw != "" {
			wanted[kw] = struct{}{}
		}
	}

	index := make(map[string]int)
	var out []engine.TrendSignal
	for _, s := range signals {
		kw := NormalizeKeyword(s.Keyword)
		if _, ok := wanted[kw]; !ok {
			continue
		}
		if i, seen := index[kw]; seen {
			if s.Score > out[i].TrendScore {
				out[i].TrendScore = s.Score
			}
			continue
		}
		index[kw] = len(out)
		out = append(out, engine.TrendSignal{Keyword: kw, TrendScore: s.Score})
	}
	return out
}

// mergeTrendSignals folds several providers' answers into one list, keeping
// the highest score per keyword in first-seen order.
func mergeTrendSignals(batches ...[]engine.TrendSignal) []engine.TrendSignal {
	index := make(map[string]int)
	var out []engine.TrendSignal
	for _, batch := range batches {
		for _, s := range batch {
			kw := NormalizeKeyword(s.Keyword)
			if kw == "" {
				continue
			}
			if i, seen := index[kw]; seen {
				if s.TrendScore > out[i].TrendScore {
					out[i].TrendScore = s.TrendScore
				}
				continue
			}
			index[kw] = len(out)
			out = append(out, engine.TrendSignal{Keyword: kw, TrendScore: s.TrendScore})
		}
	}
	return out
}
