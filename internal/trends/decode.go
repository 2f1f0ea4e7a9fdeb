package trends

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type rawSignal struct {
	ID         string  `json:"id"`
	Keyword    string  `json:"keyword"`
	Score      float64 `json:"score"`
	Source     string  `json:"source"`
	ObservedAt string  `json:"observed_at"`
}

func decodeSignals(data []byte) ([]Signal, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var raws []rawSignal
	if err := decoder.Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	signals := make([]Signal, 0, len(raws))
	for _, r := range raws {
		keyword := NormalizeKeyword(r.Keyword)
		if keyword == "" {
			continue
		}
		var observed time.Time
		if r.ObservedAt != "" {
			parsed, err := time.Parse(time.RFC3339, r.ObservedAt)
			if err != nil {
				return nil, fmt.Errorf("parse time for %s: %w", keyword, err)
			}
			observed = parsed.UTC()
		}
		signals = append(signals, Signal{
			ID:         r.ID,
			Keyword:    keyword,
			Score:      r.Score,
			Source:     r.Source,
			ObservedAt: observed,
		})
	}
	return signals, nil
}
