package engine

import (
	"math"
	"sort"
)

// Scorer applies the rule catalog to drafts.
type Scorer struct {
	baseScore int
	rules     []Rule
	profiles  map[Platform]Profile
	cta       []string
}

// NewScorer builds a Scorer over an already validated catalog.
func NewScorer(c Catalog) Scorer {
	return Scorer{
		baseScore: c.BaseScore,
		rules:     c.Rules,
		profiles:  c.Profiles,
		cta:       c.Lexicon.CallToAction,
	}
}

// Score rates the draft. Every applicable rule whose predicate fires adds its
// weight; deficiencies also contribute their note to the suggestions in
// catalog order. The sum is clamped only once all rules ran, so the value does
// not depend on rule order.
func (s Scorer) Score(draft Draft) (QualityScore, error) {
	d, err := draft.Normalize()
	if err != nil {
		return QualityScore{}, err
	}
	return s.score(d)
}

func (s Scorer) score(d Draft) (QualityScore, error) {
	profile, ok := s.profiles[d.Platform]
	if !ok {
		return QualityScore{}, unsupportedPlatform(d.Platform)
	}

	ctx := ruleContext{
		features: measure(d.Text),
		profile:  profile,
		cta:      s.cta,
	}

	total := s.baseScore
	suggestions := make([]string, 0, len(s.rules))
	contributions := make([]Contribution, 0, len(s.rules))
	for _, rule := range s.rules {
		if !rule.appliesTo(d) {
			continue
		}
		if !predicates[rule.Kind](ctx, rule) {
			continue
		}
		total += rule.Weight
		contributions = append(contributions, Contribution{RuleID: rule.ID, Delta: rule.Weight, Note: rule.Note})
		if rule.Deficiency() {
			suggestions = append(suggestions, rule.Note)
		}
	}

	return QualityScore{
		Value:            clampInt(total, 0, 100),
		FiredSuggestions: suggestions,
		Contributions:    contributions,
	}, nil
}

// topContributions returns up to n contributions ordered by magnitude, keeping
// catalog order between equal magnitudes.
func topContributions(contributions []Contribution, n int) []Contribution {
	sorted := make([]Contribution, len(contributions))
	copy(sorted, contributions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return abs(sorted[i].Delta) > abs(sorted[j].Delta)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundTo(v float64, prec int) float64 {
	p := math.Pow10(prec)
	return math.Round(v*p) / p
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
