package engine

import (
	"fmt"
	"math"
)

// maxFactors caps the explanatory factors attached to a prediction.
const maxFactors = 3

// Predictor turns a quality score into a platform-calibrated forecast.
type Predictor struct {
	catalog Catalog
}

// NewPredictor builds a Predictor over an already validated catalog.
func NewPredictor(c Catalog) Predictor {
	return Predictor{catalog: c}
}

// Predict forecasts reach, engagement and confidence for text on platform.
// Engagement and confidence grow monotonically with quality.Value for a fixed
// platform; the text only influences reach through a constant multiplier.
func (p Predictor) Predict(text string, platform Platform, quality QualityScore) (PerformancePrediction, error) {
	profile, err := p.catalog.profile(platform)
	if err != nil {
		return PerformancePrediction{}, err
	}

	q := float64(clampInt(quality.Value, 0, 100)) / 100

	engagement := profile.Engagement.Min + (profile.Engagement.Max-profile.Engagement.Min)*q
	engagement = roundTo(clampFloat(engagement, 0, 100), 2)

	reach := float64(profile.Reach.Min) + float64(profile.Reach.Max-profile.Reach.Min)*q
	reach *= 1 + 0.05*float64(min(len(hashtags(text)), 3))
	if reach < 0 || math.IsNaN(reach) {
		reach = 0
	}

	base := clampInt(profile.Confidence, 0, 100)
	confidence := float64(base) + float64(100-base)*0.6*q

	return PerformancePrediction{
		EstimatedReach:          int(math.Round(reach)),
		EstimatedEngagementRate: engagement,
		OptimalPostingTime:      profile.PostingWindow,
		ConfidenceScore:         clampInt(int(math.Round(confidence)), 0, 100),
		Factors:                 factors(quality.Contributions),
	}, nil
}

func factors(contributions []Contribution) []string {
	top := topContributions(contributions, maxFactors)
	out := make([]string, 0, len(top))
	for _, c := range top {
		out = append(out, fmt.Sprintf("%s (%+d)", c.Note, c.Delta))
	}
	return out
}
