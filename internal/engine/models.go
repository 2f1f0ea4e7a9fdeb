package engine

// Platform identifies the social network a draft targets.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
)

// Platforms lists every supported platform in a stable order.
var Platforms = []Platform{
	PlatformInstagram, PlatformFacebook, PlatformTwitter,
	PlatformLinkedIn, PlatformTikTok, PlatformYouTube,
}

// Tone is the voice the author asked for.
type Tone string

const (
	ToneCasual       Tone = "casual"
	ToneProfessional Tone = "professional"
	ToneExciting     Tone = "exciting"
	ToneEducational  Tone = "educational"
	ToneHumorous     Tone = "humorous"
)

// Tones lists every supported tone.
var Tones = []Tone{ToneCasual, ToneProfessional, ToneExciting, ToneEducational, ToneHumorous}

// Goal is the business outcome a post is meant to drive.
type Goal string

const (
	GoalEngagement Goal = "engagement"
	GoalSales      Goal = "sales"
	GoalAwareness  Goal = "awareness"
	GoalFollowers  Goal = "followers"
	GoalVisits     Goal = "visits"
)

// Goals lists every supported goal.
var Goals = []Goal{GoalEngagement, GoalSales, GoalAwareness, GoalFollowers, GoalVisits}

// VariantType names a stylistic rewrite.
type VariantType string

const (
	VariantCasual       VariantType = "casual"
	VariantProfessional VariantType = "professional"
	VariantCreative     VariantType = "creative"
	VariantUrgency      VariantType = "urgency"
	VariantEmotional    VariantType = "emotional"
)

// VariantTypes lists every variant style in the order they are generated by default.
var VariantTypes = []VariantType{
	VariantCasual, VariantProfessional, VariantCreative, VariantUrgency, VariantEmotional,
}

// Draft is the user-authored text plus its targeting metadata.
type Draft struct {
	Text     string   `json:"text"`
	Platform Platform `json:"platform"`
	Tone     Tone     `json:"tone"`
	Goal     Goal     `json:"goal"`
}

// Contribution records one fired rule and what it added to the score.
type Contribution struct {
	RuleID string `json:"rule_id"`
	Delta  int    `json:"delta"`
	Note   string `json:"note"`
}

// QualityScore is the bounded rating of a draft together with its rule trace.
type QualityScore struct {
	Value            int            `json:"value"`
	FiredSuggestions []string       `json:"fired_suggestions"`
	Contributions    []Contribution `json:"contributions"`
}

// Variant is a stylistic rewrite of a draft.
type Variant struct {
	Type                VariantType `json:"variant_type"`
	Text                string      `json:"text"`
	PredictedEngagement int         `json:"predicted_engagement"`
	AudienceMatch       int         `json:"audience_match"`
}

// PerformancePrediction is the platform-calibrated forecast for one candidate text.
type PerformancePrediction struct {
	EstimatedReach          int      `json:"estimated_reach"`
	EstimatedEngagementRate float64  `json:"estimated_engagement_rate"`
	OptimalPostingTime      string   `json:"optimal_posting_time"`
	ConfidenceScore         int      `json:"confidence_score"`
	Factors                 []string `json:"factors"`
}

// TrendSignal is what a TrendProvider reports for a keyword.
type TrendSignal struct {
	Keyword    string  `json:"keyword"`
	TrendScore float64 `json:"trend_score"`
}

// TrendSuggestion is a keyword recommendation ranked against the draft.
type TrendSuggestion struct {
	Keyword    string `json:"keyword"`
	TrendScore int    `json:"trend_score"`
	Relevance  int    `json:"relevance"`
	Suggestion string `json:"suggestion"`
}

// Result is the snapshot returned by Engine.Run.
type Result struct {
	Draft       Draft                            `json:"draft"`
	Quality     QualityScore                     `json:"quality"`
	Variants    []Variant                        `json:"variants"`
	Predictions map[string]PerformancePrediction `json:"predictions"`
	Trends      []TrendSuggestion                `json:"trends"`
}

// BaseCandidateID keys the prediction for the unmodified draft.
const BaseCandidateID = "base"

// VariantCandidateID keys the prediction for a variant of the given type.
func VariantCandidateID(t VariantType) string {
	return "variant:" + string(t)
}
