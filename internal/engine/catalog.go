package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator used for catalog structure checks.
var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultBaseScore is the score every draft starts from before rules apply.
const DefaultBaseScore = 60

// Range is an inclusive integer interval.
type Range struct {
	Min int `yaml:"min" json:"min" validate:"min=0"`
	Max int `yaml:"max" json:"max" validate:"gtefield=Min"`
}

// PercentRange is an inclusive interval of percentages.
type PercentRange struct {
	Min float64 `yaml:"min" json:"min" validate:"min=0,max=100"`
	Max float64 `yaml:"max" json:"max" validate:"gtefield=Min,max=100"`
}

// Profile is the baseline used to calibrate predictions for one platform.
type Profile struct {
	Reach         Range               `yaml:"reach" json:"reach"`
	Engagement    PercentRange        `yaml:"engagement" json:"engagement"`
	PostingWindow string              `yaml:"posting_window" json:"posting_window" validate:"required"`
	Confidence    int                 `yaml:"confidence" json:"confidence" validate:"min=0,max=100"`
	IdealLength   Range               `yaml:"ideal_length" json:"ideal_length"`
	StyleAffinity map[VariantType]int `yaml:"style_affinity" json:"style_affinity" validate:"dive,min=0,max=100"`
}

// Lexicon holds the word lists consulted by rules and transforms.
type Lexicon struct {
	CallToAction     []string          `yaml:"call_to_action" json:"call_to_action" validate:"required,min=1,dive,required"`
	StopWords        []string          `yaml:"stop_words" json:"stop_words"`
	Greetings        []string          `yaml:"greetings" json:"greetings" validate:"required,min=1,dive,required"`
	Closings         []string          `yaml:"closings" json:"closings" validate:"required,min=1,dive,required"`
	UrgencyOpeners   []string          `yaml:"urgency_openers" json:"urgency_openers" validate:"required,min=1,dive,required"`
	UrgencyClosers   []string          `yaml:"urgency_closers" json:"urgency_closers" validate:"required,min=1,dive,required"`
	CreativeOpeners  []string          `yaml:"creative_openers" json:"creative_openers" validate:"required,min=1,dive,required"`
	EmotionalClosers []string          `yaml:"emotional_closers" json:"emotional_closers" validate:"required,min=1,dive,required"`
	Superlatives     map[string]string `yaml:"superlatives" json:"superlatives" validate:"dive,keys,required,endkeys,required"`
}

// Alignment says which tones and goals each variant style suits.
type Alignment struct {
	Tones map[VariantType][]Tone `yaml:"tones" json:"tones"`
	Goals map[VariantType][]Goal `yaml:"goals" json:"goals"`
}

// Catalog is the immutable configuration the engine is built from:
// the ordered rule list, the per-platform baselines and the lexicon.
type Catalog struct {
	BaseScore int                  `yaml:"base_score" json:"base_score" validate:"min=0,max=100"`
	Rules     []Rule               `yaml:"rules" json:"rules" validate:"required,min=1,dive"`
	Profiles  map[Platform]Profile `yaml:"profiles" json:"profiles" validate:"required,dive"`
	Lexicon   Lexicon              `yaml:"lexicon" json:"lexicon"`
	Alignment Alignment            `yaml:"alignment" json:"alignment"`
}

// Validate checks the catalog structure and its cross references.
func (c Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	var errs []error
	seen := make(map[string]struct{}, len(c.Rules))
	for _, rule := range c.Rules {
		if _, dup := seen[rule.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate rule id %q", rule.ID))
		}
		seen[rule.ID] = struct{}{}
		if err := rule.check(); err != nil {
			errs = append(errs, err)
		}
	}

	for _, p := range Platforms {
		if _, ok := c.Profiles[p]; !ok {
			errs = append(errs, fmt.Errorf("missing profile for platform %q", p))
		}
	}
	for p, profile := range c.Profiles {
		if !isPlatform(p) {
			errs = append(errs, fmt.Errorf("profile for unknown platform %q", p))
		}
		for vt := range profile.StyleAffinity {
			if !isVariantType(vt) {
				errs = append(errs, fmt.Errorf("profile %s: unknown variant type %q", p, vt))
			}
		}
	}

	for vt, tones := range c.Alignment.Tones {
		if !isVariantType(vt) {
			errs = append(errs, fmt.Errorf("alignment: unknown variant type %q", vt))
		}
		for _, t := range tones {
			if !isTone(t) {
				errs = append(errs, fmt.Errorf("alignment %s: unknown tone %q", vt, t))
			}
		}
	}
	for vt, goals := range c.Alignment.Goals {
		if !isVariantType(vt) {
			errs = append(errs, fmt.Errorf("alignment: unknown variant type %q", vt))
		}
		for _, g := range goals {
			if !isGoal(g) {
				errs = append(errs, fmt.Errorf("alignment %s: unknown goal %q", vt, g))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}
	return nil
}

// Clone returns a deep copy so the engine can hold configuration nobody else can mutate.
func (c Catalog) Clone() Catalog {
	out := Catalog{
		BaseScore: c.BaseScore,
		Rules:     make([]Rule, len(c.Rules)),
		Profiles:  make(map[Platform]Profile, len(c.Profiles)),
	}
	for i, r := range c.Rules {
		r.Platforms = slices.Clone(r.Platforms)
		r.Tones = slices.Clone(r.Tones)
		r.Goals = slices.Clone(r.Goals)
		r.Terms = slices.Clone(r.Terms)
		out.Rules[i] = r
	}
	for p, profile := range c.Profiles {
		profile.StyleAffinity = maps.Clone(profile.StyleAffinity)
		out.Profiles[p] = profile
	}

	lex := c.Lexicon
	out.Lexicon = Lexicon{
		CallToAction:     slices.Clone(lex.CallToAction),
		StopWords:        slices.Clone(lex.StopWords),
		Greetings:        slices.Clone(lex.Greetings),
		Closings:         slices.Clone(lex.Closings),
		UrgencyOpeners:   slices.Clone(lex.UrgencyOpeners),
		UrgencyClosers:   slices.Clone(lex.UrgencyClosers),
		CreativeOpeners:  slices.Clone(lex.CreativeOpeners),
		EmotionalClosers: slices.Clone(lex.EmotionalClosers),
		Superlatives:     maps.Clone(lex.Superlatives),
	}

	if c.Alignment.Tones != nil {
		out.Alignment.Tones = make(map[VariantType][]Tone, len(c.Alignment.Tones))
		for k, v := range c.Alignment.Tones {
			out.Alignment.Tones[k] = slices.Clone(v)
		}
	}
	if c.Alignment.Goals != nil {
		out.Alignment.Goals = make(map[VariantType][]Goal, len(c.Alignment.Goals))
		for k, v := range c.Alignment.Goals {
			out.Alignment.Goals[k] = slices.Clone(v)
		}
	}
	return out
}

func (c Catalog) profile(p Platform) (Profile, error) {
	profile, ok := c.Profiles[p]
	if !ok {
		return Profile{}, unsupportedPlatform(p)
	}
	return profile, nil
}

func isPlatform(p Platform) bool       { return slices.Contains(Platforms, p) }
func isTone(t Tone) bool               { return slices.Contains(Tones, t) }
func isGoal(g Goal) bool               { return slices.Contains(Goals, g) }
func isVariantType(v VariantType) bool { return slices.Contains(VariantTypes, v) }
