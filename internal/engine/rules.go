package engine

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RuleKind selects the predicate a rule evaluates.
type RuleKind string

const (
	KindTooLong             RuleKind = "too_long"
	KindTooShort            RuleKind = "too_short"
	KindLengthFit           RuleKind = "length_fit"
	KindHasCTA              RuleKind = "has_cta"
	KindMissingCTA          RuleKind = "missing_cta"
	KindHasEmoji            RuleKind = "has_emoji"
	KindMissingEmoji        RuleKind = "missing_emoji"
	KindEmojiOverload       RuleKind = "emoji_overload"
	KindHasLineBreaks       RuleKind = "has_line_breaks"
	KindMissingLineBreaks   RuleKind = "missing_line_breaks"
	KindHasHashtags         RuleKind = "has_hashtags"
	KindMissingHashtags     RuleKind = "missing_hashtags"
	KindHashtagOverload     RuleKind = "hashtag_overload"
	KindHasQuestion         RuleKind = "has_question"
	KindExclamationOverload RuleKind = "exclamation_overload"
	KindContainsTerms       RuleKind = "contains_terms"
	KindLacksTerms          RuleKind = "lacks_terms"
)

// Rule is one entry of the catalog. A negative Weight marks a deficiency and
// Note is then the suggestion shown to the author; a positive Weight marks a
// satisfied best practice and Note only explains the bonus.
type Rule struct {
	ID        string     `yaml:"id" json:"id" validate:"required"`
	Kind      RuleKind   `yaml:"kind" json:"kind" validate:"required"`
	Platforms []Platform `yaml:"platforms,omitempty" json:"platforms,omitempty"`
	Tones     []Tone     `yaml:"tones,omitempty" json:"tones,omitempty"`
	Goals     []Goal     `yaml:"goals,omitempty" json:"goals,omitempty"`
	Terms     []string   `yaml:"terms,omitempty" json:"terms,omitempty"`
	Threshold int        `yaml:"threshold,omitempty" json:"threshold,omitempty" validate:"min=0"`
	Weight    int        `yaml:"weight" json:"weight" validate:"ne=0,min=-50,max=50"`
	Note      string     `yaml:"note" json:"note" validate:"required"`
}

// Deficiency reports whether the rule penalises the draft when it fires.
func (r Rule) Deficiency() bool { return r.Weight < 0 }

func (r Rule) check() error {
	if _, ok := predicates[r.Kind]; !ok {
		return fmt.Errorf("rule %s: unknown kind %q", r.ID, r.Kind)
	}
	if (r.Kind == KindContainsTerms || r.Kind == KindLacksTerms) && len(r.Terms) == 0 {
		return fmt.Errorf("rule %s: kind %s requires terms", r.ID, r.Kind)
	}
	for _, p := range r.Platforms {
		if !isPlatform(p) {
			return fmt.Errorf("rule %s: unknown platform %q", r.ID, p)
		}
	}
	for _, t := range r.Tones {
		if !isTone(t) {
			return fmt.Errorf("rule %s: unknown tone %q", r.ID, t)
		}
	}
	for _, g := range r.Goals {
		if !isGoal(g) {
			return fmt.Errorf("rule %s: unknown goal %q", r.ID, g)
		}
	}
	return nil
}

// appliesTo reports whether the rule's platform, tone and goal filters admit the draft.
func (r Rule) appliesTo(d Draft) bool {
	if len(r.Platforms) > 0 && !slices.Contains(r.Platforms, d.Platform) {
		return false
	}
	if len(r.Tones) > 0 && !slices.Contains(r.Tones, d.Tone) {
		return false
	}
	if len(r.Goals) > 0 && !slices.Contains(r.Goals, d.Goal) {
		return false
	}
	return true
}

// features are the measurements every predicate reads, computed once per text.
type features struct {
	runes        int
	lower        string
	phrase       string // space-padded normalised words for phrase lookups
	emoji        int
	hashtags     int
	lineBreaks   int
	exclamations int
	question     bool
}

func measure(text string) features {
	text = strings.TrimSpace(text)
	f := features{
		runes:        utf8.RuneCountInString(text),
		lower:        strings.ToLower(text),
		lineBreaks:   strings.Count(text, "\n"),
		exclamations: strings.Count(text, "!"),
		question:     strings.Contains(text, "?"),
		hashtags:     len(hashtags(text)),
	}
	for _, r := range text {
		if isEmoji(r) {
			f.emoji++
		}
	}
	f.phrase = " " + strings.Join(words(text), " ") + " "
	return f
}

// containsPhrase matches a lexicon phrase on word boundaries.
func (f features) containsPhrase(term string) bool {
	normalized := strings.Join(words(term), " ")
	if normalized == "" {
		return false
	}
	return strings.Contains(f.phrase, " "+normalized+" ")
}

func (f features) containsAny(terms []string) bool {
	for _, term := range terms {
		if f.containsPhrase(term) {
			return true
		}
	}
	return false
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	}
	return unicode.Is(unicode.So, r)
}

type ruleContext struct {
	features features
	profile  Profile
	cta      []string
}

type predicate func(ctx ruleContext, r Rule) bool

var predicates = map[RuleKind]predicate{
	KindTooLong: func(c ruleContext, _ Rule) bool {
		return c.profile.IdealLength.Max > 0 && c.features.runes > c.profile.IdealLength.Max
	},
	KindTooShort: func(c ruleContext, _ Rule) bool {
		return c.features.runes < c.profile.IdealLength.Min
	},
	KindLengthFit: func(c ruleContext, _ Rule) bool {
		n := c.features.runes
		return n >= c.profile.IdealLength.Min && (c.profile.IdealLength.Max == 0 || n <= c.profile.IdealLength.Max)
	},
	KindHasCTA: func(c ruleContext, _ Rule) bool {
		return c.features.containsAny(c.cta)
	},
	KindMissingCTA: func(c ruleContext, _ Rule) bool {
		return !c.features.containsAny(c.cta)
	},
	KindHasEmoji: func(c ruleContext, _ Rule) bool {
		return c.features.emoji > 0
	},
	KindMissingEmoji: func(c ruleContext, _ Rule) bool {
		return c.features.emoji == 0
	},
	KindEmojiOverload: func(c ruleContext, r Rule) bool {
		return c.features.emoji > r.Threshold
	},
	KindHasLineBreaks: func(c ruleContext, _ Rule) bool {
		return c.features.lineBreaks > 0
	},
	KindMissingLineBreaks: func(c ruleContext, r Rule) bool {
		return c.features.lineBreaks == 0 && c.features.runes >= r.Threshold
	},
	KindHasHashtags: func(c ruleContext, _ Rule) bool {
		return c.features.hashtags > 0
	},
	KindMissingHashtags: func(c ruleContext, _ Rule) bool {
		return c.features.hashtags == 0
	},
	KindHashtagOverload: func(c ruleContext, r Rule) bool {
		return c.features.hashtags > r.Threshold
	},
	KindHasQuestion: func(c ruleContext, _ Rule) bool {
		return c.features.question
	},
	KindExclamationOverload: func(c ruleContext, r Rule) bool {
		return c.features.exclamations > r.Threshold
	},
	KindContainsTerms: func(c ruleContext, r Rule) bool {
		return c.features.containsAny(r.Terms)
	},
	KindLacksTerms: func(c ruleContext, r Rule) bool {
		return !c.features.containsAny(r.Terms)
	},
}
