package engine

import (
	"fmt"
	"hash/fnv"
	"math"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// neutralAffinity is used when a profile does not rate a style.
const neutralAffinity = 50

// Generator rewrites drafts into the variant styles.
type Generator struct {
	lexicon   Lexicon
	stopWords map[string]struct{}
	profiles  map[Platform]Profile
	alignment Alignment
}

// NewGenerator builds a Generator over an already validated catalog.
func NewGenerator(c Catalog) Generator {
	return Generator{
		lexicon:   c.Lexicon,
		stopWords: stopWordSet(c.Lexicon.StopWords),
		profiles:  c.Profiles,
		alignment: c.Alignment,
	}
}

// Generate produces one variant per distinct requested type, in request order.
// Identical input always yields identical output: wherever a transform picks
// between phrasings, the choice is keyed on a hash of the draft text.
func (g Generator) Generate(draft Draft, quality QualityScore, types []VariantType) ([]Variant, error) {
	d, err := draft.Normalize()
	if err != nil {
		return nil, err
	}
	return g.generate(d, quality, types)
}

func (g Generator) generate(d Draft, quality QualityScore, types []VariantType) ([]Variant, error) {
	wanted, err := distinctTypes(types)
	if err != nil {
		return nil, err
	}
	profile, ok := g.profiles[d.Platform]
	if !ok {
		return nil, unsupportedPlatform(d.Platform)
	}

	seed := seedFor(d.Text)
	variants := make([]Variant, 0, len(wanted))
	for _, t := range wanted {
		affinity, ok := profile.StyleAffinity[t]
		if !ok {
			affinity = neutralAffinity
		}
		variants = append(variants, Variant{
			Type:                t,
			Text:                g.rewrite(t, d.Text, seed),
			PredictedEngagement: clampInt(int(math.Round(0.6*float64(affinity)+0.4*float64(quality.Value))), 0, 100),
			AudienceMatch:       clampInt(affinity+g.alignmentBonus(t, d), 0, 100),
		})
	}
	return variants, nil
}

func distinctTypes(types []VariantType) ([]VariantType, error) {
	out := make([]VariantType, 0, len(types))
	for _, t := range types {
		if !isVariantType(t) {
			return nil, fmt.Errorf("%w: variant type %q", ErrUnsupportedTarget, t)
		}
		if slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (g Generator) alignmentBonus(t VariantType, d Draft) int {
	bonus := 0
	if slices.Contains(g.alignment.Tones[t], d.Tone) {
		bonus += 10
	}
	if slices.Contains(g.alignment.Goals[t], d.Goal) {
		bonus += 10
	}
	return bonus
}

func (g Generator) rewrite(t VariantType, text string, seed uint64) string {
	text = strings.TrimSpace(text)
	switch t {
	case VariantCasual:
		return g.casual(text, seed)
	case VariantProfessional:
		return g.professional(text, seed)
	case VariantCreative:
		return g.creative(text, seed)
	case VariantUrgency:
		return g.urgency(text, seed)
	case VariantEmotional:
		return g.emotional(text, seed)
	}
	return text
}

func (g Generator) casual(text string, seed uint64) string {
	body := strings.ReplaceAll(text, ". ", "! ")
	body = strings.TrimRight(body, ".")
	if !endsWithPunctuation(body) {
		body += "!"
	}
	return pick(g.lexicon.Greetings, seed, 0) + " " + body
}

func (g Generator) professional(text string, seed uint64) string {
	lines := strings.Split(stripEmoji(text), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	body := strings.Join(kept, "\n")
	body = collapseRepeats(body, '!')
	body = collapseRepeats(body, '?')
	body = strings.ReplaceAll(body, "!", ".")
	body = capitalize(body)
	if body != "" && !endsWithPunctuation(body) {
		body += "."
	}

	closing := pick(g.lexicon.Closings, seed, 1)
	if body == "" {
		return closing
	}
	return body + "\n\n" + closing
}

func (g Generator) creative(text string, seed uint64) string {
	var b strings.Builder
	b.WriteString(pick(g.lexicon.CreativeOpeners, seed, 2))
	b.WriteString(" ")
	b.WriteString(text)
	b.WriteString(" ✨")

	existing := hashtags(text)
	var tags []string
	for _, kw := range extractKeywords(text, g.stopWords) {
		if slices.Contains(existing, kw) {
			continue
		}
		tags = append(tags, "#"+capitalize(kw))
		if len(tags) == 2 {
			break
		}
	}
	if len(tags) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(tags, " "))
	}
	return b.String()
}

func (g Generator) urgency(text string, seed uint64) string {
	return pick(g.lexicon.UrgencyOpeners, seed, 3) + " " + sentence(text) + " " + pick(g.lexicon.UrgencyClosers, seed, 4)
}

func (g Generator) emotional(text string, seed uint64) string {
	return "❤️ " + sentence(intensify(text, g.lexicon.Superlatives)) + " " + pick(g.lexicon.EmotionalClosers, seed, 5)
}

// intensify swaps plain adjectives for their superlative form on word
// boundaries, keeping a leading capital.
func intensify(text string, superlatives map[string]string) string {
	if len(superlatives) == 0 {
		return text
	}
	var b strings.Builder
	var word []rune
	flush := func() {
		if len(word) == 0 {
			return
		}
		w := string(word)
		if replacement, ok := superlatives[strings.ToLower(w)]; ok {
			if unicode.IsUpper(word[0]) {
				replacement = capitalize(replacement)
			}
			w = replacement
		}
		b.WriteString(w)
		word = word[:0]
	}
	for _, r := range text {
		if unicode.IsLetter(r) || r == '\'' {
			word = append(word, r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

func stripEmoji(text string) string {
	return strings.Map(func(r rune) rune {
		if isEmoji(r) || r == 0xFE0F || r == 0x200D {
			return -1
		}
		return r
	}, text)
}

func collapseRepeats(text string, target rune) string {
	var b strings.Builder
	var prev rune
	for _, r := range text {
		if r == target && prev == target {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// sentence terminates text with a period unless it already ends a sentence.
func sentence(text string) string {
	if endsWithPunctuation(text) {
		return text
	}
	return text + "."
}

func endsWithPunctuation(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r == '.' || r == '!' || r == '?'
}

func seedFor(text string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return h.Sum64()
}

func pick(options []string, seed uint64, salt uint64) string {
	if len(options) == 0 {
		return ""
	}
	return options[(seed+salt)%uint64(len(options))]
}
