package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var apostrophes = strings.NewReplacer("'", "", "’", "")

// words splits text into lowercase runs of letters and digits.
// Apostrophes are dropped so "don't" and "dont" compare equal.
func words(s string) []string {
	normalized := strings.ToLower(apostrophes.Replace(s))
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// tokenize returns the words long enough to carry meaning.
func tokenize(s string) []string {
	parts := words(s)
	tokens := parts[:0]
	for _, p := range parts {
		if utf8.RuneCountInString(p) <= 2 {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

// hashtags returns the lowercase bodies of #tags in text.
func hashtags(text string) []string {
	var tags []string
	for _, field := range strings.Fields(text) {
		if !strings.HasPrefix(field, "#") {
			continue
		}
		body := strings.TrimRightFunc(field[1:], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if body == "" {
			continue
		}
		tags = append(tags, strings.ToLower(body))
	}
	return tags
}

// extractKeywords returns the distinct non-stop-word tokens of text in first-seen order.
func extractKeywords(text string, stopWords map[string]struct{}) []string {
	tokens := tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	var out []string
	for _, t := range tokens {
		if _, stop := stopWords[t]; stop {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func stopWordSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, w := range list {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

func dedupeStrings(values []string) []string {
	if len(values) <= 1 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
