package engine

import (
	"fmt"
	"strings"
)

// Normalize validates the draft and fills the defaulted fields.
// Text is checked first, so an empty draft is reported as invalid even when
// its targeting metadata is also missing.
func (d Draft) Normalize() (Draft, error) {
	if strings.TrimSpace(d.Text) == "" {
		return Draft{}, fmt.Errorf("%w: text is empty", ErrInvalidDraft)
	}

	d.Platform = Platform(strings.ToLower(strings.TrimSpace(string(d.Platform))))
	d.Tone = Tone(strings.ToLower(strings.TrimSpace(string(d.Tone))))
	d.Goal = Goal(strings.ToLower(strings.TrimSpace(string(d.Goal))))

	if !isPlatform(d.Platform) {
		return Draft{}, fmt.Errorf("%w: platform %q", ErrUnsupportedTarget, d.Platform)
	}
	if d.Tone == "" {
		d.Tone = ToneCasual
	}
	if !isTone(d.Tone) {
		return Draft{}, fmt.Errorf("%w: tone %q", ErrUnsupportedTarget, d.Tone)
	}
	if d.Goal == "" {
		d.Goal = GoalEngagement
	}
	if !isGoal(d.Goal) {
		return Draft{}, fmt.Errorf("%w: goal %q", ErrUnsupportedTarget, d.Goal)
	}
	return d, nil
}

func truncate(text string, max int) string {
	text = strings.TrimSpace(text)
	if len([]rune(text)) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "…"
}

// Preview shortens text for log lines and CLI tables.
func Preview(text string) string {
	return truncate(strings.ReplaceAll(text, "\n", " "), 60)
}
