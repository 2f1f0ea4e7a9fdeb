package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidDraft indicates that the draft text is empty or whitespace only.
var ErrInvalidDraft = errors.New("invalid draft")

// ErrUnsupportedTarget indicates an unknown platform, tone, goal or variant type.
var ErrUnsupportedTarget = errors.New("unsupported target")

// ErrProviderTimeout indicates that the trend provider did not answer in time.
// The advisor recovers from it locally; Run never returns it.
var ErrProviderTimeout = errors.New("trend provider timeout")

// ErrInvalidCatalog indicates a defect in the rule catalog or baseline profiles.
var ErrInvalidCatalog = errors.New("invalid catalog")

func unsupportedPlatform(p Platform) error {
	return fmt.Errorf("%w: platform %q", ErrUnsupportedTarget, p)
}
