package extraction

import (
	"context"
	"errors"
)

// Extractor pulls a human-readable location name out of free-text
// disaster descriptions.
type Extractor interface {
	ExtractLocation(ctx context.Context, description string) (string, error)
}

// ErrExtractionFailed means no location could be extracted. Callers
// fall through to the heuristic, then to an unresolved outcome.
var ErrExtractionFailed = errors.New("location extraction failed")
