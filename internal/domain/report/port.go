package report

import (
	"context"
	"errors"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// Reporter turns a classification into a natural-language report.
type Reporter interface {
	Generate(ctx context.Context, label string, iqaScore float64) (string, error)
}
