package report

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/cyberveli/internal/domain/history"
	domain "github.com/bryanwahyu/cyberveli/internal/domain/report"
	"github.com/bryanwahyu/cyberveli/internal/infra/ai/prompt"
)

// ErrEmptyReport is returned by Compose when the reporter answered with no text.
var ErrEmptyReport = errors.New("empty report from reporter")

// Composer produces the report text for a classification. The returned text
// is always usable: when the reporter fails the canned fallback is returned
// together with the reporter error.
type Composer struct {
	Reporter domain.Reporter
	Logger   *zap.Logger
}

func NewComposer(reporter domain.Reporter, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{Reporter: reporter, Logger: logger}
}

// Compose returns the report, where it came from and, for a fallback, why.
func (c *Composer) Compose(ctx context.Context, label string, iqaScore float64) (string, history.ReportSource, error) {
	if c.Reporter == nil {
		return prompt.Fallback(label, iqaScore), history.ReportSourceFallback, nil
	}

	text, err := c.Reporter.Generate(ctx, label, iqaScore)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyReport
	}
	if err == nil {
		return strings.TrimSpace(text), history.ReportSourceLLM, nil
	}

	c.logger().Warn("report generation failed, using fallback",
		zap.String("label", label),
		zap.Float64("iqa_score", iqaScore),
		zap.Error(err),
	)
	return prompt.Fallback(label, iqaScore), history.ReportSourceFallback, err
}

func (c *Composer) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
