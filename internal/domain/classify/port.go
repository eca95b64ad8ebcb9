package classify

import (
	"context"
	"errors"

	"github.com/bryanwahyu/cyberveli/internal/domain/history"
)

// ErrUnavailable covers transport failures, non-2xx answers and bodies that
// cannot be decoded into a Result.
var ErrUnavailable = errors.New("classifier unavailable")

// Result is what the classification backend returns for one image.
type Result struct {
	Label          string
	Probabilities  map[string]float64
	IQAScore       float64
	FilteredImages []history.FilteredImage
}

// Analysis converts the result into the history value object.
func (r *Result) Analysis() *history.Analysis {
	probs := make(map[string]float64, len(r.Probabilities))
	for k, v := range r.Probabilities {
		probs[k] = v
	}
	imgs := append([]history.FilteredImage(nil), r.FilteredImages...)
	history.SortFilteredImages(imgs)
	return &history.Analysis{
		Label:          r.Label,
		Probabilities:  probs,
		IQAScore:       r.IQAScore,
		FilteredImages: imgs,
	}
}

// Classifier port
type Classifier interface {
	Classify(ctx context.Context, fileName string, image []byte) (*Result, error)
}
