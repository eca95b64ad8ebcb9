package rows

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
)

func TestRowRecord_PendingHasNoAnalysis(t *testing.T) {
	r := Row{ID: "a", TenantID: "t", Status: "pending", CreatedAt: time.Now()}
	rec, err := r.Record()
	require.NoError(t, err)
	assert.Nil(t, rec.Analysis)
	assert.Nil(t, rec.AnalyzedAt)
}

func TestRowRecord_AnalysisRoundTrip(t *testing.T) {
	in := &domain.Analysis{
		Label:          "UERD",
		IQAScore:       0.7,
		Probabilities:  map[string]float64{"UERD": 0.8, "clean": 0.2},
		FilteredImages: []domain.FilteredImage{{Name: "srm", DataURI: "data:image/png;base64,AA"}},
	}
	vals, err := EncodeAnalysis(in)
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r := Row{
		ID: "a", Status: "analyzed",
		Label:          sql.NullString{String: vals.Label, Valid: true},
		IQAScore:       sql.NullFloat64{Float64: vals.IQAScore, Valid: true},
		Probabilities:  sql.NullString{String: vals.Probabilities, Valid: true},
		FilteredImages: sql.NullString{String: vals.FilteredImages, Valid: true},
		AnalyzedAt:     sql.NullTime{Time: at, Valid: true},
	}
	rec, err := r.Record()
	require.NoError(t, err)
	assert.Equal(t, in, rec.Analysis)
	require.NotNil(t, rec.AnalyzedAt)
	assert.True(t, at.Equal(*rec.AnalyzedAt))
}

func TestEncodeAnalysis_Nil(t *testing.T) {
	_, err := EncodeAnalysis(nil)
	assert.Error(t, err)
}
