// Package rows maps history records to the flat column layout shared by the
// SQL backends.
package rows

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
)

// Columns is the select list matching Row.Dest.
const Columns = `id, tenant_id, file_name, file_size, content_type, created_at, status,
       preview, image_key, image_url,
       label, iqa_score, probabilities_json, filtered_images_json,
       report, report_source, analyzed_at`

// Row is one history_records row.
type Row struct {
	ID             string          `db:"id"`
	TenantID       string          `db:"tenant_id"`
	FileName       string          `db:"file_name"`
	FileSize       int64           `db:"file_size"`
	ContentType    string          `db:"content_type"`
	CreatedAt      time.Time       `db:"created_at"`
	Status         string          `db:"status"`
	Preview        sql.NullString  `db:"preview"`
	ImageKey       string          `db:"image_key"`
	ImageURL       string          `db:"image_url"`
	Label          sql.NullString  `db:"label"`
	IQAScore       sql.NullFloat64 `db:"iqa_score"`
	Probabilities  sql.NullString  `db:"probabilities_json"`
	FilteredImages sql.NullString  `db:"filtered_images_json"`
	Report         sql.NullString  `db:"report"`
	ReportSource   sql.NullString  `db:"report_source"`
	AnalyzedAt     sql.NullTime    `db:"analyzed_at"`
}

// Dest returns scan destinations in Columns order.
func (r *Row) Dest() []any {
	return []any{
		&r.ID, &r.TenantID, &r.FileName, &r.FileSize, &r.ContentType, &r.CreatedAt, &r.Status,
		&r.Preview, &r.ImageKey, &r.ImageURL,
		&r.Label, &r.IQAScore, &r.Probabilities, &r.FilteredImages,
		&r.Report, &r.ReportSource, &r.AnalyzedAt,
	}
}

// Record converts the row back into the aggregate.
func (r *Row) Record() (*domain.Record, error) {
	rec := &domain.Record{
		ID:           domain.RecordID(r.ID),
		TenantID:     r.TenantID,
		FileName:     r.FileName,
		FileSize:     r.FileSize,
		ContentType:  r.ContentType,
		CreatedAt:    r.CreatedAt.UTC(),
		Status:       domain.Status(r.Status),
		Preview:      r.Preview.String,
		ImageKey:     r.ImageKey,
		ImageURL:     r.ImageURL,
		Report:       r.Report.String,
		ReportSource: domain.ReportSource(r.ReportSource.String),
	}
	if r.AnalyzedAt.Valid {
		at := r.AnalyzedAt.Time.UTC()
		rec.AnalyzedAt = &at
	}
	if !r.Label.Valid {
		return rec, nil
	}

	a := &domain.Analysis{
		Label:         r.Label.String,
		IQAScore:      r.IQAScore.Float64,
		Probabilities: map[string]float64{},
	}
	if s := strings.TrimSpace(r.Probabilities.String); s != "" {
		if err := json.Unmarshal([]byte(s), &a.Probabilities); err != nil {
			return nil, fmt.Errorf("decoding probabilities of %s: %w", r.ID, err)
		}
	}
	if s := strings.TrimSpace(r.FilteredImages.String); s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &a.FilteredImages); err != nil {
			return nil, fmt.Errorf("decoding filtered images of %s: %w", r.ID, err)
		}
	}
	rec.Analysis = a
	return rec, nil
}

// AnalysisValues are the column values written by MarkAnalyzed.
type AnalysisValues struct {
	Label          string
	IQAScore       float64
	Probabilities  string
	FilteredImages string
}

// EncodeAnalysis flattens an analysis for storage.
func EncodeAnalysis(a *domain.Analysis) (AnalysisValues, error) {
	if a == nil {
		return AnalysisValues{}, fmt.Errorf("analysis is required")
	}
	probs := a.Probabilities
	if probs == nil {
		probs = map[string]float64{}
	}
	pb, err := json.Marshal(probs)
	if err != nil {
		return AnalysisValues{}, fmt.Errorf("encoding probabilities: %w", err)
	}
	imgs := a.FilteredImages
	if imgs == nil {
		imgs = []domain.FilteredImage{}
	}
	ib, err := json.Marshal(imgs)
	if err != nil {
		return AnalysisValues{}, fmt.Errorf("encoding filtered images: %w", err)
	}
	return AnalysisValues{
		Label:          a.Label,
		IQAScore:       a.IQAScore,
		Probabilities:  string(pb),
		FilteredImages: string(ib),
	}, nil
}

// StringOrDash returns "-" when the input is empty/whitespace
func StringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// CreatedAtOrNow keeps zero times out of NOT NULL columns.
func CreatedAtOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
