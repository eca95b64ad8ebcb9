package history

import (
	"sort"
	"time"
)

// RecordID tipe untuk history record
type RecordID string

// Status enum
type Status string

const (
	StatusPending  Status = "pending"
	StatusAnalyzed Status = "analyzed"
)

// ReportSource tells where the report text came from.
type ReportSource string

const (
	ReportSourceLLM      ReportSource = "llm"
	ReportSourceFallback ReportSource = "fallback"
)

// FilteredImage is an auxiliary preview produced by the classifier.
type FilteredImage struct {
	Name    string `json:"name"`
	DataURI string `json:"data_uri"`
}

// Analysis value object
type Analysis struct {
	Label          string             `json:"payload_classification"`
	Probabilities  map[string]float64 `json:"class_probabilities"`
	IQAScore       float64            `json:"iqa_score"`
	FilteredImages []FilteredImage    `json:"filtered_images,omitempty"`
}

// TopClass returns the class with the highest probability. Ties resolve to
// the lexically smallest class name.
func (a *Analysis) TopClass() (string, float64) {
	if a == nil || len(a.Probabilities) == 0 {
		return "", 0
	}
	names := make([]string, 0, len(a.Probabilities))
	for k := range a.Probabilities {
		names = append(names, k)
	}
	sort.Strings(names)

	best, bestP := names[0], a.Probabilities[names[0]]
	for _, n := range names[1:] {
		if p := a.Probabilities[n]; p > bestP {
			best, bestP = n, p
		}
	}
	return best, bestP
}

// ClassNames returns probability keys in a stable order.
func (a *Analysis) ClassNames() []string {
	if a == nil {
		return nil
	}
	names := make([]string, 0, len(a.Probabilities))
	for k := range a.Probabilities {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SortFilteredImages orders filtered previews by name.
func SortFilteredImages(in []FilteredImage) {
	sort.Slice(in, func(i, j int) bool { return in[i].Name < in[j].Name })
}

// Aggregate Root: Record
type Record struct {
	ID           RecordID     `json:"id"`
	TenantID     string       `json:"tenant_id"`
	FileName     string       `json:"file_name"`
	FileSize     int64        `json:"file_size"`
	ContentType  string       `json:"content_type"`
	CreatedAt    time.Time    `json:"created_at"`
	Status       Status       `json:"status"`
	Preview      string       `json:"preview,omitempty"`
	ImageKey     string       `json:"-"`
	ImageURL     string       `json:"image_url,omitempty"`
	Analysis     *Analysis    `json:"analysis,omitempty"`
	Report       string       `json:"report,omitempty"`
	ReportSource ReportSource `json:"report_source,omitempty"`
	AnalyzedAt   *time.Time   `json:"analyzed_at,omitempty"`
}

// NewPendingRecord builds the record created when a file is dropped.
func NewPendingRecord(id RecordID, tenant, fileName string, size int64, contentType, preview string, now time.Time) *Record {
	return &Record{
		ID:          id,
		TenantID:    tenant,
		FileName:    fileName,
		FileSize:    size,
		ContentType: contentType,
		CreatedAt:   now,
		Status:      StatusPending,
		Preview:     preview,
	}
}

// MarkAnalyzed attaches the analysis and report. Only a pending record can
// move to analyzed.
func (r *Record) MarkAnalyzed(a *Analysis, report string, src ReportSource, now time.Time) error {
	if r.Status != StatusPending {
		return ErrNotPending
	}
	r.Status = StatusAnalyzed
	r.Analysis = a
	r.Report = report
	r.ReportSource = src
	at := now
	r.AnalyzedAt = &at
	return nil
}

// Failure is a persisted failed remote call for a record.
type Failure struct {
	ID        int64     `json:"id"`
	TenantID  string    `json:"tenant_id"`
	RecordID  RecordID  `json:"record_id"`
	Phase     string    `json:"phase"` // classify | report | store
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	PhaseClassify = "classify"
	PhaseReport   = "report"
	PhaseStore    = "store"
)
