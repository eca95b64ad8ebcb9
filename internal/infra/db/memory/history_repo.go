package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
)

// HistoryRepository is a mutex-guarded, per-tenant record list.
type HistoryRepository struct {
	mu      sync.RWMutex
	records map[string]map[domain.RecordID]*domain.Record
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{records: make(map[string]map[domain.RecordID]*domain.Record)}
}

func (r *HistoryRepository) Save(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, ok := r.records[rec.TenantID]
	if !ok {
		byID = make(map[domain.RecordID]*domain.Record)
		r.records[rec.TenantID] = byID
	}
	byID[rec.ID] = clone(rec)
	return nil
}

func (r *HistoryRepository) Get(_ context.Context, tenant string, id domain.RecordID) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[tenant][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(rec), nil
}

func (r *HistoryRepository) List(_ context.Context, tenant string, limit int) ([]*domain.Record, error) {
	limit = domain.NormalizeLimit(limit)
	r.mu.RLock()
	out := make([]*domain.Record, 0, len(r.records[tenant]))
	for _, rec := range r.records[tenant] {
		out = append(out, clone(rec))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *HistoryRepository) MarkAnalyzed(_ context.Context, tenant string, id domain.RecordID, a *domain.Analysis, report string, src domain.ReportSource, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[tenant][id]
	if !ok {
		return domain.ErrNotFound
	}
	return rec.MarkAnalyzed(cloneAnalysis(a), report, src, at)
}

func (r *HistoryRepository) Delete(_ context.Context, tenant string, id domain.RecordID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[tenant][id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.records[tenant], id)
	return nil
}

func (r *HistoryRepository) Clear(_ context.Context, tenant string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.records[tenant]))
	delete(r.records, tenant)
	return n, nil
}

func clone(rec *domain.Record) *domain.Record {
	cp := *rec
	cp.Analysis = cloneAnalysis(rec.Analysis)
	if rec.AnalyzedAt != nil {
		at := *rec.AnalyzedAt
		cp.AnalyzedAt = &at
	}
	return &cp
}

func cloneAnalysis(a *domain.Analysis) *domain.Analysis {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Probabilities = make(map[string]float64, len(a.Probabilities))
	for k, v := range a.Probabilities {
		cp.Probabilities[k] = v
	}
	cp.FilteredImages = append([]domain.FilteredImage(nil), a.FilteredImages...)
	return &cp
}
