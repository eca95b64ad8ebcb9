package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
)

type FailureRepository struct {
	mu     sync.Mutex
	nextID int64
	items  []*domain.Failure
}

func NewFailureRepository() *FailureRepository { return &FailureRepository{} }

func (r *FailureRepository) Save(_ context.Context, f *domain.Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	cp := *f
	cp.ID = r.nextID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.ID = cp.ID
	r.items = append(r.items, &cp)
	return nil
}

// ListByRecord returns newest failures first.
func (r *FailureRepository) ListByRecord(_ context.Context, tenant string, id domain.RecordID, limit int) ([]*domain.Failure, error) {
	limit = domain.NormalizeLimit(limit)
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Failure
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		f := r.items[i]
		if f.TenantID == tenant && f.RecordID == id {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *FailureRepository) DeleteByRecord(_ context.Context, tenant string, id domain.RecordID) (int64, error) {
	return r.deleteWhere(func(f *domain.Failure) bool { return f.TenantID == tenant && f.RecordID == id }), nil
}

func (r *FailureRepository) DeleteByTenant(_ context.Context, tenant string) (int64, error) {
	return r.deleteWhere(func(f *domain.Failure) bool { return f.TenantID == tenant }), nil
}

func (r *FailureRepository) deleteWhere(match func(*domain.Failure) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	var n int64
	for _, f := range r.items {
		if match(f) {
			n++
			continue
		}
		kept = append(kept, f)
	}
	r.items = kept
	return n
}
