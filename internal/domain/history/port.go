package history

import (
	"context"
	"time"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Get(ctx context.Context, tenant string, id RecordID) (*Record, error)
	// List returns newest records first.
	List(ctx context.Context, tenant string, limit int) ([]*Record, error)
	// MarkAnalyzed only updates a record that is still pending.
	MarkAnalyzed(ctx context.Context, tenant string, id RecordID, a *Analysis, report string, src ReportSource, at time.Time) error
	Delete(ctx context.Context, tenant string, id RecordID) error
	Clear(ctx context.Context, tenant string) (int64, error)
}

// FailureRepository stores failed remote calls.
type FailureRepository interface {
	Save(ctx context.Context, f *Failure) error
	ListByRecord(ctx context.Context, tenant string, id RecordID, limit int) ([]*Failure, error)
	// DeleteByRecord and DeleteByTenant drop rows that belong to removed records.
	DeleteByRecord(ctx context.Context, tenant string, id RecordID) (int64, error)
	DeleteByTenant(ctx context.Context, tenant string) (int64, error)
}

// ImageStore port (interface untuk penyimpanan gambar)
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// DefaultLimit and MaxLimit bound List.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// NormalizeLimit applies the list bounds.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
