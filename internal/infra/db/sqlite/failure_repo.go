package sqlite

import (
	"context"
	"database/sql"
	"strings"

	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
	"github.com/bryanwahyu/cyberveli/internal/infra/db/rows"
)

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO history_failures (tenant_id, record_id, phase, message, created_at) VALUES (?,?,?,?,?)`,
		rows.StringOrDash(f.TenantID), rows.StringOrDash(string(f.RecordID)), rows.StringOrDash(f.Phase),
		msg, rows.CreatedAtOrNow(f.CreatedAt),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
}

func (r *FailureRepository) ListByRecord(ctx context.Context, tenant string, id domain.RecordID, limit int) ([]*domain.Failure, error) {
	rs, err := r.db.QueryContext(ctx, `
SELECT id, tenant_id, record_id, phase, message, created_at
FROM history_failures
WHERE tenant_id=? AND record_id=?
ORDER BY created_at DESC, id DESC
LIMIT ?`, tenant, string(id), domain.NormalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []*domain.Failure
	for rs.Next() {
		var f domain.Failure
		var recordID string
		if err := rs.Scan(&f.ID, &f.TenantID, &recordID, &f.Phase, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.RecordID = domain.RecordID(recordID)
		out = append(out, &f)
	}
	return out, rs.Err()
}

func (r *FailureRepository) DeleteByRecord(ctx context.Context, tenant string, id domain.RecordID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history_failures WHERE tenant_id=? AND record_id=?`, tenant, string(id))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *FailureRepository) DeleteByTenant(ctx context.Context, tenant string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history_failures WHERE tenant_id=?`, tenant)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
