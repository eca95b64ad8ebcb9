package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
	"github.com/bryanwahyu/cyberveli/internal/infra/db/rows"
)

type FailureRepository struct{ db *sqlx.DB }

func NewFailureRepository(db *sqlx.DB) *FailureRepository { return &FailureRepository{db: db} }

type failureRow struct {
	ID        int64     `db:"id"`
	TenantID  string    `db:"tenant_id"`
	RecordID  string    `db:"record_id"`
	Phase     string    `db:"phase"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO history_failures (tenant_id, record_id, phase, message, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id;`
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	return r.db.QueryRowxContext(ctx, q,
		rows.StringOrDash(f.TenantID), rows.StringOrDash(string(f.RecordID)), rows.StringOrDash(f.Phase),
		msg, rows.CreatedAtOrNow(f.CreatedAt),
	).Scan(&f.ID)
}

func (r *FailureRepository) ListByRecord(ctx context.Context, tenant string, id domain.RecordID, limit int) ([]*domain.Failure, error) {
	const q = `
SELECT id, tenant_id, record_id, phase, message, created_at
FROM history_failures
WHERE tenant_id=$1 AND record_id=$2
ORDER BY created_at DESC, id DESC
LIMIT $3;`
	var list []failureRow
	if err := r.db.SelectContext(ctx, &list, q, tenant, string(id), domain.NormalizeLimit(limit)); err != nil {
		return nil, err
	}
	out := make([]*domain.Failure, 0, len(list))
	for _, fr := range list {
		out = append(out, &domain.Failure{
			ID:        fr.ID,
			TenantID:  fr.TenantID,
			RecordID:  domain.RecordID(fr.RecordID),
			Phase:     fr.Phase,
			Message:   fr.Message,
			CreatedAt: fr.CreatedAt,
		})
	}
	return out, nil
}

func (r *FailureRepository) DeleteByRecord(ctx context.Context, tenant string, id domain.RecordID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history_failures WHERE tenant_id=$1 AND record_id=$2`, tenant, string(id))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *FailureRepository) DeleteByTenant(ctx context.Context, tenant string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history_failures WHERE tenant_id=$1`, tenant)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
