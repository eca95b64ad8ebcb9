package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
	"github.com/bryanwahyu/cyberveli/internal/infra/db/rows"
)

type HistoryRepository struct{ db *sqlx.DB }

func NewHistoryRepository(db *sqlx.DB) *HistoryRepository { return &HistoryRepository{db: db} }

// Save insert/update record metadata
func (r *HistoryRepository) Save(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO history_records
(id, tenant_id, file_name, file_size, content_type, created_at, status, preview, image_key, image_url)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
 file_name = EXCLUDED.file_name,
 file_size = EXCLUDED.file_size,
 content_type = EXCLUDED.content_type,
 preview = EXCLUDED.preview,
 image_key = EXCLUDED.image_key,
 image_url = EXCLUDED.image_url;`

	_, err := r.db.ExecContext(ctx, q,
		string(rec.ID), rows.StringOrDash(rec.TenantID), rows.StringOrDash(rec.FileName), rec.FileSize,
		rows.StringOrDash(rec.ContentType), rows.CreatedAtOrNow(rec.CreatedAt), rows.StringOrDash(string(rec.Status)),
		rec.Preview, rec.ImageKey, rec.ImageURL,
	)
	return err
}

// Get by ID + Tenant
func (r *HistoryRepository) Get(ctx context.Context, tenant string, id domain.RecordID) (*domain.Record, error) {
	q := `SELECT ` + rows.Columns + `
FROM history_records
WHERE tenant_id=$1 AND id=$2
LIMIT 1;`
	var row rows.Row
	if err := r.db.GetContext(ctx, &row, q, tenant, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.Record()
}

// List records per tenant, newest first
func (r *HistoryRepository) List(ctx context.Context, tenant string, limit int) ([]*domain.Record, error) {
	q := `SELECT ` + rows.Columns + `
FROM history_records
WHERE tenant_id=$1 ORDER BY created_at DESC, id DESC
LIMIT $2;`
	var list []rows.Row
	if err := r.db.SelectContext(ctx, &list, q, tenant, domain.NormalizeLimit(limit)); err != nil {
		return nil, err
	}
	out := make([]*domain.Record, 0, len(list))
	for i := range list {
		rec, err := list[i].Record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// MarkAnalyzed update hasil analisis, hanya kalau masih pending
func (r *HistoryRepository) MarkAnalyzed(ctx context.Context, tenant string, id domain.RecordID, a *domain.Analysis, report string, src domain.ReportSource, at time.Time) error {
	vals, err := rows.EncodeAnalysis(a)
	if err != nil {
		return err
	}
	const q = `
UPDATE history_records
SET status = $1,
    label = $2,
    iqa_score = $3,
    probabilities_json = $4,
    filtered_images_json = $5,
    report = $6,
    report_source = $7,
    analyzed_at = $8
WHERE tenant_id = $9 AND id = $10 AND status = $11;`
	res, err := r.db.ExecContext(ctx, q,
		string(domain.StatusAnalyzed),
		vals.Label, vals.IQAScore, vals.Probabilities, vals.FilteredImages,
		report, string(src), at.UTC(),
		tenant, string(id), string(domain.StatusPending),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var status string
	err = r.db.GetContext(ctx, &status, `SELECT status FROM history_records WHERE tenant_id=$1 AND id=$2`, tenant, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrNotPending
}

func (r *HistoryRepository) Delete(ctx context.Context, tenant string, id domain.RecordID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history_records WHERE tenant_id=$1 AND id=$2`, tenant, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *HistoryRepository) Clear(ctx context.Context, tenant string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history_records WHERE tenant_id=$1`, tenant)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
