package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
	"github.com/bryanwahyu/cyberveli/internal/infra/db/rows"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Save insert/update record metadata. Analysis columns are only written by MarkAnalyzed.
func (r *HistoryRepository) Save(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO history_records
(id, tenant_id, file_name, file_size, content_type, created_at, status, preview, image_key, image_url)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 file_name=VALUES(file_name), file_size=VALUES(file_size), content_type=VALUES(content_type),
 preview=VALUES(preview), image_key=VALUES(image_key), image_url=VALUES(image_url);
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rows.StringOrDash(rec.TenantID), rows.StringOrDash(rec.FileName), rec.FileSize,
		rows.StringOrDash(rec.ContentType), rows.CreatedAtOrNow(rec.CreatedAt), rows.StringOrDash(string(rec.Status)),
		rec.Preview, rec.ImageKey, rec.ImageURL,
	)
	return err
}

// Get by ID + Tenant
func (r *HistoryRepository) Get(ctx context.Context, tenant string, id domain.RecordID) (*domain.Record, error) {
	q := `SELECT ` + rows.Columns + `
FROM history_records
WHERE tenant_id=? AND id=? LIMIT 1;`

	var row rows.Row
	if err := r.db.QueryRowContext(ctx, q, tenant, id).Scan(row.Dest()...); err != nil {
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
WHERE tenant_id=? ORDER BY created_at DESC, id DESC LIMIT ?;`

	rs, err := r.db.QueryContext(ctx, q, tenant, domain.NormalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []*domain.Record
	for rs.Next() {
		var row rows.Row
		if err := rs.Scan(row.Dest()...); err != nil {
			return nil, err
		}
		rec, err := row.Record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rs.Err()
}

// MarkAnalyzed pindahkan status pending -> analyzed
func (r *HistoryRepository) MarkAnalyzed(ctx context.Context, tenant string, id domain.RecordID, a *domain.Analysis, report string, src domain.ReportSource, at time.Time) error {
	vals, err := rows.EncodeAnalysis(a)
	if err != nil {
		return err
	}
	const q = `
UPDATE history_records
SET status = ?,
    label = ?,
    iqa_score = ?,
    probabilities_json = ?,
    filtered_images_json = ?,
    report = ?,
    report_source = ?,
    analyzed_at = ?
WHERE tenant_id = ? AND id = ? AND status = ?;`
	res, err := r.db.ExecContext(ctx, q,
		domain.StatusAnalyzed,
		vals.Label, vals.IQAScore, vals.Probabilities, vals.FilteredImages,
		report, src, at.UTC(),
		tenant, id, domain.StatusPending,
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
	return r.missingOrNotPending(ctx, tenant, id)
}

func (r *HistoryRepository) missingOrNotPending(ctx context.Context, tenant string, id domain.RecordID) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM history_records WHERE tenant_id=? AND id=?`, tenant, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrNotPending
}

func (r *HistoryRepository) Delete(ctx context.Context, tenant string, id domain.RecordID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history_records WHERE tenant_id=? AND id=?`, tenant, id)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM history_records WHERE tenant_id=?`, tenant)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
