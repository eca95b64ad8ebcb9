package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
)

func TestHistoryRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	a := domain.NewPendingRecord("a", "t1", "a.jpeg", 10, "image/jpeg", "data:,", base)
	b := domain.NewPendingRecord("b", "t1", "b.jpeg", 20, "image/jpeg", "data:,", base.Add(time.Minute))
	other := domain.NewPendingRecord("c", "t2", "c.jpeg", 30, "image/jpeg", "", base)
	for _, r := range []*domain.Record{a, b, other} {
		require.NoError(t, repo.Save(ctx, r))
	}

	list, err := repo.List(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.RecordID("b"), list[0].ID, "newest first")

	analysis := &domain.Analysis{Label: "clean", Probabilities: map[string]float64{"clean": 0.9}, IQAScore: 0.8}
	require.NoError(t, repo.MarkAnalyzed(ctx, "t1", "a", analysis, "report", domain.ReportSourceLLM, base))
	assert.ErrorIs(t, repo.MarkAnalyzed(ctx, "t1", "a", analysis, "again", domain.ReportSourceLLM, base), domain.ErrNotPending)
	assert.ErrorIs(t, repo.MarkAnalyzed(ctx, "t1", "zz", analysis, "x", domain.ReportSourceLLM, base), domain.ErrNotFound)

	got, err := repo.Get(ctx, "t1", "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAnalyzed, got.Status)
	assert.Equal(t, "report", got.Report)
	assert.Equal(t, "clean", got.Analysis.Label)

	require.NoError(t, repo.Delete(ctx, "t1", "a"))
	_, err = repo.Get(ctx, "t1", "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "t1", "a"), domain.ErrNotFound)

	n, err := repo.Clear(ctx, "t1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	list, err = repo.List(ctx, "t1", 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = repo.List(ctx, "t2", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1, "clear is per tenant")
}

func TestHistoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository()
	require.NoError(t, repo.Save(ctx, domain.NewPendingRecord("a", "t", "a.jpeg", 1, "image/jpeg", "", time.Now())))

	got, err := repo.Get(ctx, "t", "a")
	require.NoError(t, err)
	got.Status = domain.StatusAnalyzed

	again, err := repo.Get(ctx, "t", "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, again.Status)
}

func TestFailureRepository_ListByRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewFailureRepository()
	require.NoError(t, repo.Save(ctx, &domain.Failure{TenantID: "t", RecordID: "a", Phase: domain.PhaseClassify, Message: "first"}))
	require.NoError(t, repo.Save(ctx, &domain.Failure{TenantID: "t", RecordID: "b", Phase: domain.PhaseClassify, Message: "other"}))
	require.NoError(t, repo.Save(ctx, &domain.Failure{TenantID: "t", RecordID: "a", Phase: domain.PhaseReport, Message: "second"}))

	list, err := repo.ListByRecord(ctx, "t", "a", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)
	assert.Equal(t, "first", list[1].Message)
}

func TestFailureRepository_DeleteByRecordAndTenant(t *testing.T) {
	ctx := context.Background()
	repo := NewFailureRepository()
	require.NoError(t, repo.Save(ctx, &domain.Failure{TenantID: "t1", RecordID: "r1", Phase: domain.PhaseClassify}))
	require.NoError(t, repo.Save(ctx, &domain.Failure{TenantID: "t1", RecordID: "r2", Phase: domain.PhaseClassify}))
	require.NoError(t, repo.Save(ctx, &domain.Failure{TenantID: "t2", RecordID: "r1", Phase: domain.PhaseStore}))

	n, err := repo.DeleteByRecord(ctx, "t1", "r1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.DeleteByTenant(ctx, "t1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err := repo.ListByRecord(ctx, "t2", "r1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
