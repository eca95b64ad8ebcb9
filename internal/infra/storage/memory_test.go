package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cyberveli/internal/domain/history"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	url, err := s.Put(ctx, "t1/r1/a.jpeg", []byte("abc"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "mem://t1/r1/a.jpeg", url)

	got, err := s.Get(ctx, "t1/r1/a.jpeg")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	require.NoError(t, s.Delete(ctx, "t1/r1/a.jpeg"))
	_, err = s.Get(ctx, "t1/r1/a.jpeg")
	assert.ErrorIs(t, err, history.ErrNotFound)
	assert.Equal(t, 0, s.Len())
}
