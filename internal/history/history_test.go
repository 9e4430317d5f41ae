package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestBeginFinishGet(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Begin(ctx, "r1", "my-meme", "single_video"))
	r, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, r.Status)
	assert.False(t, r.CreatedAt.IsZero())

	require.NoError(t, s.Finish(ctx, "r1", StatusOK, "", "", "my-meme_pack.zip", 1500*time.Millisecond))
	r, err = s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, "my-meme_pack.zip", r.Output)
	assert.Equal(t, int64(1500), r.DurationMS)
}

func TestFinishUnknown(t *testing.T) {
	s, _ := openTemp(t)
	err := s.Finish(context.Background(), "missing", StatusFailed, "engine", "boom", "", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Begin(ctx, id, id, "stitch_3_scenes"))
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	two, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestReopenMarksInterrupted(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Begin(ctx, "r1", "m", "single_video"))
	require.NoError(t, s.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	r, err := reopened.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "interrupted by restart", r.Error)
}
