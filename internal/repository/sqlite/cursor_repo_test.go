package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRepo_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "cursors.db")

	r, err := Open(ctx, path)
	require.NoError(t, err)

	_, ok, err := r.Get(ctx, "workflow:release-tests")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "workflow:release-tests", "aaaa"))
	require.NoError(t, r.Set(ctx, "workflow:release-tests", "bbbb"))
	require.NoError(t, r.Close())

	r, err = Open(ctx, path)
	require.NoError(t, err)
	defer r.Close()

	c, ok, err := r.Get(ctx, "workflow:release-tests")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bbbb", c)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}
