package filestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := New("local", map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	ctx := context.Background()
	key := "agent-1/kb-1/doc-1/doc-1_chunk_0.txt"
	require.NoError(t, SaveBytes(ctx, store, key, []byte("hello chunk")))

	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	data, err := ReadBytes(ctx, store, key)
	require.NoError(t, err)
	require.Equal(t, "hello chunk", string(data))

	ok, err = store.Exists(ctx, "agent-1/kb-1/doc-1/missing.txt")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := New("local", map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	ctx := context.Background()
	require.Error(t, SaveBytes(ctx, store, "../escape.txt", []byte("x")))
	_, err = store.Open(ctx, "a/../../escape.txt")
	require.Error(t, err)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New("ftp", nil)
	require.Error(t, err)
}
