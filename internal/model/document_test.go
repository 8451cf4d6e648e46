package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessingStatusTransitions(t *testing.T) {
	require.True(t, StatusPending.CanTransition(StatusProcessing))
	require.True(t, StatusProcessing.CanTransition(StatusProcessed))
	require.True(t, StatusProcessed.CanTransition(StatusVectorized))
	require.True(t, StatusPending.CanTransition(StatusVectorized))

	// no going backwards
	require.False(t, StatusProcessed.CanTransition(StatusProcessing))
	require.False(t, StatusVectorized.CanTransition(StatusProcessed))

	// failed is reachable from anywhere and absorbing
	for _, s := range []ProcessingStatus{StatusPending, StatusProcessing, StatusProcessed, StatusVectorized} {
		require.True(t, s.CanTransition(StatusFailed), "from %s", s)
	}
	require.False(t, StatusFailed.CanTransition(StatusProcessing))
	require.False(t, StatusFailed.CanTransition(StatusVectorized))

	// vectorized is terminal success
	require.True(t, StatusVectorized.Terminal())
	require.True(t, StatusFailed.Terminal())
	require.False(t, StatusProcessed.Terminal())
}

func TestChunkID(t *testing.T) {
	require.Equal(t, "doc-1_chunk_0", ChunkID("doc-1", 0))
	require.Equal(t, "a/b/doc-9/doc-9_chunk_3.txt", ChunkBlobKey("a", "b", "doc-9", ChunkID("doc-9", 3)))
	require.Equal(t, "a/b/doc-9/metadata.json", MetadataBlobKey("a", "b", "doc-9"))
}
