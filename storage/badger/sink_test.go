package badger

import (
	"context"
	"testing"

	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupChunkSink(t *testing.T) (*ChunkSink, *Backend) {
	t.Helper()

	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	sink, err := NewChunkSink(backend)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	return sink, backend
}

func sinkChunk(postID string) *core.Chunk {
	return &core.Chunk{PostID: postID, Text: "chunk text for " + postID}
}

func TestChunkSink_StageAndCommit(t *testing.T) {
	sink, _ := setupChunkSink(t)
	ctx := context.Background()

	chunks := []*core.Chunk{sinkChunk("p-1"), sinkChunk("p-2"), sinkChunk("p-3")}
	for _, chunk := range chunks {
		require.NoError(t, sink.Stage(ctx, chunk))
	}

	// Staged chunks are not durable before the commit
	count, err := sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, sink.Commit(ctx))

	count, err = sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Commit assigned IDs and creation timestamps
	seen := make(map[int64]bool)
	for _, chunk := range chunks {
		assert.Greater(t, chunk.ID, int64(0))
		assert.False(t, seen[chunk.ID], "IDs must be unique")
		seen[chunk.ID] = true
		assert.False(t, chunk.CreatedAt.IsZero())
	}
}

func TestChunkSink_EmptyCommitIsNoop(t *testing.T) {
	sink, _ := setupChunkSink(t)
	ctx := context.Background()

	require.NoError(t, sink.Commit(ctx))

	marker, err := sink.CommitMarker(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), marker.Commits)
	assert.Equal(t, int64(0), marker.Records)
}

func TestChunkSink_CommitMarker(t *testing.T) {
	sink, _ := setupChunkSink(t)
	ctx := context.Background()

	require.NoError(t, sink.Stage(ctx, sinkChunk("p-1")))
	require.NoError(t, sink.Stage(ctx, sinkChunk("p-2")))
	require.NoError(t, sink.Commit(ctx))

	require.NoError(t, sink.Stage(ctx, sinkChunk("p-3")))
	require.NoError(t, sink.Stage(ctx, sinkChunk("p-4")))
	require.NoError(t, sink.Stage(ctx, sinkChunk("p-5")))
	require.NoError(t, sink.Commit(ctx))

	marker, err := sink.CommitMarker(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marker.Commits)
	assert.Equal(t, int64(5), marker.Records)
	assert.False(t, marker.UpdatedAt.IsZero())
}

func TestChunkSink_Reset(t *testing.T) {
	sink, _ := setupChunkSink(t)
	ctx := context.Background()

	require.NoError(t, sink.Stage(ctx, sinkChunk("p-1")))
	require.NoError(t, sink.Stage(ctx, sinkChunk("p-2")))
	require.NoError(t, sink.Commit(ctx))

	require.NoError(t, sink.Reset(ctx))

	count, err := sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	marker, err := sink.CommitMarker(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), marker.Commits)
	assert.Equal(t, int64(0), marker.Records)
}

func TestChunkSink_StagedDiscardedOnClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	sink, err := NewChunkSink(backend)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Stage(ctx, sinkChunk("p-1")))
	require.NoError(t, sink.Close())

	reopened, err := NewChunkSink(backend)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestChunkSink_StageInvalid(t *testing.T) {
	sink, _ := setupChunkSink(t)
	ctx := context.Background()

	err := sink.Stage(ctx, &core.Chunk{PostID: "p-1"})
	assert.ErrorIs(t, err, core.ErrEmptyChunkText)

	err = sink.Stage(ctx, &core.Chunk{Text: "no post"})
	assert.ErrorIs(t, err, core.ErrInvalidChunk)
}

func TestChunkSink_Verify(t *testing.T) {
	sink, backend := setupChunkSink(t)
	ctx := context.Background()

	require.NoError(t, sink.Verify(ctx))

	require.NoError(t, backend.Close())
	assert.ErrorIs(t, sink.Verify(ctx), storage.ErrStorageClosed)
}
