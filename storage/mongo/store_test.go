package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/boazelbom-creator/etl2/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests; they need a reachable MongoDB and are skipped when
// MONGO_URI is unset.
func setupStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping MongoDB integration tests")
	}

	ctx := context.Background()
	store, err := Open(ctx, uri, "etl2_test")
	require.NoError(t, err)
	require.NoError(t, store.db.Drop(ctx))

	t.Cleanup(func() {
		store.db.Drop(context.Background())
		store.Close()
	})
	return store
}

func priority(v int64) *int64 {
	return &v
}

func TestPostStore_AddAndListPosts(t *testing.T) {
	store := setupStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	ts := time.Date(2026, 1, 13, 10, 30, 0, 0, time.UTC)
	require.NoError(t, posts.AddPosts(ctx,
		&core.Post{ID: "p-3", Author: "Carol", Title: "Third"},
		&core.Post{ID: "p-1", Author: "Alice", Title: "First", Timestamp: &ts, Body: "Hi there", TextLength: 8},
		&core.Post{ID: "p-2", Author: "Bob", Title: "Second"},
	))

	listed, err := posts.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	assert.Equal(t, "p-1", listed[0].ID)
	assert.Equal(t, "p-2", listed[1].ID)
	assert.Equal(t, "p-3", listed[2].ID)

	assert.Equal(t, "Alice", listed[0].Author)
	assert.Equal(t, "Hi there", listed[0].Body)
	require.NotNil(t, listed[0].Timestamp)
	assert.True(t, listed[0].Timestamp.Equal(ts))
	assert.Nil(t, listed[1].Timestamp)
}

func TestPostStore_AddPostOverwrites(t *testing.T) {
	store := setupStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	require.NoError(t, posts.AddPosts(ctx, &core.Post{ID: "p-1", Title: "old"}))
	require.NoError(t, posts.AddPosts(ctx, &core.Post{ID: "p-1", Title: "new"}))

	listed, err := posts.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "new", listed[0].Title)
}

func TestPostStore_CommentsForPost(t *testing.T) {
	store := setupStore(t)
	posts := NewPostStore(store)
	ctx := context.Background()

	require.NoError(t, posts.AddComments(ctx,
		&core.Comment{ID: "c-1", PostID: "p-1", Author: "Dan", Text: "First answer", Priority: priority(1), TextLength: 12},
		&core.Comment{ID: "c-2", PostID: "p-1", Text: "No priority"},
		&core.Comment{ID: "c-3", PostID: "p-2", Text: "Elsewhere", Priority: priority(1)},
	))

	comments, err := posts.CommentsForPost(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)

	ids := []string{comments[0].ID, comments[1].ID}
	assert.ElementsMatch(t, []string{"c-1", "c-2"}, ids)

	for _, comment := range comments {
		assert.Equal(t, "p-1", comment.PostID)
		if comment.ID == "c-1" {
			require.NotNil(t, comment.Priority)
			assert.Equal(t, int64(1), *comment.Priority)
		} else {
			assert.Nil(t, comment.Priority)
		}
	}
}

func TestChunkSink_StageAndCommit(t *testing.T) {
	store := setupStore(t)
	sink := NewChunkSink(store)
	ctx := context.Background()

	ts := time.Date(2026, 1, 13, 10, 30, 0, 0, time.UTC)
	chunks := []*core.Chunk{
		{PostID: "p-1", Timestamp: &ts, Text: "first chunk", EngagementScore: 3},
		{PostID: "p-2", Text: "second chunk"},
	}
	for _, chunk := range chunks {
		require.NoError(t, sink.Stage(ctx, chunk))
	}
	require.NoError(t, sink.Commit(ctx))

	assert.Equal(t, int64(1), chunks[0].ID)
	assert.Equal(t, int64(2), chunks[1].ID)
	assert.False(t, chunks[0].CreatedAt.IsZero())

	count, err := sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestChunkSink_IDsContinueAcrossCommits(t *testing.T) {
	store := setupStore(t)
	sink := NewChunkSink(store)
	ctx := context.Background()

	first := &core.Chunk{PostID: "p-1", Text: "one"}
	require.NoError(t, sink.Stage(ctx, first))
	require.NoError(t, sink.Commit(ctx))

	second := &core.Chunk{PostID: "p-2", Text: "two"}
	require.NoError(t, sink.Stage(ctx, second))
	require.NoError(t, sink.Commit(ctx))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestChunkSink_CommitMarker(t *testing.T) {
	store := setupStore(t)
	sink := NewChunkSink(store)
	ctx := context.Background()

	marker, err := sink.CommitMarker(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), marker.Commits)

	require.NoError(t, sink.Stage(ctx, &core.Chunk{PostID: "p-1", Text: "one"}))
	require.NoError(t, sink.Stage(ctx, &core.Chunk{PostID: "p-2", Text: "two"}))
	require.NoError(t, sink.Commit(ctx))
	require.NoError(t, sink.Stage(ctx, &core.Chunk{PostID: "p-3", Text: "three"}))
	require.NoError(t, sink.Commit(ctx))

	marker, err = sink.CommitMarker(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marker.Commits)
	assert.Equal(t, int64(3), marker.Records)
	assert.False(t, marker.UpdatedAt.IsZero())
}

func TestChunkSink_Reset(t *testing.T) {
	store := setupStore(t)
	sink := NewChunkSink(store)
	ctx := context.Background()

	require.NoError(t, sink.Stage(ctx, &core.Chunk{PostID: "p-1", Text: "one"}))
	require.NoError(t, sink.Commit(ctx))

	require.NoError(t, sink.Reset(ctx))

	count, err := sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// The counter was removed, so IDs restart at 1
	fresh := &core.Chunk{PostID: "p-2", Text: "two"}
	require.NoError(t, sink.Stage(ctx, fresh))
	require.NoError(t, sink.Commit(ctx))
	assert.Equal(t, int64(1), fresh.ID)
}

func TestChunkSink_StageInvalid(t *testing.T) {
	store := setupStore(t)
	sink := NewChunkSink(store)
	ctx := context.Background()

	err := sink.Stage(ctx, &core.Chunk{PostID: "p-1"})
	assert.ErrorIs(t, err, core.ErrEmptyChunkText)

	err = sink.Stage(ctx, nil)
	assert.ErrorIs(t, err, core.ErrInvalidChunk)
}
