package storage

import (
	"context"

	"github.com/boazelbom-creator/etl2/core"
)

// RowSource provides read access to the posts and comments that feed a run.
// Implementations must be safe for use by a single run loop; they are not
// required to support concurrent calls.
type RowSource interface {
	// ListPosts retrieves every post in the source, ordered by post ID.
	// A failure here is fatal to the run: there is no partial post list.
	ListPosts(ctx context.Context) ([]*core.Post, error)

	// CommentsForPost retrieves the comments attached to the given post.
	// Backends that can sort server-side return comments ordered by
	// priority ascending with absent priorities last, then text length
	// ascending. Callers must not rely on this and re-sort regardless.
	// A post with no comments yields an empty slice, not an error.
	CommentsForPost(ctx context.Context, postID string) ([]*core.Comment, error)

	// Verify checks that the source is reachable and its schema usable.
	Verify(ctx context.Context) error

	// Close closes the source and releases resources.
	Close() error
}

// SourceStore is a RowSource that also accepts writes. It is implemented by
// backends that keep posts and comments locally, and used by seeding.
type SourceStore interface {
	RowSource

	// AddPosts adds one or more posts to the source.
	// Posts must carry non-empty IDs; adding an existing ID overwrites it.
	AddPosts(ctx context.Context, posts ...*core.Post) error

	// AddComments adds one or more comments to the source.
	// Comments must carry non-empty IDs and post IDs.
	AddComments(ctx context.Context, comments ...*core.Comment) error
}

// CommitMarkerReader is implemented by sinks that keep a durable record of
// their commit history. Callers discover it with a type assertion.
type CommitMarkerReader interface {
	// CommitMarker reports cumulative commits and records written.
	CommitMarker(ctx context.Context) (*core.CommitMarker, error)
}

// ChunkSink receives generated chunks in batches.
//
// Stage buffers a chunk in the open batch. Commit makes the whole open batch
// durable and starts a fresh one. Chunks are never durable before the Commit
// that covers them, and a Commit failure leaves the sink unusable for
// further writes.
type ChunkSink interface {
	// Stage adds a chunk to the open batch. Assigns no ID; IDs are issued
	// at commit time.
	Stage(ctx context.Context, chunk *core.Chunk) error

	// Commit durably writes every staged chunk and opens a fresh batch.
	// Committing with nothing staged is a no-op.
	Commit(ctx context.Context) error

	// Count reports the number of chunks already durable in the sink.
	// Staged but uncommitted chunks are not counted.
	Count(ctx context.Context) (int64, error)

	// Reset removes every committed chunk from the sink.
	Reset(ctx context.Context) error

	// Verify checks that the sink is reachable and its schema usable.
	Verify(ctx context.Context) error

	// Close closes the sink and releases resources. Staged but uncommitted
	// chunks are discarded.
	Close() error
}
