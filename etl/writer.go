package etl

import (
	"context"
	"fmt"

	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/storage"
)

// BatchWriter stages chunks into a sink and commits every batchSize records.
// The final partial batch is committed by Flush, so a run of M chunks with
// batch size B performs ceil(M/B) commits and never an empty one.
//
// BatchWriter is not safe for concurrent use.
type BatchWriter struct {
	sink      storage.ChunkSink
	batchSize int
	pending   int
	committed int64
	commits   int64
}

// NewBatchWriter creates a writer that commits sink batches of batchSize chunks.
func NewBatchWriter(sink storage.ChunkSink, batchSize int) (*BatchWriter, error) {
	if sink == nil {
		return nil, ErrSinkRequired
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}

	return &BatchWriter{
		sink:      sink,
		batchSize: batchSize,
	}, nil
}

// Add stages a chunk and commits the open batch when it reaches batchSize.
// A commit failure is returned wrapped in ErrCommitFailed and must be
// treated as fatal; any other error means the chunk was not staged.
func (w *BatchWriter) Add(ctx context.Context, chunk *core.Chunk) error {
	if err := w.sink.Stage(ctx, chunk); err != nil {
		return fmt.Errorf("failed to stage chunk for post %s: %w", chunk.PostID, err)
	}
	w.pending++

	if w.pending >= w.batchSize {
		return w.commit(ctx)
	}
	return nil
}

// Flush commits the partial batch left at the end of a run.
// Flushing with nothing pending is a no-op.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if w.pending == 0 {
		return nil
	}
	return w.commit(ctx)
}

// Committed returns the number of chunks made durable so far.
func (w *BatchWriter) Committed() int64 {
	return w.committed
}

// Commits returns the number of commits performed so far.
func (w *BatchWriter) Commits() int64 {
	return w.commits
}

// Pending returns the number of chunks staged but not yet committed.
func (w *BatchWriter) Pending() int {
	return w.pending
}

func (w *BatchWriter) commit(ctx context.Context) error {
	if err := w.sink.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	w.committed += int64(w.pending)
	w.commits++
	w.pending = 0
	return nil
}
