package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChunkSink implements storage.ChunkSink on MongoDB.
//
// Staged chunks buffer in memory. Commit allocates an ID block from the
// counters document and inserts the batch with an ordered InsertMany, so
// durability is per document, not per batch.
type ChunkSink struct {
	store  *Store
	staged []*core.Chunk
	failed bool
}

var _ storage.ChunkSink = (*ChunkSink)(nil)
var _ storage.CommitMarkerReader = (*ChunkSink)(nil)

// NewChunkSink creates a new ChunkSink on the given store.
func NewChunkSink(store *Store) *ChunkSink {
	return &ChunkSink{store: store}
}

// Close discards any staged chunks. The client is owned by the caller and
// stays connected.
func (s *ChunkSink) Close() error {
	s.staged = nil
	return nil
}

// Stage buffers the chunk in memory until the next Commit.
func (s *ChunkSink) Stage(ctx context.Context, chunk *core.Chunk) error {
	if s.failed {
		return storage.ErrStorageClosed
	}
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}

	s.staged = append(s.staged, chunk)
	return nil
}

// Commit assigns IDs to the staged chunks, inserts them and advances the
// commit marker. Committing with nothing staged is a no-op. After a
// failed commit the sink refuses further work.
func (s *ChunkSink) Commit(ctx context.Context) error {
	if s.failed {
		return storage.ErrStorageClosed
	}
	if len(s.staged) == 0 {
		return nil
	}

	if err := s.commit(ctx); err != nil {
		s.failed = true
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}

	s.staged = nil
	return nil
}

func (s *ChunkSink) commit(ctx context.Context) error {
	firstID, err := s.allocateIDs(ctx, len(s.staged))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(s.staged))
	for i, chunk := range s.staged {
		chunk.ID = firstID + int64(i)
		chunk.CreatedAt = now
		docs = append(docs, chunkDoc{
			ID:              chunk.ID,
			PostID:          chunk.PostID,
			Timestamp:       chunk.Timestamp,
			Text:            chunk.Text,
			EngagementScore: chunk.EngagementScore,
			CreatedAt:       chunk.CreatedAt,
		})
	}

	if _, err := s.store.db.Collection(chunksCollection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	return s.updateMarker(ctx, now, len(s.staged))
}

// allocateIDs reserves a contiguous block of chunk IDs by incrementing
// the counter document. Returns the first ID of the block; IDs start
// at 1.
func (s *ChunkSink) allocateIDs(ctx context.Context, count int) (int64, error) {
	filter := bson.D{{Key: "_id", Value: chunkCounterID}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "next_id", Value: int64(count)}}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter counterDoc
	err := s.store.db.Collection(countersCollection).
		FindOneAndUpdate(ctx, filter, update, opts).
		Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate chunk IDs: %w", err)
	}

	return counter.NextID - int64(count) + 1, nil
}

// updateMarker advances the commit marker after a successful insert.
func (s *ChunkSink) updateMarker(ctx context.Context, now time.Time, records int) error {
	filter := bson.D{{Key: "_id", Value: chunkCounterID}}
	update := bson.D{
		{Key: "$inc", Value: bson.D{
			{Key: "commits", Value: int64(1)},
			{Key: "records", Value: int64(records)},
		}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now}}},
	}

	_, err := s.store.db.Collection(countersCollection).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update commit marker: %w", err)
	}
	return nil
}

// Count reports the number of committed chunks.
func (s *ChunkSink) Count(ctx context.Context) (int64, error) {
	count, err := s.store.db.Collection(chunksCollection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Reset removes every chunk together with the counter document and
// discards anything staged.
func (s *ChunkSink) Reset(ctx context.Context) error {
	s.staged = nil

	if _, err := s.store.db.Collection(chunksCollection).DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("failed to reset chunks: %w", err)
	}

	filter := bson.D{{Key: "_id", Value: chunkCounterID}}
	if _, err := s.store.db.Collection(countersCollection).DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to reset chunk counter: %w", err)
	}
	return nil
}

// Verify checks connectivity to the server.
func (s *ChunkSink) Verify(ctx context.Context) error {
	if s.failed {
		return storage.ErrStorageClosed
	}
	if err := s.store.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}
	return nil
}

// CommitMarker reads the commit marker from the counters document.
// A missing document yields a zero marker.
func (s *ChunkSink) CommitMarker(ctx context.Context) (*core.CommitMarker, error) {
	filter := bson.D{{Key: "_id", Value: chunkCounterID}}

	var counter counterDoc
	err := s.store.db.Collection(countersCollection).FindOne(ctx, filter).Decode(&counter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &core.CommitMarker{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read commit marker: %w", err)
	}

	return &core.CommitMarker{
		Commits:   counter.Commits,
		Records:   counter.Records,
		UpdatedAt: counter.UpdatedAt,
	}, nil
}
