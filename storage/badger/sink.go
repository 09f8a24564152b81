// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/storage"
	"github.com/dgraph-io/badger/v4"
)

// ChunkSink implements storage.ChunkSink for BadgerDB.
// Staged chunks are buffered in memory; Commit writes the whole batch and
// the updated commit marker in a single transaction.
type ChunkSink struct {
	backend *Backend
	idSeq   *badger.Sequence
	staged  []*core.Chunk
	failed  bool
}

var _ storage.ChunkSink = (*ChunkSink)(nil)
var _ storage.CommitMarkerReader = (*ChunkSink)(nil)

// NewChunkSink creates a new ChunkSink on the given backend.
func NewChunkSink(backend *Backend) (*ChunkSink, error) {
	idSeq, err := backend.GetSequence(chunkIDSeq)
	if err != nil {
		return nil, err
	}

	return &ChunkSink{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence. Staged but uncommitted chunks are discarded.
func (s *ChunkSink) Close() error {
	s.staged = nil
	return s.idSeq.Release()
}

// Stage buffers a chunk for the next Commit.
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

// Commit writes every staged chunk and the updated commit marker in one
// transaction. Chunk IDs are assigned from the sequence here. A failure
// permanently disables the sink.
func (s *ChunkSink) Commit(ctx context.Context) error {
	if s.failed {
		return storage.ErrStorageClosed
	}
	if len(s.staged) == 0 {
		return nil
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range s.staged {
			nextID, err := s.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = s.idSeq.Next()
				if err != nil {
					return err
				}
			}
			chunk.ID = int64(nextID)
			chunk.CreatedAt = time.Now().UTC()

			key := makeChunkKey(chunk.ID)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}

		marker, err := readCommitMarker(tx)
		if err != nil {
			return err
		}
		marker.Commits++
		marker.Records += int64(len(s.staged))
		marker.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeCommitMarkerKey(), storage.MarshalCommitMarker(marker)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
	if err != nil {
		s.failed = true
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}

	s.staged = nil
	return nil
}

// Count reports the number of committed chunks by scanning the chunk keyspace.
func (s *ChunkSink) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkScanPrefix()
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Reset deletes every committed chunk and the commit marker.
// The ID sequence is not rewound; later runs continue with higher IDs.
func (s *ChunkSink) Reset(ctx context.Context) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkScanPrefix()
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		if err := tx.Delete(makeCommitMarkerKey()); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Verify checks that the backend is open and the sink is still usable.
func (s *ChunkSink) Verify(ctx context.Context) error {
	if s.failed || s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// CommitMarker reports the sink's cumulative commit history.
// A sink that has never committed returns a zero marker.
func (s *ChunkSink) CommitMarker(ctx context.Context) (*core.CommitMarker, error) {
	var marker *core.CommitMarker
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var readErr error
		marker, readErr = readCommitMarker(tx)
		return readErr
	}, false)
	return marker, err
}

// readCommitMarker loads the marker inside tx, returning a zero marker when
// none has been written yet.
func readCommitMarker(tx *badger.Txn) (*core.CommitMarker, error) {
	item, err := tx.Get(makeCommitMarkerKey())
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return &core.CommitMarker{}, nil
		}
		return nil, err
	}

	var marker *core.CommitMarker
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		marker, unmarshalErr = storage.UnmarshalCommitMarker(val)
		return unmarshalErr
	})
	return marker, err
}
