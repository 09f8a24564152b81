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


package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/storage"
)

// ChunkSink implements storage.ChunkSink on a SQL database.
//
// The sink keeps one transaction open at a time: Stage inserts into it
// and Commit commits it, so a batch becomes durable as a unit. Chunk IDs
// and created_at are assigned by the database on insert.
type ChunkSink struct {
	db      *DB
	tx      *sql.Tx
	pending int
	failed  bool
}

var _ storage.ChunkSink = (*ChunkSink)(nil)

// NewChunkSink creates a new ChunkSink on the given database handle.
// The first transaction begins lazily on the first Stage call.
func NewChunkSink(db *DB) *ChunkSink {
	return &ChunkSink{db: db}
}

// Close discards any staged chunks by rolling back the open transaction.
// The database handle is owned by the caller and stays open.
func (s *ChunkSink) Close() error {
	s.pending = 0
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Rollback()
}

// Stage inserts the chunk inside the current transaction. The row is not
// visible to readers until Commit. A failed insert leaves the transaction
// open with the earlier chunks still staged; Close rolls it back.
func (s *ChunkSink) Stage(ctx context.Context, chunk *core.Chunk) error {
	if s.failed {
		return storage.ErrStorageClosed
	}
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}

	if s.tx == nil {
		tx, err := s.db.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
		}
		s.tx = tx
	}

	query := s.db.rebind(`
		INSERT INTO chunks (post_id, timestamp, full_chunk, engagement_score)
		VALUES (?, ?, ?, ?)`)

	_, err := s.tx.ExecContext(ctx, query,
		chunk.PostID, nullTime(chunk.Timestamp), chunk.Text, chunk.EngagementScore)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}

	s.pending++
	return nil
}

// Commit makes every staged chunk durable and begins a fresh batch.
// Committing with nothing staged is a no-op. After a failed commit the
// sink refuses further work.
func (s *ChunkSink) Commit(ctx context.Context) error {
	if s.failed {
		return storage.ErrStorageClosed
	}
	if s.tx == nil || s.pending == 0 {
		return nil
	}

	if err := s.tx.Commit(); err != nil {
		s.failed = true
		s.tx = nil
		s.pending = 0
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}

	s.tx = nil
	s.pending = 0
	return nil
}

// Count reports the number of committed chunks. Staged chunks are not
// included.
func (s *ChunkSink) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Reset removes every committed chunk and discards anything staged.
func (s *ChunkSink) Reset(ctx context.Context) error {
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
		s.pending = 0
	}

	if _, err := s.db.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to reset chunks: %w", err)
	}
	return nil
}

// Verify checks connectivity and that the chunks table exists.
func (s *ChunkSink) Verify(ctx context.Context) error {
	if s.failed {
		return storage.ErrStorageClosed
	}
	if err := s.db.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}
	return s.db.verifyTables(ctx, "chunks")
}
