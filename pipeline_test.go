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


package etl2

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/boazelbom-creator/etl2/chunker"
	"github.com/boazelbom-creator/etl2/config"
	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/etl"
	"github.com/boazelbom-creator/etl2/storage"
	badgerstore "github.com/boazelbom-creator/etl2/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteSourceConfig(t *testing.T) config.SourceConfig {
	t.Helper()
	return config.SourceConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "source.db"),
	}
}

func sqliteSinkConfig(t *testing.T) config.SinkConfig {
	t.Helper()
	return config.SinkConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "sink.db"),
	}
}

func TestOpenSource_UnsupportedDriver(t *testing.T) {
	_, err := OpenSource(context.Background(), config.SourceConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUnsupportedDriver)
}

func TestOpenSink_UnsupportedDriver(t *testing.T) {
	_, err := OpenSink(context.Background(), config.SinkConfig{Driver: "redis"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUnsupportedDriver)
}

func TestOpenSource_Badger(t *testing.T) {
	ctx := context.Background()

	source, err := OpenSource(ctx, config.SourceConfig{
		Driver: config.DriverBadger,
		Path:   filepath.Join(t.TempDir(), "badger"),
	})
	require.NoError(t, err)

	require.NoError(t, source.Store().AddPosts(ctx, &core.Post{ID: "p-1", Title: "Hello"}))
	posts, err := source.Store().ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	require.NoError(t, source.Close())
}

func TestOpenSink_BadgerCommitMarker(t *testing.T) {
	ctx := context.Background()

	sink, err := OpenSink(ctx, config.SinkConfig{
		Driver: config.DriverBadger,
		Path:   filepath.Join(t.TempDir(), "badger"),
	})
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Sink().Stage(ctx, &core.Chunk{PostID: "p-1", Text: "text"}))
	require.NoError(t, sink.Sink().Commit(ctx))

	marker, err := sink.CommitMarker(ctx)
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.Equal(t, int64(1), marker.Commits)
	assert.Equal(t, int64(1), marker.Records)
}

func TestOpenSink_SQLiteHasNoCommitMarker(t *testing.T) {
	ctx := context.Background()

	sink, err := OpenSink(ctx, sqliteSinkConfig(t))
	require.NoError(t, err)
	defer sink.Close()

	marker, err := sink.CommitMarker(ctx)
	require.NoError(t, err)
	assert.Nil(t, marker)
}

func TestNewRunner_InvalidChunkSize(t *testing.T) {
	ctx := context.Background()

	source, err := OpenSource(ctx, sqliteSourceConfig(t))
	require.NoError(t, err)
	defer source.Close()

	sink, err := OpenSink(ctx, sqliteSinkConfig(t))
	require.NoError(t, err)
	defer sink.Close()

	cfg := config.DefaultConfig()
	cfg.Processing.ChunkSize = 0

	_, err = NewRunner(source, sink, cfg, io.Discard)
	require.Error(t, err)
}

// End-to-end over real SQLite databases: seed one side, run, read the
// other side back.
func TestPipeline_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()

	source, err := OpenSource(ctx, sqliteSourceConfig(t))
	require.NoError(t, err)
	defer source.Close()

	sink, err := OpenSink(ctx, sqliteSinkConfig(t))
	require.NoError(t, err)
	defer sink.Close()

	ts := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, source.Store().AddPosts(ctx,
		&core.Post{ID: "p-1", Author: "JohnDoe123", Title: "Hello", Body: "Hi there", Timestamp: &ts},
		&core.Post{ID: "p-2", Title: "No comments here"},
	))
	require.NoError(t, source.Store().AddComments(ctx,
		&core.Comment{ID: "c-1", PostID: "p-1", Text: "first answer", Priority: priority(1), TextLength: 5},
		&core.Comment{ID: "c-2", PostID: "p-1", Text: "second answer", Priority: priority(2), TextLength: 10},
	))

	cfg := config.DefaultConfig()
	cfg.Processing.BatchCommitSize = 1

	var progress bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner, err := NewRunner(source, sink, cfg, &progress, etl.WithLogger(logger))
	require.NoError(t, err)

	summary, err := runner.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.PostsRead)
	assert.Equal(t, int64(2), summary.ChunksWritten)
	assert.Equal(t, 0, summary.ChunksFailed)
	assert.Equal(t, int64(2), summary.Commits)

	count, err := sink.Sink().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

// Same pass over the in-memory badger stores, checking the commit marker
// the sink leaves behind.
func TestPipeline_BadgerInMemoryEndToEnd(t *testing.T) {
	ctx := context.Background()

	store, sink, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	defer sink.Close()

	require.NoError(t, store.AddPosts(ctx,
		&core.Post{ID: "p-1", Title: "First", Body: "Body one"},
		&core.Post{ID: "p-2", Title: "Second", Body: "Body two"},
		&core.Post{ID: "p-3", Title: "Third"},
	))
	require.NoError(t, store.AddComments(ctx,
		&core.Comment{ID: "c-1", PostID: "p-1", Text: "a reply", Priority: priority(1), TextLength: 7},
	))

	generator, err := chunker.NewGenerator(700)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner, err := etl.NewRunner(store, sink, generator,
		&etl.Config{BatchSize: 2, ReportInterval: 100}, io.Discard, etl.WithLogger(logger))
	require.NoError(t, err)

	summary, err := runner.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.PostsRead)
	assert.Equal(t, int64(3), summary.ChunksWritten)
	assert.Equal(t, int64(2), summary.Commits)

	count, err := sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	reader, ok := sink.(storage.CommitMarkerReader)
	require.True(t, ok)
	marker, err := reader.CommitMarker(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marker.Commits)
	assert.Equal(t, int64(3), marker.Records)
}

func priority(v int64) *int64 {
	return &v
}
