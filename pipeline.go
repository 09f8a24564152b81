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
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/boazelbom-creator/etl2/chunker"
	"github.com/boazelbom-creator/etl2/config"
	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/etl"
	"github.com/boazelbom-creator/etl2/storage"
	"github.com/boazelbom-creator/etl2/storage/badger"
	"github.com/boazelbom-creator/etl2/storage/dynamo"
	"github.com/boazelbom-creator/etl2/storage/mongo"
	"github.com/boazelbom-creator/etl2/storage/sqldb"
)

// Source is an open row source together with the backend resource behind
// it. The read side and the write side of a run are separate resources;
// open each with its own call and close them independently.
type Source struct {
	store  storage.SourceStore
	owner  io.Closer
	logger *slog.Logger
}

// OpenSource opens the row source named by cfg.Driver.
func OpenSource(ctx context.Context, cfg config.SourceConfig) (*Source, error) {
	switch cfg.Driver {
	case config.DriverPostgres, config.DriverSQLite:
		db, err := sqldb.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &Source{store: sqldb.NewPostStore(db), owner: db, logger: slog.Default()}, nil

	case config.DriverBadger:
		backend, err := badger.OpenBackend(cfg.Path, false)
		if err != nil {
			return nil, err
		}
		return &Source{store: badger.NewPostStore(backend), owner: backend, logger: slog.Default()}, nil

	case config.DriverMongo:
		store, err := mongo.Open(ctx, cfg.DSN, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &Source{store: mongo.NewPostStore(store), owner: store, logger: slog.Default()}, nil

	default:
		return nil, fmt.Errorf("%w: source driver %q", storage.ErrUnsupportedDriver, cfg.Driver)
	}
}

// Store returns the underlying post store.
func (s *Source) Store() storage.SourceStore {
	return s.store
}

// Close closes the store, then the backend resource behind it.
func (s *Source) Close() error {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing row source", "err", err)
		return err
	}
	if s.owner != nil {
		if err := s.owner.Close(); err != nil {
			s.logger.Error("error closing source backend", "err", err)
			return err
		}
	}
	return nil
}

// Sink is an open chunk sink together with the backend resource behind it.
type Sink struct {
	sink   storage.ChunkSink
	owner  io.Closer
	logger *slog.Logger
}

// OpenSink opens the chunk sink named by cfg.Driver.
func OpenSink(ctx context.Context, cfg config.SinkConfig) (*Sink, error) {
	switch cfg.Driver {
	case config.DriverPostgres, config.DriverSQLite:
		db, err := sqldb.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &Sink{sink: sqldb.NewChunkSink(db), owner: db, logger: slog.Default()}, nil

	case config.DriverBadger:
		backend, err := badger.OpenBackend(cfg.Path, false)
		if err != nil {
			return nil, err
		}
		sink, err := badger.NewChunkSink(backend)
		if err != nil {
			backend.Close()
			return nil, err
		}
		return &Sink{sink: sink, owner: backend, logger: slog.Default()}, nil

	case config.DriverMongo:
		store, err := mongo.Open(ctx, cfg.DSN, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &Sink{sink: mongo.NewChunkSink(store), owner: store, logger: slog.Default()}, nil

	case config.DriverDynamo:
		sink, err := dynamo.NewChunkSink(dynamo.Config{
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			TableName: cfg.Table,
		})
		if err != nil {
			return nil, err
		}
		return &Sink{sink: sink, logger: slog.Default()}, nil

	default:
		return nil, fmt.Errorf("%w: sink driver %q", storage.ErrUnsupportedDriver, cfg.Driver)
	}
}

// Sink returns the underlying chunk sink.
func (s *Sink) Sink() storage.ChunkSink {
	return s.sink
}

// CommitMarker reports the sink's commit history when the backend keeps
// one; (nil, nil) when it does not.
func (s *Sink) CommitMarker(ctx context.Context) (*core.CommitMarker, error) {
	reader, ok := s.sink.(storage.CommitMarkerReader)
	if !ok {
		return nil, nil
	}
	return reader.CommitMarker(ctx)
}

// Close closes the sink, then the backend resource behind it. Staged but
// uncommitted chunks are discarded.
func (s *Sink) Close() error {
	if err := s.sink.Close(); err != nil {
		s.logger.Error("error closing chunk sink", "err", err)
		return err
	}
	if s.owner != nil {
		if err := s.owner.Close(); err != nil {
			s.logger.Error("error closing sink backend", "err", err)
			return err
		}
	}
	return nil
}

// NewRunner assembles a pipeline run over an open source and sink using
// the processing settings in cfg.
func NewRunner(source *Source, sink *Sink, cfg *config.Config, progress io.Writer, opts ...etl.Option) (*etl.Runner, error) {
	generator, err := chunker.NewGenerator(cfg.Processing.ChunkSize)
	if err != nil {
		return nil, err
	}

	runConfig := &etl.Config{
		BatchSize:      cfg.Processing.BatchCommitSize,
		ReportInterval: cfg.Processing.ReportInterval,
	}
	return etl.NewRunner(source.Store(), sink.Sink(), generator, runConfig, progress, opts...)
}
