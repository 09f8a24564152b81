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


package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/boazelbom-creator/etl2/chunker"
	"github.com/boazelbom-creator/etl2/storage"
	"github.com/google/uuid"
)

// Config holds configuration for a pipeline run.
type Config struct {
	// BatchSize is the number of chunks committed per sink batch
	BatchSize int

	// ReportInterval is how often to report progress (number of posts)
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      1000,
		ReportInterval: 100,
	}
}

// Summary reports what a run accomplished.
type Summary struct {
	// RunID uniquely identifies this run in logs.
	RunID string

	// PostsRead is the number of posts listed from the source.
	PostsRead int

	// ChunksFailed is the number of posts skipped because their chunk
	// could not be produced.
	ChunksFailed int

	// ChunksWritten is the number of chunks durably committed to the sink.
	ChunksWritten int64

	// Commits is the number of sink commits performed.
	Commits int64

	// StartedAt is when the run began.
	StartedAt time.Time

	// Duration is how long the run took.
	Duration time.Duration
}

// Runner orchestrates a single pipeline run over all posts in a source.
// Posts are processed strictly in the order the source lists them.
type Runner struct {
	source    storage.RowSource
	generator *chunker.Generator
	writer    *BatchWriter
	config    *Config
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRunner creates a new runner.
// progress: where to write progress output (typically os.Stderr)
func NewRunner(source storage.RowSource, sink storage.ChunkSink, generator *chunker.Generator, config *Config, progress io.Writer, opts ...Option) (*Runner, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if sink == nil {
		return nil, ErrSinkRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	writer, err := NewBatchWriter(sink, config.BatchSize)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		source:    source,
		generator: generator,
		writer:    writer,
		config:    config,
		progress:  progress,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Run executes the pipeline once.
// Every post in the source produces exactly one chunk unless the post is
// skipped for a per-post failure. The returned Summary is populated on
// every path, including failures.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
	}
	defer r.finalize(summary, start)

	r.logger.Info("starting run",
		"run_id", summary.RunID,
		"chunk_size", r.generator.ChunkSize(),
		"batch_size", r.writer.batchSize)

	posts, err := r.source.ListPosts(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list posts: %w", err)
	}
	summary.PostsRead = len(posts)

	if len(posts) == 0 {
		fmt.Fprintf(r.progress, "No posts found in source (0 posts)\n")
		return summary, nil
	}

	fmt.Fprintf(r.progress, "Starting chunk generation for %d posts (batch size: %d)\n",
		len(posts), r.writer.batchSize)

	tracker := NewProgressTracker(r.progress, len(posts), r.config.ReportInterval)
	tracker.Start()

	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return summary, r.abort(ctx, err)
		}

		comments, err := r.source.CommentsForPost(ctx, post.ID)
		if err != nil {
			r.logger.Error("failed to fetch comments, skipping post",
				"post_id", post.ID, "err", err)
			summary.ChunksFailed++
			tracker.Increment(1)
			continue
		}

		chunk, err := r.generator.Generate(post, comments)
		if err != nil {
			r.logger.Error("failed to generate chunk, skipping post",
				"post_id", post.ID, "comments", len(comments), "err", err)
			summary.ChunksFailed++
			tracker.Increment(1)
			continue
		}

		if err := r.writer.Add(ctx, chunk); err != nil {
			return summary, r.abort(ctx, err)
		}
		tracker.Increment(1)
	}

	if err := r.writer.Flush(ctx); err != nil {
		return summary, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Chunk generation complete. Processed %d posts in %v (%.1f posts/sec)\n",
		len(posts), elapsed.Round(time.Second), float64(len(posts))/elapsed.Seconds())

	r.logger.Info("run complete",
		"run_id", summary.RunID,
		"posts", summary.PostsRead,
		"chunks", r.writer.Committed(),
		"failed", summary.ChunksFailed,
		"commits", r.writer.Commits())

	return summary, nil
}

// abort stops a run early. Staged chunks are flushed on a best effort basis
// unless the failure was the commit itself, which is never retried.
func (r *Runner) abort(ctx context.Context, cause error) error {
	if !errors.Is(cause, ErrCommitFailed) {
		if err := r.writer.Flush(context.WithoutCancel(ctx)); err != nil {
			r.logger.Error("failed to flush staged chunks during abort", "err", err)
		}
	}
	return cause
}

func (r *Runner) finalize(summary *Summary, start time.Time) {
	summary.ChunksWritten = r.writer.Committed()
	summary.Commits = r.writer.Commits()
	summary.Duration = time.Since(start)
}
