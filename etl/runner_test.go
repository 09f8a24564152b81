package etl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/boazelbom-creator/etl2/chunker"
	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves a fixed post list and per-post comment maps.
type fakeSource struct {
	posts       []*core.Post
	comments    map[string][]*core.Comment
	listErr     error
	commentErrs map[string]error
	closed      bool
}

var _ storage.RowSource = (*fakeSource)(nil)

func (s *fakeSource) ListPosts(_ context.Context) ([]*core.Post, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.posts, nil
}

func (s *fakeSource) CommentsForPost(_ context.Context, postID string) ([]*core.Comment, error) {
	if err := s.commentErrs[postID]; err != nil {
		return nil, err
	}
	return s.comments[postID], nil
}

func (s *fakeSource) Verify(_ context.Context) error { return nil }

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func sourceWithPosts(n int) *fakeSource {
	posts := make([]*core.Post, n)
	for i := range posts {
		posts[i] = &core.Post{ID: fmt.Sprintf("p-%d", i), Title: "Title", Body: "Body"}
	}
	return &fakeSource{
		posts:    posts,
		comments: make(map[string][]*core.Comment),
	}
}

func newTestRunner(t *testing.T, source *fakeSource, sink *fakeSink, config *Config) (*Runner, *bytes.Buffer) {
	t.Helper()

	generator, err := chunker.NewGenerator(700)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner, err := NewRunner(source, sink, generator, config, &buf, WithLogger(logger))
	require.NoError(t, err)

	return runner, &buf
}

func TestNewRunner(t *testing.T) {
	generator, err := chunker.NewGenerator(700)
	require.NoError(t, err)

	t.Run("nil source", func(t *testing.T) {
		_, err := NewRunner(nil, &fakeSink{}, generator, nil, io.Discard)
		assert.ErrorIs(t, err, ErrSourceRequired)
	})

	t.Run("nil sink", func(t *testing.T) {
		_, err := NewRunner(sourceWithPosts(0), nil, generator, nil, io.Discard)
		assert.ErrorIs(t, err, ErrSinkRequired)
	})

	t.Run("nil generator", func(t *testing.T) {
		_, err := NewRunner(sourceWithPosts(0), &fakeSink{}, nil, nil, io.Discard)
		assert.ErrorIs(t, err, ErrGeneratorRequired)
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		r, err := NewRunner(sourceWithPosts(0), &fakeSink{}, generator, nil, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, 1000, r.writer.batchSize)
		assert.Equal(t, 100, r.config.ReportInterval)
	})

	t.Run("invalid batch size", func(t *testing.T) {
		_, err := NewRunner(sourceWithPosts(0), &fakeSink{}, generator, &Config{BatchSize: 0, ReportInterval: 100}, io.Discard)
		assert.ErrorIs(t, err, ErrInvalidBatchSize)
	})
}

func TestRunner_Run(t *testing.T) {
	source := sourceWithPosts(3)
	source.comments["p-0"] = []*core.Comment{
		{ID: "c-1", PostID: "p-0", Text: "first", TextLength: 5},
		{ID: "c-2", PostID: "p-0", Text: "second reply", TextLength: 12},
	}
	sink := &fakeSink{}
	runner, buf := newTestRunner(t, source, sink, nil)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.PostsRead)
	assert.Equal(t, 0, summary.ChunksFailed)
	assert.Equal(t, int64(3), summary.ChunksWritten)
	assert.Equal(t, int64(1), summary.Commits)
	assert.Greater(t, summary.Duration, time.Duration(0))

	require.Equal(t, []int{3}, sink.batchSizes())
	batch := sink.committed[0]
	assert.Equal(t, "p-0", batch[0].PostID)
	assert.Equal(t, "p-1", batch[1].PostID)
	assert.Equal(t, "p-2", batch[2].PostID)
	assert.Equal(t, int64(2), batch[0].EngagementScore)
	assert.Equal(t, int64(0), batch[1].EngagementScore)

	output := buf.String()
	assert.Contains(t, output, "Starting chunk generation for 3 posts")
	assert.Contains(t, output, "3/3")
}

func TestRunner_EmptySource(t *testing.T) {
	sink := &fakeSink{}
	runner, buf := newTestRunner(t, sourceWithPosts(0), sink, nil)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.PostsRead)
	assert.Equal(t, int64(0), summary.Commits)
	assert.Equal(t, 0, sink.commitCalls)
	assert.Contains(t, buf.String(), "No posts found")
}

func TestRunner_SkipsPostOnCommentError(t *testing.T) {
	source := sourceWithPosts(3)
	source.commentErrs = map[string]error{"p-1": errors.New("comment table gone")}
	sink := &fakeSink{}
	runner, _ := newTestRunner(t, source, sink, nil)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.PostsRead)
	assert.Equal(t, 1, summary.ChunksFailed)
	assert.Equal(t, int64(2), summary.ChunksWritten)

	require.Equal(t, []int{2}, sink.batchSizes())
	assert.Equal(t, "p-0", sink.committed[0][0].PostID)
	assert.Equal(t, "p-2", sink.committed[0][1].PostID)
}

func TestRunner_SkipsMalformedPost(t *testing.T) {
	source := sourceWithPosts(2)
	source.posts = append(source.posts, &core.Post{ID: "", Title: "no id"})
	sink := &fakeSink{}
	runner, _ := newTestRunner(t, source, sink, nil)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.PostsRead)
	assert.Equal(t, 1, summary.ChunksFailed)
	assert.Equal(t, int64(2), summary.ChunksWritten)
}

func TestRunner_ListPostsErrorIsFatal(t *testing.T) {
	sourceErr := errors.New("source offline")
	source := &fakeSource{listErr: sourceErr}
	sink := &fakeSink{}
	runner, _ := newTestRunner(t, source, sink, nil)

	summary, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sourceErr)
	assert.Equal(t, int64(0), summary.ChunksWritten)
	assert.Equal(t, 0, sink.commitCalls)
}

func TestRunner_CommitFailureIsFatal(t *testing.T) {
	source := sourceWithPosts(5)
	sink := &fakeSink{commitErr: errors.New("sink offline")}
	runner, _ := newTestRunner(t, source, sink, &Config{BatchSize: 2, ReportInterval: 100})

	summary, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommitFailed)
	// The failed commit is never retried, not even as an abort flush
	assert.Equal(t, 1, sink.commitCalls)
	assert.Equal(t, int64(0), summary.ChunksWritten)
}

func TestRunner_StageFailureFlushesStaged(t *testing.T) {
	source := sourceWithPosts(5)
	sink := &fakeSink{stageFailOn: 3}
	runner, _ := newTestRunner(t, source, sink, &Config{BatchSize: 10, ReportInterval: 100})

	summary, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCommitFailed)

	// The two chunks staged before the failure were committed on the way out
	require.Equal(t, []int{2}, sink.batchSizes())
	assert.Equal(t, int64(2), summary.ChunksWritten)
	assert.Equal(t, int64(1), summary.Commits)
}

func TestRunner_ContextCancellation(t *testing.T) {
	source := sourceWithPosts(3)
	sink := &fakeSink{}
	runner, _ := newTestRunner(t, source, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, sink.commitCalls)
}

func TestRunner_BatchCadence(t *testing.T) {
	source := sourceWithPosts(25)
	sink := &fakeSink{}
	runner, _ := newTestRunner(t, source, sink, &Config{BatchSize: 10, ReportInterval: 100})

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{10, 10, 5}, sink.batchSizes())
	assert.Equal(t, int64(3), summary.Commits)
	assert.Equal(t, int64(25), summary.ChunksWritten)
}

func TestRunner_ProgressReporting(t *testing.T) {
	source := sourceWithPosts(25)
	sink := &fakeSink{}
	runner, buf := newTestRunner(t, source, sink, &Config{BatchSize: 1000, ReportInterval: 10})

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Progress:")
	assert.Contains(t, output, "25/25")
	assert.Contains(t, output, "Chunk generation complete")
}
