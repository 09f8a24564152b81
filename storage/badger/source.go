package badger

import (
	"context"
	"fmt"

	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/storage"
	"github.com/dgraph-io/badger/v4"
)

// PostStore implements storage.SourceStore for BadgerDB.
// Posts and comments are stored under prefixed keys; iteration order is
// lexicographic by ID.
type PostStore struct {
	backend *Backend
}

var _ storage.SourceStore = (*PostStore)(nil)

// NewPostStore creates a new PostStore on the given backend.
func NewPostStore(backend *Backend) *PostStore {
	return &PostStore{backend: backend}
}

// Close releases store resources. The backend is owned by the caller and
// stays open.
func (s *PostStore) Close() error {
	return nil
}

// AddPosts adds one or more posts to storage.
// Adding a post with an existing ID overwrites it.
func (s *PostStore) AddPosts(ctx context.Context, posts ...*core.Post) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, post := range posts {
			if err := core.ValidatePost(post); err != nil {
				return err
			}
			key := makePostKey(post.ID)
			if err := tx.Set(key, storage.MarshalPost(post)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// AddComments adds one or more comments to storage.
func (s *PostStore) AddComments(ctx context.Context, comments ...*core.Comment) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, comment := range comments {
			if err := core.ValidateComment(comment); err != nil {
				return err
			}
			key := makeCommentKey(comment.PostID, comment.ID)
			if err := tx.Set(key, storage.MarshalComment(comment)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListPosts retrieves every post, ordered by post ID.
func (s *PostStore) ListPosts(ctx context.Context) ([]*core.Post, error) {
	var posts []*core.Post
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePostScanPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var post *core.Post
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				post, unmarshalErr = storage.UnmarshalPost(val)
				return unmarshalErr
			})
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			posts = append(posts, post)
		}
		return nil
	}, false)
	return posts, err
}

// CommentsForPost retrieves the comments attached to the given post,
// ordered by comment ID. Callers re-sort by priority themselves.
func (s *PostStore) CommentsForPost(ctx context.Context, postID string) ([]*core.Comment, error) {
	var comments []*core.Comment
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCommentScanPrefix(postID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var comment *core.Comment
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				comment, unmarshalErr = storage.UnmarshalComment(val)
				return unmarshalErr
			})
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			comments = append(comments, comment)
		}
		return nil
	}, false)
	return comments, err
}

// Verify checks that the backend is open.
func (s *PostStore) Verify(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}
