package mongo

import (
	"context"
	"fmt"

	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostStore implements storage.SourceStore on MongoDB.
type PostStore struct {
	store *Store
}

var _ storage.SourceStore = (*PostStore)(nil)

// NewPostStore creates a new PostStore on the given store.
func NewPostStore(store *Store) *PostStore {
	return &PostStore{store: store}
}

// Close releases store resources. The client is owned by the caller and
// stays connected.
func (s *PostStore) Close() error {
	return nil
}

// AddPosts upserts one or more posts.
// Adding a post with an existing ID overwrites it.
func (s *PostStore) AddPosts(ctx context.Context, posts ...*core.Post) error {
	models := make([]mongo.WriteModel, 0, len(posts))
	for _, post := range posts {
		if err := core.ValidatePost(post); err != nil {
			return err
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: post.ID}}).
			SetReplacement(docFromPost(post)).
			SetUpsert(true))
	}
	if len(models) == 0 {
		return nil
	}

	if _, err := s.store.db.Collection(postsCollection).BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("failed to write posts: %w", err)
	}
	return nil
}

// AddComments upserts one or more comments.
func (s *PostStore) AddComments(ctx context.Context, comments ...*core.Comment) error {
	models := make([]mongo.WriteModel, 0, len(comments))
	for _, comment := range comments {
		if err := core.ValidateComment(comment); err != nil {
			return err
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: comment.ID}}).
			SetReplacement(docFromComment(comment)).
			SetUpsert(true))
	}
	if len(models) == 0 {
		return nil
	}

	if _, err := s.store.db.Collection(commentsCollection).BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("failed to write comments: %w", err)
	}
	return nil
}

// ListPosts retrieves every post, ordered by post ID.
func (s *PostStore) ListPosts(ctx context.Context) ([]*core.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.store.db.Collection(postsCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}

	var docs []postDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}

	posts := make([]*core.Post, 0, len(docs))
	for _, doc := range docs {
		posts = append(posts, postFromDoc(doc))
	}
	return posts, nil
}

// CommentsForPost retrieves the comments attached to the given post,
// ordered by priority and text length. Callers re-sort by priority
// themselves, so the server-side sort is cosmetic.
func (s *PostStore) CommentsForPost(ctx context.Context, postID string) ([]*core.Comment, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "comment_priority", Value: 1},
		{Key: "text_length", Value: 1},
	})
	filter := bson.D{{Key: "post_id", Value: postID}}

	cursor, err := s.store.db.Collection(commentsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments for post %s: %w", postID, err)
	}

	var docs []commentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}

	comments := make([]*core.Comment, 0, len(docs))
	for _, doc := range docs {
		comments = append(comments, commentFromDoc(doc))
	}
	return comments, nil
}

// Verify checks connectivity to the server.
func (s *PostStore) Verify(ctx context.Context) error {
	if err := s.store.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}
	return nil
}

func docFromPost(post *core.Post) postDoc {
	return postDoc{
		ID:         post.ID,
		Timestamp:  post.Timestamp,
		Author:     post.Author,
		Title:      post.Title,
		Body:       post.Body,
		TextLength: post.TextLength,
	}
}

func postFromDoc(doc postDoc) *core.Post {
	return &core.Post{
		ID:         doc.ID,
		Timestamp:  doc.Timestamp,
		Author:     doc.Author,
		Title:      doc.Title,
		Body:       doc.Body,
		TextLength: doc.TextLength,
	}
}

func docFromComment(comment *core.Comment) commentDoc {
	return commentDoc{
		ID:         comment.ID,
		PostID:     comment.PostID,
		Timestamp:  comment.Timestamp,
		Author:     comment.Author,
		Text:       comment.Text,
		Priority:   comment.Priority,
		TextLength: comment.TextLength,
	}
}

func commentFromDoc(doc commentDoc) *core.Comment {
	return &core.Comment{
		ID:         doc.ID,
		PostID:     doc.PostID,
		Timestamp:  doc.Timestamp,
		Author:     doc.Author,
		Text:       doc.Text,
		Priority:   doc.Priority,
		TextLength: doc.TextLength,
	}
}
