package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/storage"
)

// PostStore implements storage.SourceStore on a SQL database.
type PostStore struct {
	db *DB
}

var _ storage.SourceStore = (*PostStore)(nil)

// NewPostStore creates a new PostStore on the given database handle.
func NewPostStore(db *DB) *PostStore {
	return &PostStore{db: db}
}

// Close releases store resources. The database handle is owned by the
// caller and stays open.
func (s *PostStore) Close() error {
	return nil
}

// AddPosts adds one or more posts in a single transaction.
// Adding a post with an existing ID overwrites it.
func (s *PostStore) AddPosts(ctx context.Context, posts ...*core.Post) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	query := s.db.rebind(`
		INSERT INTO posts (post_id, timestamp, author, title, post_texts, text_length)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (post_id) DO UPDATE SET
			timestamp = excluded.timestamp,
			author = excluded.author,
			title = excluded.title,
			post_texts = excluded.post_texts,
			text_length = excluded.text_length`)

	for _, post := range posts {
		if err := core.ValidatePost(post); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, query,
			post.ID, nullTime(post.Timestamp), post.Author, post.Title, post.Body, post.TextLength)
		if err != nil {
			return fmt.Errorf("failed to insert post %s: %w", post.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

// AddComments adds one or more comments in a single transaction.
// The referenced posts must already exist.
func (s *PostStore) AddComments(ctx context.Context, comments ...*core.Comment) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	query := s.db.rebind(`
		INSERT INTO comments (comment_id, post_id, timestamp, author, comment_texts, comment_priority, text_length)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (comment_id) DO UPDATE SET
			post_id = excluded.post_id,
			timestamp = excluded.timestamp,
			author = excluded.author,
			comment_texts = excluded.comment_texts,
			comment_priority = excluded.comment_priority,
			text_length = excluded.text_length`)

	for _, comment := range comments {
		if err := core.ValidateComment(comment); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, query,
			comment.ID, comment.PostID, nullTime(comment.Timestamp), comment.Author,
			comment.Text, nullInt64(comment.Priority), comment.TextLength)
		if err != nil {
			return fmt.Errorf("failed to insert comment %s: %w", comment.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

// ListPosts retrieves every post, ordered by post ID.
func (s *PostStore) ListPosts(ctx context.Context) ([]*core.Post, error) {
	query := `
		SELECT post_id, timestamp, author, title, post_texts, text_length
		FROM posts
		ORDER BY post_id`

	rows, err := s.db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []*core.Post
	for rows.Next() {
		var post core.Post
		var ts sql.NullTime
		if err := rows.Scan(&post.ID, &ts, &post.Author, &post.Title, &post.Body, &post.TextLength); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		post.Timestamp = timePtr(ts)
		posts = append(posts, &post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return posts, nil
}

// CommentsForPost retrieves the comments attached to the given post,
// ordered by priority and text length. Callers re-sort by priority
// themselves, so the ORDER BY is cosmetic.
func (s *PostStore) CommentsForPost(ctx context.Context, postID string) ([]*core.Comment, error) {
	query := s.db.rebind(`
		SELECT comment_id, post_id, timestamp, author, comment_texts, comment_priority, text_length
		FROM comments
		WHERE post_id = ?
		ORDER BY comment_priority ASC NULLS LAST, text_length ASC`)

	rows, err := s.db.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments for post %s: %w", postID, err)
	}
	defer rows.Close()

	var comments []*core.Comment
	for rows.Next() {
		var comment core.Comment
		var ts sql.NullTime
		var priority sql.NullInt64
		err := rows.Scan(&comment.ID, &comment.PostID, &ts, &comment.Author,
			&comment.Text, &priority, &comment.TextLength)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comment.Timestamp = timePtr(ts)
		comment.Priority = int64Ptr(priority)
		comments = append(comments, &comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}
	return comments, nil
}

// Verify checks connectivity and that the source tables exist.
func (s *PostStore) Verify(ctx context.Context) error {
	if err := s.db.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}
	return s.db.verifyTables(ctx, "posts", "comments")
}
