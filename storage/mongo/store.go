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


// Package mongo implements the storage interfaces on MongoDB.
//
// Posts and comments live in their own collections keyed by natural IDs.
// Chunk IDs come from a counters document that doubles as the commit
// marker.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	postsCollection    = "posts"
	commentsCollection = "comments"
	chunksCollection   = "chunks"
	countersCollection = "counters"

	// _id of the counters document holding the chunk allocator and the
	// commit marker.
	chunkCounterID = "chunks"

	disconnectTimeout = 5 * time.Second
)

// Store wraps a MongoDB client and the pipeline database.
// It is shared by PostStore and ChunkSink and closed by the caller.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB, verifies connectivity and ensures the
// supporting indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	store := &Store{client: client, db: client.Database(database)}
	if err := store.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}
	return store, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	comments := s.db.Collection(commentsCollection)
	_, err := comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "post_id", Value: 1}},
	})
	if err != nil {
		return err
	}

	chunks := s.db.Collection(chunksCollection)
	_, err = chunks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "post_id", Value: 1}},
	})
	return err
}

// postDoc is the MongoDB shape of a core.Post. Column names follow the
// upstream collector's schema.
type postDoc struct {
	ID         string     `bson:"_id"`
	Timestamp  *time.Time `bson:"timestamp,omitempty"`
	Author     string     `bson:"author"`
	Title      string     `bson:"title"`
	Body       string     `bson:"post_texts"`
	TextLength int64      `bson:"text_length"`
}

type commentDoc struct {
	ID         string     `bson:"_id"`
	PostID     string     `bson:"post_id"`
	Timestamp  *time.Time `bson:"timestamp,omitempty"`
	Author     string     `bson:"author"`
	Text       string     `bson:"comment_texts"`
	Priority   *int64     `bson:"comment_priority,omitempty"`
	TextLength int64      `bson:"text_length"`
}

type chunkDoc struct {
	ID              int64      `bson:"_id"`
	PostID          string     `bson:"post_id"`
	Timestamp       *time.Time `bson:"timestamp,omitempty"`
	Text            string     `bson:"full_chunk"`
	EngagementScore int64      `bson:"engagement_score"`
	CreatedAt       time.Time  `bson:"created_at"`
}

// counterDoc is the chunk ID allocator plus the commit marker.
type counterDoc struct {
	ID        string    `bson:"_id"`
	NextID    int64     `bson:"next_id"`
	Commits   int64     `bson:"commits"`
	Records   int64     `bson:"records"`
	UpdatedAt time.Time `bson:"updated_at"`
}
