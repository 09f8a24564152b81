package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// IDFromContent generates a deterministic record ID from text content using
// BLAKE2b hashing. Identical content always produces the identical ID, which
// keeps synthetic corpora stable across reseeding runs.
func IDFromContent(text string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Post is one social-media post as read from the row source.
// Posts are read-only snapshots for the duration of a run; the pipeline
// never mutates or writes them back.
type Post struct {
	ID         string
	Timestamp  *time.Time // nil when the source column is NULL
	Author     string
	Title      string
	Body       string
	TextLength int64 // precomputed by the upstream collector; unused by chunking
}

// Comment belongs to exactly one Post via PostID.
type Comment struct {
	ID         string
	PostID     string
	Timestamp  *time.Time
	Author     string
	Text       string
	Priority   *int64 // lower = more important; nil sorts after every explicit priority
	TextLength int64  // tie-break within equal priorities
}

// Chunk is the pipeline's sole output entity: one formatted, size-bounded
// text record per post, destined for retrieval indexing.
// ID and CreatedAt are assigned by the chunk sink, never by the pipeline;
// ID stays 0 until a sink has accepted the record.
type Chunk struct {
	ID              int64
	PostID          string
	Timestamp       *time.Time // copied verbatim from the source post, including nil
	Text            string
	EngagementScore int64 // total comment count, independent of truncation
	CreatedAt       time.Time
}

// CommitMarker records the durability high-water mark of a chunk sink:
// how many batch commits have completed and how many records they covered.
type CommitMarker struct {
	Commits   int64
	Records   int64
	UpdatedAt time.Time
}
