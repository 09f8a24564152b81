package badger

import "fmt"

// Key prefixes for different data types
const (
	postPrefix      = "post"
	commentPrefix   = "postcmt"
	chunkPrefix     = "chunk"
	chunkIDSeq      = "chunkseq"
	commitMarkerKey = "chunks:chkpt"
)

// makePostKey generates a key for a post by ID.
func makePostKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", postPrefix, id))
}

// makePostScanPrefix generates the iteration prefix for all posts.
func makePostScanPrefix() []byte {
	return []byte(postPrefix + ":")
}

// makeCommentKey generates a composite key for a comment under its post.
// Format: prefix:postID:commentID. Post IDs must not contain ':'.
func makeCommentKey(postID, commentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", commentPrefix, postID, commentID))
}

// makeCommentScanPrefix generates the iteration prefix for one post's comments.
func makeCommentScanPrefix(postID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", commentPrefix, postID))
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkPrefix, id))
}

// makeChunkScanPrefix generates the iteration prefix for all chunks.
func makeChunkScanPrefix() []byte {
	return []byte(chunkPrefix + ":")
}

// makeCommitMarkerKey generates the key the sink keeps its commit marker under.
func makeCommitMarkerKey() []byte {
	return []byte(commitMarkerKey)
}
