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


package core

import "fmt"

// ValidatePost validates a Post according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//
// NOT validated (legitimately empty in real data):
//   - Timestamp (nil when the source column is NULL)
//   - Author, Title, Body (render as empty strings downstream)
func ValidatePost(post *Post) error {
	if post == nil {
		return fmt.Errorf("%w: post is nil", ErrInvalidPost)
	}

	if post.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPost, ErrEmptyPostID)
	}

	return nil
}

// ValidateComment validates a Comment according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - PostID must not be empty
//
// NOT validated:
//   - Priority (nil means "no priority" and sorts last)
//   - Text, Author, Timestamp (legitimately empty/nil)
func ValidateComment(comment *Comment) error {
	if comment == nil {
		return fmt.Errorf("%w: comment is nil", ErrInvalidComment)
	}

	if comment.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidComment, ErrEmptyCommentID)
	}

	if comment.PostID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidComment, ErrEmptyPostID)
	}

	return nil
}

// ValidateChunk validates a Chunk before it is handed to a sink.
//
// Validation rules:
//   - PostID must not be empty
//   - Text must not be empty (a well-formed chunk always carries at least
//     its metadata section)
//
// NOT validated (populated by the sink):
//   - ID (0 until the sink assigns one)
//   - CreatedAt
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.PostID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyPostID)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkText)
	}

	return nil
}
