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

import "errors"

// Domain validation errors
var (
	// ErrInvalidPost indicates a Post failed validation.
	ErrInvalidPost = errors.New("invalid post")

	// ErrInvalidComment indicates a Comment failed validation.
	ErrInvalidComment = errors.New("invalid comment")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyPostID indicates a post identifier is empty.
	ErrEmptyPostID = errors.New("post id cannot be empty")

	// ErrEmptyCommentID indicates a comment identifier is empty.
	ErrEmptyCommentID = errors.New("comment id cannot be empty")

	// ErrEmptyChunkText indicates a chunk has no rendered text.
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")
)
