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


package storage

import (
	"github.com/boazelbom-creator/etl2/core"
)

// MarshalPost serializes a Post to bytes.
func MarshalPost(post *core.Post) []byte {
	buf := make([]byte, core.PostMUS.Size(*post))
	core.PostMUS.Marshal(*post, buf)
	return buf
}

// UnmarshalPost deserializes a Post from bytes.
func UnmarshalPost(data []byte) (*core.Post, error) {
	post, _, err := core.PostMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// MarshalComment serializes a Comment to bytes.
func MarshalComment(comment *core.Comment) []byte {
	buf := make([]byte, core.CommentMUS.Size(*comment))
	core.CommentMUS.Marshal(*comment, buf)
	return buf
}

// UnmarshalComment deserializes a Comment from bytes.
func UnmarshalComment(data []byte) (*core.Comment, error) {
	comment, _, err := core.CommentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalCommitMarker serializes a CommitMarker to bytes.
func MarshalCommitMarker(marker *core.CommitMarker) []byte {
	buf := make([]byte, core.CommitMarkerMUS.Size(*marker))
	core.CommitMarkerMUS.Marshal(*marker, buf)
	return buf
}

// UnmarshalCommitMarker deserializes a CommitMarker from bytes.
func UnmarshalCommitMarker(data []byte) (*core.CommitMarker, error) {
	marker, _, err := core.CommitMarkerMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &marker, nil
}
