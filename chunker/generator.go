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


package chunker

import (
	"fmt"
	"strings"
	"time"

	"github.com/boazelbom-creator/etl2/core"
)

// SectionDelimiter separates the sections of a rendered chunk. The same
// delimiter also joins the individual texts inside the other-comments
// section.
const SectionDelimiter = "\n\n---\n\n"

const (
	// authorPrefixLen is how many leading characters of the author name
	// appear in the metadata section.
	authorPrefixLen = 5

	// timestampLayout renders post timestamps inside the metadata section.
	timestampLayout = "2006-01-02 15:04:05"
)

// Generator renders one chunk per post. It owns the comment ordering
// policy, the section layout, and the word bound, so a Generator with the
// same chunk size always renders identical chunks for identical inputs.
type Generator struct {
	chunkSize int
}

// NewGenerator creates a Generator that bounds rendered chunks to
// chunkSize words.
func NewGenerator(chunkSize int) (*Generator, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, chunkSize)
	}
	return &Generator{chunkSize: chunkSize}, nil
}

// ChunkSize returns the configured word bound.
func (g *Generator) ChunkSize() int {
	return g.chunkSize
}

// Generate renders the chunk for one post and its comments. Comments may
// arrive in any order; they are re-sorted here by (priority ascending,
// text length ascending, retrieval order) before the first/rest split.
//
// The rendered text always opens with the metadata, title, and question
// sections. The important-answer section appears only when the post has at
// least one comment, and the other-comments section only with two or more.
// Missing field values render as empty strings, never as errors; the only
// error cases are a nil post or one without an identifier.
func (g *Generator) Generate(post *core.Post, comments []*core.Comment) (*core.Chunk, error) {
	if err := core.ValidatePost(post); err != nil {
		return nil, err
	}

	first, rest := SplitComments(OrderComments(comments))

	sections := []string{
		metadataSection(post),
		"Title: " + post.Title,
		"Question (priority 1): " + post.Body,
	}

	if first != nil {
		sections = append(sections, "Important answer (priority 2): "+first.Text)
	}

	if len(rest) > 0 {
		texts := make([]string, len(rest))
		for i, c := range rest {
			texts[i] = c.Text
		}
		sections = append(sections, "Other comments (priority 3): "+strings.Join(texts, SectionDelimiter))
	}

	text := TruncateWords(strings.Join(sections, SectionDelimiter), g.chunkSize)

	return &core.Chunk{
		PostID:          post.ID,
		Timestamp:       post.Timestamp,
		Text:            text,
		EngagementScore: int64(len(comments)),
	}, nil
}

func metadataSection(post *core.Post) string {
	return fmt.Sprintf("metadata: [Post_id: %s | Timestamp: %s | Author: %s]",
		post.ID, formatTimestamp(post.Timestamp), authorPrefix(post.Author))
}

func formatTimestamp(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.Format(timestampLayout)
}

// authorPrefix keeps the first authorPrefixLen characters of the author
// name, counting characters rather than bytes so multi-byte names are
// never cut mid-rune.
func authorPrefix(author string) string {
	runes := []rune(author)
	if len(runes) <= authorPrefixLen {
		return author
	}
	return string(runes[:authorPrefixLen])
}
