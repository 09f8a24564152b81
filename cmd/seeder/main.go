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


// Seeder loads a synthetic posts-and-comments corpus into the configured
// row source for local runs and demos. IDs are derived from content, so
// reseeding the same corpus overwrites itself instead of duplicating.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/boazelbom-creator/etl2"
	"github.com/boazelbom-creator/etl2/config"
	"github.com/boazelbom-creator/etl2/core"
	"github.com/panjf2000/ants/v2"
	"github.com/urfave/cli/v2"
)

var titles = []string{
	"How do I tune batch sizes for bulk inserts?",
	"Weekend photo thread",
	"Best practices for schema migrations",
	"Why does my query plan change overnight?",
	"Show and tell: my home lab",
	"Is WAL mode worth it for small databases?",
	"Looking for reading recommendations",
	"What broke your production this week?",
	"", // some posts arrive untitled
	"Tips for writing readable tests",
	"How to explain indexes to a new hire",
	"Anyone else seeing slow replication?",
	"Favorite keyboard shortcuts",
	"When is denormalization the right call?",
	"Monthly gardening check-in",
}

var sentences = []string{
	"The quick brown fox jumps over the lazy dog.",
	"I ran into this exact problem last spring and never fully solved it.",
	"Batching the writes cut our load time from hours to minutes.",
	"Have you tried turning the cache off and measuring again?",
	"The documentation covers this but only in a footnote.",
	"We moved to smaller transactions and the lock contention disappeared.",
	"My rule of thumb is to measure twice and deploy once.",
	"The index helped reads but made the nightly load noticeably slower.",
	"There is a long thread about this from a couple of years back.",
	"Adding a retry fixed the symptom but not the cause.",
	"The failure only shows up under load, which makes it hard to reproduce.",
	"Start with the defaults and change one knob at a time.",
	"We keep a runbook for exactly this situation.",
	"That tradeoff depends entirely on your read-to-write ratio.",
	"A colleague wrote a small script that checks this automatically.",
	"The fix turned out to be a single missing column in the index.",
	"I would profile it before guessing any further.",
	"Upgrading the driver made the error message actually useful.",
	"The staging environment never shows this because the data is too small.",
	"Splitting the table by month kept the working set in memory.",
	"It works on my machine, which helps nobody.",
	"The answer is in the query planner output if you read it carefully.",
	"We schedule the heavy jobs for the quiet hours and sleep better.",
	"Deleting the stale rows first made the rebuild ten times faster.",
	"Someone should write this up properly; it bites everyone eventually.",
}

var authors = []string{
	"MargaretRiver",
	"jt",
	"dbwrangler42",
	"", // anonymous commenters exist in the wild
	"PriyaK",
	"night_owl_ops",
	"sam.holloway",
	"TheRealElaine",
	"kv",
	"ops-goblin",
}

func main() {
	app := &cli.App{
		Name:  "seeder",
		Usage: "Load a synthetic posts-and-comments corpus into the row source",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.IntFlag{
				Name:  "posts",
				Usage: "Number of posts to generate",
				Value: 200,
			},
			&cli.IntFlag{
				Name:  "comments-max",
				Usage: "Maximum comments per post",
				Value: 6,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent loader workers",
				Value: 4,
			},
		},
		Before: setupLogger,
		Action: seedCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// batch is one loader job: a group of posts plus every comment belonging
// to them. Comments ride with their posts so foreign keys hold no matter
// how jobs interleave.
type batch struct {
	posts    []*core.Post
	comments []*core.Comment
}

const batchPosts = 50

func seedCommand(c *cli.Context) error {
	ctx := context.Background()

	nPosts := c.Int("posts")
	commentsMax := c.Int("comments-max")
	workers := c.Int("workers")
	if nPosts <= 0 {
		return fmt.Errorf("posts must be greater than 0")
	}
	if commentsMax < 0 {
		return fmt.Errorf("comments-max must not be negative")
	}
	if workers <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	source, err := etl2.OpenSource(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to open row source: %w", err)
	}
	defer source.Close()

	if err := source.Store().Verify(ctx); err != nil {
		return fmt.Errorf("source verification failed: %w", err)
	}

	batches := buildCorpus(nPosts, commentsMax)

	pool, err := ants.NewPool(workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	start := time.Now()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	for _, b := range batches {
		b := b
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := loadBatch(ctx, source, b); err != nil {
				setErr(err)
			}
		}); err != nil {
			wg.Done()
			setErr(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return fmt.Errorf("seeding failed: %w", firstErr)
	}

	totalComments := 0
	for _, b := range batches {
		totalComments += len(b.comments)
	}
	fmt.Fprintf(os.Stderr, "Seeded %d posts and %d comments in %v\n",
		nPosts, totalComments, time.Since(start).Round(time.Millisecond))

	return nil
}

func loadBatch(ctx context.Context, source *etl2.Source, b batch) error {
	if err := source.Store().AddPosts(ctx, b.posts...); err != nil {
		return err
	}
	if len(b.comments) == 0 {
		return nil
	}
	return source.Store().AddComments(ctx, b.comments...)
}

// buildCorpus generates a deterministic corpus: index-driven selection
// from the word banks, no randomness, so the same flags always produce
// the same records. The shapes deliberately include the awkward cases a
// run has to survive: untitled posts, empty bodies, missing timestamps,
// anonymous authors, comments without a priority.
func buildCorpus(nPosts, commentsMax int) []batch {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	var batches []batch
	current := batch{}
	for i := 0; i < nPosts; i++ {
		title := titles[i%len(titles)]
		body := postBody(i)
		post := &core.Post{
			ID:         core.IDFromContent(fmt.Sprintf("post|%d|%s", i, title)),
			Author:     authors[i%len(authors)],
			Title:      title,
			Body:       body,
			TextLength: int64(len(body)),
		}
		if i%7 != 3 { // every 7th post has no timestamp
			ts := base.Add(time.Duration(i) * time.Hour)
			post.Timestamp = &ts
		}
		current.posts = append(current.posts, post)

		if commentsMax > 0 {
			count := i % (commentsMax + 1)
			for j := 0; j < count; j++ {
				current.comments = append(current.comments, buildComment(post, i, j, base))
			}
		}

		if len(current.posts) >= batchPosts {
			batches = append(batches, current)
			current = batch{}
		}
	}
	if len(current.posts) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func postBody(i int) string {
	if i%13 == 5 { // sprinkle in empty bodies
		return ""
	}
	n := 1 + i%3
	parts := make([]string, 0, n)
	for k := 0; k < n; k++ {
		parts = append(parts, sentences[(i*5+k)%len(sentences)])
	}
	return strings.Join(parts, " ")
}

func buildComment(post *core.Post, i, j int, base time.Time) *core.Comment {
	text := sentences[(i*3+j*7)%len(sentences)]
	comment := &core.Comment{
		ID:         core.IDFromContent(fmt.Sprintf("comment|%s|%d", post.ID, j)),
		PostID:     post.ID,
		Author:     authors[(i+j+1)%len(authors)],
		Text:       text,
		TextLength: int64(len(text)),
	}
	if (i+j)%5 != 4 { // every 5th comment has no priority
		p := int64(1 + (i+j)%3)
		comment.Priority = &p
	}
	ts := base.Add(time.Duration(i)*time.Hour + time.Duration(j+1)*time.Minute)
	comment.Timestamp = &ts
	return comment
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.String("log-level"))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
