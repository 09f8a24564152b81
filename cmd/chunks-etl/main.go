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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/boazelbom-creator/etl2"
	"github.com/boazelbom-creator/etl2/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "chunks-etl",
		Usage: "Generate retrieval chunks from posts and their comments",
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
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Generate one chunk per post and write them to the sink",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Clear the chunk sink before running",
					},
				},
			},
			{
				Name:   "verify",
				Usage:  "Check that the source and sink are reachable and usable",
				Action: verifyCommand,
			},
			{
				Name:   "stats",
				Usage:  "Report how many chunks the sink holds",
				Action: statsCommand,
			},
			{
				Name:   "reset",
				Usage:  "Remove every committed chunk from the sink",
				Action: resetCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the deletion",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig resolves and validates the layered configuration. The config
// file's log level applies only when the --log-level flag was left at its
// default.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !c.IsSet("log-level") && cfg.Logging.Level != "" {
		if err := applyLogLevel(cfg.Logging.Level); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	source, err := etl2.OpenSource(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to open row source: %w", err)
	}
	defer source.Close()

	sink, err := etl2.OpenSink(ctx, cfg.Sink)
	if err != nil {
		return fmt.Errorf("failed to open chunk sink: %w", err)
	}
	defer sink.Close()

	if err := source.Store().Verify(ctx); err != nil {
		return fmt.Errorf("source verification failed: %w", err)
	}
	if err := sink.Sink().Verify(ctx); err != nil {
		return fmt.Errorf("sink verification failed: %w", err)
	}

	if c.Bool("reset") {
		if err := sink.Sink().Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset chunk sink: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Chunk sink cleared")
	}

	runner, err := etl2.NewRunner(source, sink, cfg, os.Stderr)
	if err != nil {
		return err
	}

	summary, runErr := runner.Run(ctx)

	fmt.Println()
	if runErr != nil {
		fmt.Println("=== Run Aborted ===")
	} else {
		fmt.Println("=== Run Complete ===")
	}
	fmt.Printf("Run ID:          %s\n", summary.RunID)
	fmt.Printf("Posts processed: %d\n", summary.PostsRead)
	fmt.Printf("Chunks created:  %d\n", summary.ChunksWritten)
	fmt.Printf("Chunks failed:   %d\n", summary.ChunksFailed)
	fmt.Printf("Commits:         %d\n", summary.Commits)
	fmt.Printf("Duration:        %v\n", summary.Duration.Round(time.Millisecond))
	if total, err := sink.Sink().Count(ctx); err == nil {
		fmt.Printf("Total chunks:    %d\n", total)
	}

	if runErr != nil {
		return fmt.Errorf("run failed with %d chunks committed: %w", summary.ChunksWritten, runErr)
	}
	return nil
}

func verifyCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	source, err := etl2.OpenSource(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to open row source: %w", err)
	}
	defer source.Close()

	if err := source.Store().Verify(ctx); err != nil {
		return fmt.Errorf("source verification failed: %w", err)
	}
	fmt.Printf("source ok (%s)\n", cfg.Source.Driver)

	sink, err := etl2.OpenSink(ctx, cfg.Sink)
	if err != nil {
		return fmt.Errorf("failed to open chunk sink: %w", err)
	}
	defer sink.Close()

	if err := sink.Sink().Verify(ctx); err != nil {
		return fmt.Errorf("sink verification failed: %w", err)
	}
	fmt.Printf("sink ok (%s)\n", cfg.Sink.Driver)

	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	sink, err := etl2.OpenSink(ctx, cfg.Sink)
	if err != nil {
		return fmt.Errorf("failed to open chunk sink: %w", err)
	}
	defer sink.Close()

	count, err := sink.Sink().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	fmt.Printf("Chunks:  %d\n", count)

	marker, err := sink.CommitMarker(ctx)
	if err != nil {
		return fmt.Errorf("failed to read commit marker: %w", err)
	}
	if marker != nil {
		fmt.Printf("Commits: %d\n", marker.Commits)
		fmt.Printf("Records: %d\n", marker.Records)
		if !marker.UpdatedAt.IsZero() {
			fmt.Printf("Updated: %s\n", marker.UpdatedAt.Format(time.RFC3339))
		}
	}

	return nil
}

func resetCommand(c *cli.Context) error {
	ctx := context.Background()

	if !c.Bool("yes") {
		return fmt.Errorf("reset removes every committed chunk; pass --yes to confirm")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	sink, err := etl2.OpenSink(ctx, cfg.Sink)
	if err != nil {
		return fmt.Errorf("failed to open chunk sink: %w", err)
	}
	defer sink.Close()

	if err := sink.Sink().Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset chunk sink: %w", err)
	}
	fmt.Println("Chunk sink cleared")

	return nil
}

func setupLogger(c *cli.Context) error {
	return applyLogLevel(c.String("log-level"))
}

// applyLogLevel installs a text handler on stderr at the named level as
// the process default logger.
func applyLogLevel(levelStr string) error {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
