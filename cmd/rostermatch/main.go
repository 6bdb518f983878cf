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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "rostermatch",
		Usage: "Match free-text queries against a roster of people",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "roster",
				Aliases: []string{"r"},
				Usage:   "Path to the roster CSV file",
				Value:   "data/roster.csv",
				EnvVars: []string{"ROSTERMATCH_ROSTER"},
			},
			&cli.StringFlag{
				Name:    "cache-dir",
				Usage:   "Directory holding the embedding cache",
				Value:   "data/cache",
				EnvVars: []string{"ROSTERMATCH_CACHE_DIR"},
			},
			&cli.StringFlag{
				Name:    "cache-backend",
				Usage:   "Embedding cache backend (file, badger)",
				Value:   backendFile,
				EnvVars: []string{"ROSTERMATCH_CACHE_BACKEND"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"ROSTERMATCH_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "all-minilm",
				EnvVars: []string{"ROSTERMATCH_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for the embedding service",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of roster entries per embedding request",
				Value: 64,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of embedding requests in flight",
				Value: 4,
			},
			&cli.StringFlag{
				Name:  "fingerprint",
				Usage: "How roster changes are detected (mtime, content)",
				Value: "mtime",
			},
			&cli.StringFlag{
				Name:  "dedup",
				Usage: "Which row survives when emails repeat (first, last)",
				Value: "first",
			},
			&cli.BoolFlag{
				Name:  "distinct-blank-emails",
				Usage: "Keep every row with a blank email instead of collapsing them",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "match",
				Usage:  "Print the roster entries closest to a query",
				Action: matchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Free-text query",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "top-n",
						Aliases: []string{"n"},
						Usage:   "Number of matches to print",
						Value:   5,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP matching API",
				Action: serveCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8000",
						EnvVars: []string{"ROSTERMATCH_ADDR"},
					},
				}, retryFlags()...),
			},
			{
				Name:   "warm",
				Usage:  "Embed the roster into the cache without serving",
				Action: warmCommand,
				Flags:  retryFlags(),
			},
		},
	}
}

func retryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum initialization attempts",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: 1 * time.Second,
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
