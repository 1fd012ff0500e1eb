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

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "episodic",
		Usage: "Grounded question answering over podcast transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"EPISODIC_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and an indexing worker",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-worker",
						Usage: "Serve the API without indexing queued documents",
					},
				},
			},
			{
				Name:   "worker",
				Usage:  "Index queued documents until interrupted",
				Action: workerCommand,
			},
			{
				Name:      "dispatch",
				Usage:     "Request indexing of the episodes listed in a YAML file",
				ArgsUsage: " ",
				Action:    dispatchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "YAML file listing candidate episodes",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-enqueue episodes that are already queued",
					},
				},
			},
			{
				Name:      "status",
				Usage:     "Show the indexing status of episodes (all when no id is given)",
				ArgsUsage: "[ID...]",
				Action:    statusCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Re-queue catalogued episodes for indexing",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "status",
						Usage: "Only re-queue episodes in this status (repeatable)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Documents whose statuses are read together",
						Value: 100,
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about the indexed episodes",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "speaker",
						Usage: "Only use episodes featuring this speaker (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "topic",
						Usage: "Only use episodes about this topic (repeatable)",
					},
					&cli.Float64Flag{
						Name:  "min-relevance",
						Usage: "Relevance floor in [0,1] (default from configuration)",
						Value: -1,
					},
					&cli.BoolFlag{
						Name:  "speak",
						Usage: "Render the answer to an mp3 file",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Show retrieval details",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the result as JSON",
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
