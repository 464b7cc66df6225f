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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/loom/compile"
	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/engine"
	"github.com/poiesic/loom/provider"
	"github.com/poiesic/loom/provider/azureblob"
	"github.com/poiesic/loom/provider/gcs"
	"github.com/poiesic/loom/provider/local"
	"github.com/poiesic/loom/provider/mysql"
	"github.com/poiesic/loom/provider/postgres"
	"github.com/poiesic/loom/provider/s3"
	"github.com/poiesic/loom/provider/vector"
)

func main() {
	app := &cli.App{
		Name:  "loom",
		Usage: "Document pipeline graph compiler and execution engine",
		Flags: []cli.Flag{
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
				Name:   "validate",
				Usage:  "Check a pipeline definition for structural errors",
				Action: validateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "definition",
						Aliases:  []string{"f"},
						Usage:    "Path to the pipeline definition JSON",
						Required: true,
					},
				},
			},
			{
				Name:   "compile",
				Usage:  "Compile a definition, connecting every provider, then tear down",
				Action: compileCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "definition",
						Aliases:  []string{"f"},
						Usage:    "Path to the pipeline definition JSON",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "credentials",
						Aliases:  []string{"c"},
						Usage:    "Path to the credentials JSON (reference id -> credentials)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Run backend reachability checks before connecting",
					},
				},
			},
			{
				Name:   "run",
				Usage:  "Compile and execute a pipeline definition",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "definition",
						Aliases:  []string{"f"},
						Usage:    "Path to the pipeline definition JSON",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "credentials",
						Aliases:  []string{"c"},
						Usage:    "Path to the credentials JSON (reference id -> credentials)",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Maximum wall-clock duration for the run (0 = no limit)",
						Value: 10 * time.Minute,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Retries per failed batch operation",
						Value: 2,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Fixed delay between retry attempts",
						Value: 500 * time.Millisecond,
					},
					&cli.IntFlag{
						Name:  "queue-capacity",
						Usage: "Buffered batches per wire before senders block",
						Value: 8,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func validateCommand(c *cli.Context) error {
	def, err := loadDefinition(c.String("definition"))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Definition %q is valid: %d nodes, %d edges\n",
		def.Metadata.Name, len(def.Nodes), len(def.Edges))
	return nil
}

func compileCommand(c *cli.Context) error {
	ctx := context.Background()

	def, err := loadDefinition(c.String("definition"))
	if err != nil {
		return err
	}
	registry, err := loadCredentials(c.String("credentials"))
	if err != nil {
		return err
	}
	factories, err := defaultFactories()
	if err != nil {
		return err
	}

	var opts []compile.Option
	if c.Bool("verify") {
		opts = append(opts, compile.WithVerify())
	}

	graph, err := compile.Compile(ctx, def, factories, registry, opts...)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}
	defer graph.Close()

	fmt.Fprintf(os.Stderr, "Compiled %q: %d nodes, %d wires\n",
		graph.Name(), graph.Len(), len(graph.Wires()))
	for _, id := range graph.Order() {
		node, _ := graph.Node(id)
		fmt.Fprintf(os.Stderr, "  %s  %s\n", node.Role, id)
	}
	return nil
}

func runCommand(c *cli.Context) error {
	ctx := context.Background()

	def, err := loadDefinition(c.String("definition"))
	if err != nil {
		return err
	}
	registry, err := loadCredentials(c.String("credentials"))
	if err != nil {
		return err
	}
	factories, err := defaultFactories()
	if err != nil {
		return err
	}

	graph, err := compile.Compile(ctx, def, factories, registry)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}
	defer graph.Close()

	cfg := engine.Config{
		MaxConcurrentRuns: 1,
		DefaultTimeout:    c.Duration("timeout"),
		MaxRetries:        c.Int("max-retries"),
		RetryDelay:        c.Duration("retry-delay"),
		QueueCapacity:     c.Int("queue-capacity"),
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	outcome, err := eng.Run(ctx, graph)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Run %s in %s\n", outcome.State, outcome.Duration().Round(time.Millisecond))
	if outcome.State == engine.RunFailed {
		return fmt.Errorf("node %s: %s", outcome.FailedNode, outcome.Message)
	}
	if outcome.State != engine.RunCompleted {
		return fmt.Errorf("run finished %s", outcome.State)
	}
	return nil
}

// loadDefinition reads and structurally validates a definition file.
func loadDefinition(path string) (*core.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open definition: %w", err)
	}
	defer f.Close()

	def, err := core.DecodeDefinition(f)
	if err != nil {
		return nil, fmt.Errorf("definition %s: %w", path, err)
	}
	return def, nil
}

// loadCredentials reads a credentials file keyed by reference id.
func loadCredentials(path string) (*provider.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var creds map[string]provider.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("credentials %s: %w", path, err)
	}
	return provider.NewRegistry(creds), nil
}

// defaultFactories assembles every backend this build supports.
func defaultFactories() (*provider.Factories, error) {
	return provider.NewFactories(
		s3.New(),
		azureblob.New(),
		gcs.New(),
		postgres.New(),
		mysql.New(),
		local.New(),
		vector.NewQdrant(),
		vector.NewPinecone(),
		vector.NewMilvus(),
		vector.NewPGVector(),
	)
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
