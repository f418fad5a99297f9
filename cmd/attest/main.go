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
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/poiesic/attest"
	"github.com/poiesic/attest/classify"
	"github.com/poiesic/attest/config"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/ingestion"
	"github.com/poiesic/attest/logging"
	"github.com/poiesic/attest/verify"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dataDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "data-dir",
		Aliases: []string{"d"},
		Usage:   "Directory holding the document store and indexes (overrides the config file)",
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "attest",
		Usage: "Answer questions from a document collection with verified citations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json, pretty)",
				Value: logging.FormatText,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"ATTEST_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question from the indexed documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					dataDirFlag(),
					&cli.IntFlag{
						Name:  "max-results",
						Usage: "Maximum number of documents to retrieve",
						Value: core.DefaultMaxResults,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full response as JSON",
					},
				},
			},
			{
				Name:   "index",
				Usage:  "Index a JSONL document corpus",
				Action: indexCommand,
				Flags: []cli.Flag{
					dataDirFlag(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "JSONL file to index, or - for stdin",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to index in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per backend for each batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the search indexes from the document store",
				Action: reindexCommand,
				Flags: []cli.Flag{
					dataDirFlag(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per backend for each batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:      "classify",
				Usage:     "Show how a question would be routed",
				ArgsUsage: "QUESTION",
				Action:    classifyCommand,
			},
			{
				Name:   "verify",
				Usage:  "Check each sentence of an answer against evidence documents",
				Action: verifyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "answer",
						Aliases:  []string{"a"},
						Usage:    "Answer text to verify",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "evidence",
						Aliases:  []string{"e"},
						Usage:    "JSONL file of evidence documents",
						Required: true,
					},
				},
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration",
				Action: configCommand,
				Flags:  []cli.Flag{dataDirFlag()},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	level, err := logging.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logger, err := logging.New(c.App.ErrWriter, level, c.String("log-format"))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func loadConfig(c *cli.Context) (config.File, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.File{}, fmt.Errorf("failed to load config: %w", err)
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

func openSystem(c *cli.Context, opts ...attest.Option) (*attest.System, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	opts = append([]attest.Option{attest.WithConfig(cfg)}, opts...)
	sys, err := attest.Open("", opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.DataDir, err)
	}
	return sys, nil
}

func questionArg(c *cli.Context) (string, error) {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return "", fmt.Errorf("a question is required")
	}
	return question, nil
}

func askCommand(c *cli.Context) error {
	question, err := questionArg(c)
	if err != nil {
		return err
	}
	q, err := core.NewQuery(question, core.WithMaxResults(c.Int("max-results")))
	if err != nil {
		return err
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resp, err := sys.Process(ctx, q)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, resp)
	}
	printResponse(c.App.Writer, resp)
	return nil
}

func printResponse(w io.Writer, resp *core.FinalResponse) {
	fmt.Fprintln(w, resp.Answer)
	if len(resp.Citations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for _, c := range resp.Citations {
			label := c.Title
			if label == "" {
				label = c.DocumentID
			}
			if c.URL != "" {
				label += " <" + c.URL + ">"
			}
			fmt.Fprintf(w, "  [%d] %s\n", c.Index, label)
		}
	}
	for _, warning := range resp.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	fmt.Fprintf(w, "\nstatus: %s  confidence: %.2f  trace: %s\n", resp.Status, resp.Confidence, resp.TraceID)
}

func indexCommand(c *cli.Context) error {
	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	var in io.Reader = os.Stdin
	if path := c.String("file"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open corpus: %w", err)
		}
		defer f.Close()
		in = f
	}

	sys, err := openSystem(c, attest.WithIndexOptions(
		ingestion.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		ingestion.WithProgress(c.App.ErrWriter, c.Int("report-interval")),
	))
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(c.App.ErrWriter, "Data dir: %s\n", sys.Config().DataDir)
	fmt.Fprintf(c.App.ErrWriter, "Sources: %s\n", strings.Join(sys.Registry().IDs(), ", "))
	fmt.Fprintln(c.App.ErrWriter)

	n, err := sys.Indexer().IndexAll(ctx, in, batchSize)
	if err != nil {
		return fmt.Errorf("indexing failed after %d documents: %w", n, err)
	}
	fmt.Fprintf(c.App.Writer, "Indexed %d documents\n", n)
	return nil
}

func reindexCommand(c *cli.Context) error {
	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	sys, err := openSystem(c, attest.WithIndexOptions(
		ingestion.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
	))
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(c.App.ErrWriter, "Data dir: %s\n", sys.Config().DataDir)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", sys.Config().AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	n, err := sys.Reindex(ctx, batchSize, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("reindex failed after %d documents: %w", n, err)
	}
	fmt.Fprintf(c.App.Writer, "Reindexed %d documents\n", n)
	return nil
}

func classifyCommand(c *cli.Context) error {
	question, err := questionArg(c)
	if err != nil {
		return err
	}
	result := classify.Classify(question)

	w := c.App.Writer
	fmt.Fprintf(w, "category:   %s (%.2f)\n", result.Category, result.Confidence)
	fmt.Fprintf(w, "complexity: %s\n", result.Complexity)
	fmt.Fprintf(w, "pattern:    %s\n", result.ExecutionPattern)
	fmt.Fprintf(w, "priority:   %d\n", result.Priority)
	fmt.Fprintf(w, "agents:     %s\n", strings.Join(result.SuggestedAgents, ", "))
	if len(result.SubQueries) > 0 {
		fmt.Fprintf(w, "subqueries: %s\n", strings.Join(result.SubQueries, " | "))
	}
	return nil
}

func verifyCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	f, err := os.Open(c.String("evidence"))
	if err != nil {
		return fmt.Errorf("failed to open evidence: %w", err)
	}
	defer f.Close()
	docs, err := ingestion.ReadDocuments(f)
	if err != nil {
		return fmt.Errorf("failed to read evidence: %w", err)
	}
	evidence := make([]*core.EnhancedResult, len(docs))
	for i, doc := range docs {
		evidence[i] = &core.EnhancedResult{
			DocumentID: doc.ID,
			Title:      doc.Title,
			Content:    doc.Content,
			URL:        doc.URL,
		}
	}

	provider, err := attest.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("failed to create AI provider: %w", err)
	}
	defer provider.Close()

	verifier, err := verify.NewVerifier(
		verify.WithEmbedder(provider.Embedder()),
		verify.WithThreshold(cfg.Verification.Threshold),
		verify.WithFallbackThreshold(cfg.Verification.FallbackThreshold),
		verify.WithChunkSize(cfg.Verification.ChunkSize),
		verify.WithConcurrency(cfg.Verification.Concurrency),
	)
	if err != nil {
		return err
	}

	outcome, err := verifier.Verify(c.Context, c.String("answer"), evidence)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	w := c.App.Writer
	for _, v := range outcome.Verified {
		fmt.Fprintf(w, "✓ %s [%s %.2f]\n", v.Sentence, v.EvidenceDocID, v.Similarity)
	}
	for _, u := range outcome.Unsupported {
		fmt.Fprintf(w, "✗ %s [closest %s %.2f]\n", u.Sentence, u.BestDocID, u.Similarity)
	}
	fmt.Fprintf(w, "\n%s\nmethod: %s  confidence: %.2f\n", outcome.Summary, outcome.Method, outcome.Confidence)
	return nil
}

func configCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
