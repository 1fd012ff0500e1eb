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

package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
)

// Indexer force-enqueues documents. Implemented by dispatch.Dispatcher.
type Indexer interface {
	ForceIndexing(ctx context.Context, candidates []*core.Document) (int, error)
}

// StatusSource reads pipeline statuses. Implemented by status.Tracker.
type StatusSource interface {
	GetStatuses(ctx context.Context, ids []core.DocumentID) (map[core.DocumentID]core.PipelineStatus, error)
}

// Config holds configuration for a reindexing run.
type Config struct {
	// BatchSize is the number of documents whose statuses are read together.
	BatchSize int

	// ReportInterval is how often to report progress, in documents.
	ReportInterval int

	// MaxRetries bounds attempts to enqueue one document after transient
	// failures.
	MaxRetries int

	// RetryDelay is the wait before the second attempt; it doubles after
	// each further failure.
	RetryDelay time.Duration

	// Statuses restricts the run to documents in these statuses.
	// Empty means every catalogued document.
	Statuses []core.PipelineStatus
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 10,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Summary counts what a run did with each document.
type Summary struct {
	Total    int
	Enqueued int
	Skipped  int
	Failed   int
}

// Reindexer re-queues catalogued documents.
type Reindexer struct {
	catalog  storage.CatalogRepository
	statuses StatusSource
	indexer  Indexer
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Reindexer.
type Option func(*Reindexer)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reindexer) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "reindexer")
	}
}

// NewReindexer creates a reindexer. A nil config uses DefaultConfig;
// progress receives human-readable progress lines.
func NewReindexer(catalog storage.CatalogRepository, statuses StatusSource, indexer Indexer, config *Config, progress io.Writer, opts ...Option) *Reindexer {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	r := &Reindexer{
		catalog:  catalog,
		statuses: statuses,
		indexer:  indexer,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reindexer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run re-queues every selected document. One document failing does not
// stop the run; failures are returned together once every batch is done.
func (r *Reindexer) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	if r.config.BatchSize <= 0 {
		return summary, ErrInvalidBatchSize
	}
	if r.config.MaxRetries <= 0 {
		return summary, ErrInvalidMaxRetries
	}

	docs, err := r.catalog.ListDocuments(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list documents: %w", err)
	}
	summary.Total = len(docs)
	if summary.Total == 0 {
		fmt.Fprintf(r.progress, "No documents in catalog\n")
		return summary, nil
	}

	fmt.Fprintf(r.progress, "Reindexing %d documents (batch size: %d)\n", summary.Total, r.config.BatchSize)
	progress := newProgressReporter(r.progress, summary.Total, r.config.ReportInterval)

	var errs []error
	for batch := range slices.Chunk(docs, r.config.BatchSize) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		selected, err := r.selectBatch(ctx, batch)
		if err != nil {
			return summary, err
		}
		summary.Skipped += len(batch) - len(selected)
		progress.update(summary)

		for _, doc := range selected {
			enqueued, attempts, err := r.requeue(ctx, doc)
			switch {
			case err != nil:
				if ctxErr := ctx.Err(); ctxErr != nil {
					return summary, ctxErr
				}
				r.logger.Warn("failed to re-queue document", "id", doc.ID, "attempts", attempts, "err", err)
				summary.Failed++
				errs = append(errs, fmt.Errorf("%s: %w", doc.ID, err))
			case enqueued:
				summary.Enqueued++
			default:
				summary.Skipped++
			}
			progress.update(summary)
		}
	}

	progress.finish(summary)
	fmt.Fprintf(r.progress, "Reindexing complete. Enqueued %d, skipped %d, failed %d in %v\n",
		summary.Enqueued, summary.Skipped, summary.Failed, progress.elapsed().Round(time.Millisecond))

	return summary, errors.Join(errs...)
}

// selectBatch keeps the documents whose status is in Config.Statuses.
func (r *Reindexer) selectBatch(ctx context.Context, batch []*core.Document) ([]*core.Document, error) {
	if len(r.config.Statuses) == 0 {
		return batch, nil
	}

	ids := make([]core.DocumentID, len(batch))
	for i, doc := range batch {
		ids[i] = doc.ID
	}
	statuses, err := r.statuses.GetStatuses(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read statuses: %w", err)
	}

	selected := make([]*core.Document, 0, len(batch))
	for _, doc := range batch {
		if slices.Contains(r.config.Statuses, statuses[doc.ID]) {
			selected = append(selected, doc)
		}
	}
	return selected, nil
}
