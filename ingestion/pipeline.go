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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/episodic/ai"
	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/queue"
	"github.com/poiesic/episodic/source"
	"github.com/poiesic/episodic/status"
	"github.com/poiesic/episodic/storage"
	"github.com/poiesic/episodic/telemetry"
)

// Default per-step timeouts.
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultEmbedTimeout = 2 * time.Minute
	DefaultStoreTimeout = 30 * time.Second
	DefaultMaxDeliver   = 5

	// DefaultHeartbeat is how often a running delivery's ack deadline is
	// extended.
	DefaultHeartbeat = 30 * time.Second
)

// Pipeline indexes documents: fetch, chunk, tag, embed, store, then record
// the outcome with the status tracker.
type Pipeline struct {
	store    storage.PartitionStore
	tracker  *status.Tracker
	fetcher  source.Fetcher
	embedder ai.Embedder
	chunker  *Chunker
	pool     *ants.Pool

	fetchTimeout time.Duration
	embedTimeout time.Duration
	storeTimeout time.Duration

	maxDeliver int
	retryDelay func(attempt int) time.Duration
	heartbeat  time.Duration

	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many documents are indexed concurrently by Run.
// Default is half the CPU count, at least 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "pipeline")
		return nil
	}
}

// WithChunking sets partition size and overlap in characters.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		chunker, err := NewChunker(size, overlap)
		if err != nil {
			return err
		}
		p.chunker = chunker
		return nil
	}
}

// WithTimeouts bounds the fetch, embed and store steps. Zero keeps the default.
func WithTimeouts(fetch, embed, store time.Duration) Option {
	return func(p *Pipeline) error {
		if fetch > 0 {
			p.fetchTimeout = fetch
		}
		if embed > 0 {
			p.embedTimeout = embed
		}
		if store > 0 {
			p.storeTimeout = store
		}
		return nil
	}
}

// WithRetryPolicy sets the delivery budget and the redelivery delay used
// by Run. A nil delay function redelivers immediately.
func WithRetryPolicy(maxDeliver int, delay func(attempt int) time.Duration) Option {
	return func(p *Pipeline) error {
		if maxDeliver < 1 {
			return fmt.Errorf("max deliver must be at least 1, got %d", maxDeliver)
		}
		p.maxDeliver = maxDeliver
		if delay == nil {
			delay = func(int) time.Duration { return 0 }
		}
		p.retryDelay = delay
		return nil
	}
}

// WithHeartbeat sets how often Run extends the ack deadline of a delivery
// while it is being indexed. Keep it well under the queue's ack wait.
func WithHeartbeat(interval time.Duration) Option {
	return func(p *Pipeline) error {
		if interval <= 0 {
			return fmt.Errorf("heartbeat must be positive, got %v", interval)
		}
		p.heartbeat = interval
		return nil
	}
}

// NewPipeline creates an indexing pipeline.
func NewPipeline(
	store storage.PartitionStore,
	tracker *status.Tracker,
	fetcher source.Fetcher,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if tracker == nil {
		return nil, ErrTrackerRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	chunker, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:        store,
		tracker:      tracker,
		fetcher:      fetcher,
		embedder:     embedder,
		chunker:      chunker,
		fetchTimeout: DefaultFetchTimeout,
		embedTimeout: DefaultEmbedTimeout,
		storeTimeout: DefaultStoreTimeout,
		maxDeliver:   DefaultMaxDeliver,
		retryDelay:   func(int) time.Duration { return 0 },
		heartbeat:    DefaultHeartbeat,
		logger:       slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if p.pool == nil {
		if p.pool, err = ants.NewPool(max(runtime.NumCPU()/2, 1)); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ProcessMessage indexes one document and records the outcome. Every
// failure after the document is marked Processing leaves it Failed with a
// reason and returns an error wrapping core.ErrIndexingFailed.
func (p *Pipeline) ProcessMessage(ctx context.Context, id core.DocumentID) error {
	start := time.Now()
	logger := p.logger.With("id", id)

	if _, err := p.tracker.SetStatus(ctx, id, core.StatusProcessing, ""); err != nil {
		logger.Warn("cannot start indexing", "err", err)
		return fmt.Errorf("%w: %w", core.ErrIndexingFailed, err)
	}

	count, err := p.index(ctx, id)
	if err != nil {
		telemetry.RecordIndexing(telemetry.OutcomeFailed, 0, time.Since(start))
		logger.Error("indexing failed", "err", err)
		if _, markErr := p.tracker.SetStatus(ctx, id, core.StatusFailed, err.Error()); markErr != nil {
			logger.Error("failed to record failure", "err", markErr)
			err = errors.Join(err, markErr)
		}
		return fmt.Errorf("%w: %s: %w", core.ErrIndexingFailed, id, err)
	}

	if _, err := p.tracker.Complete(ctx, id, count); err != nil {
		telemetry.RecordIndexing(telemetry.OutcomeFailed, 0, time.Since(start))
		return fmt.Errorf("%w: marking %s completed: %w", core.ErrIndexingFailed, id, err)
	}

	telemetry.RecordIndexing(telemetry.OutcomeCompleted, count, time.Since(start))
	logger.Info("indexed document", "partitions", count, "elapsed", time.Since(start))
	return nil
}

func (p *Pipeline) index(ctx context.Context, id core.DocumentID) (int, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	content, err := p.fetcher.Fetch(fetchCtx, id)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	partitions, err := p.chunker.Partition(content)
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}
	if len(partitions) == 0 {
		return 0, ErrEmptyContent
	}

	texts := make([]string, len(partitions))
	for i, part := range partitions {
		texts[i] = part.Text
	}

	embedCtx, cancel := context.WithTimeout(ctx, p.embedTimeout)
	vectors, err := p.embedder.EmbedTexts(embedCtx, texts)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(partitions) {
		return 0, fmt.Errorf("%w: %d vectors for %d partitions", ErrEmbeddingCountMismatch, len(vectors), len(partitions))
	}
	for i, part := range partitions {
		part.Vector = vectors[i]
	}

	storeCtx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()
	if err := p.store.UpsertPartitions(storeCtx, id, partitions); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}

	stored, err := p.store.CountPartitions(storeCtx, id)
	if err != nil {
		return 0, fmt.Errorf("verify: %w", err)
	}
	if stored != len(partitions) {
		return 0, fmt.Errorf("%w: stored %d, computed %d", ErrPartitionCountMismatch, stored, len(partitions))
	}
	return len(partitions), nil
}

// Run consumes indexing jobs until ctx is done, processing up to the pool
// size concurrently. In-flight documents finish before Run returns.
func (p *Pipeline) Run(ctx context.Context, consumer queue.Consumer) error {
	// In-flight work outlives shutdown so statuses are not left Processing.
	work := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	err := consumer.Consume(ctx, func(d queue.Delivery) {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			p.handle(work, d)
		})
		if submitErr != nil {
			wg.Done()
			p.logger.Error("failed to schedule document", "id", d.DocumentID(), "err", submitErr)
			p.settle(d, d.Nak(p.retryDelay(d.Attempt())))
		}
	})
	wg.Wait()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (p *Pipeline) handle(ctx context.Context, d queue.Delivery) {
	stop := p.keepAlive(d)
	err := p.ProcessMessage(ctx, d.DocumentID())
	stop()

	switch {
	case err == nil:
		p.settle(d, d.Ack())
	case errors.Is(err, core.ErrInvalidTransition), errors.Is(err, source.ErrUnknownDocument):
		p.logger.Warn("dropping undeliverable document", "id", d.DocumentID(), "err", err)
		p.settle(d, d.Term())
	case d.Attempt() >= p.maxDeliver:
		p.logger.Warn("delivery budget exhausted", "id", d.DocumentID(), "attempts", d.Attempt())
		p.settle(d, d.Term())
	default:
		p.settle(d, d.Nak(p.retryDelay(d.Attempt())))
	}
}

// keepAlive marks d in progress now and then every heartbeat until the
// returned stop function is called. stop waits for the ticker goroutine.
func (p *Pipeline) keepAlive(d queue.Delivery) (stop func()) {
	extend := func() {
		if err := d.InProgress(); err != nil {
			p.logger.Debug("failed to extend ack deadline", "id", d.DocumentID(), "err", err)
		}
	}
	extend()

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(p.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				extend()
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

func (p *Pipeline) settle(d queue.Delivery, err error) {
	if err != nil {
		p.logger.Error("failed to settle delivery", "id", d.DocumentID(), "err", err)
	}
}

// Release frees the worker pool.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
