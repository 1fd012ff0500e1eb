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

// Package episodic answers questions about podcast episodes from their
// transcripts. Database wires the stores, model services and work queue
// described by a config.Config and hands out the components built on them.
package episodic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/episodic/ai"
	"github.com/poiesic/episodic/ai/openai"
	"github.com/poiesic/episodic/config"
	"github.com/poiesic/episodic/dispatch"
	"github.com/poiesic/episodic/ingestion"
	"github.com/poiesic/episodic/query"
	"github.com/poiesic/episodic/queue"
	"github.com/poiesic/episodic/queue/natsqueue"
	"github.com/poiesic/episodic/server"
	"github.com/poiesic/episodic/source"
	"github.com/poiesic/episodic/speech"
	"github.com/poiesic/episodic/status"
	"github.com/poiesic/episodic/storage"
	"github.com/poiesic/episodic/storage/badger"
	"github.com/poiesic/episodic/storage/chromem"
)

// ErrConfigRequired indicates Open was given no configuration.
var ErrConfigRequired = errors.New("config is required")

type Database struct {
	cfg        *config.Config
	backend    *badger.Backend
	partitions storage.PartitionStore
	statuses   *badger.StatusRepository
	catalog    *badger.CatalogRepository
	tracker    *status.Tracker
	provider   ai.AIProvider
	logger     *slog.Logger

	mu    sync.Mutex
	queue queue.Queue
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	provider ai.AIProvider
	queue    queue.Queue
	inMemory bool
	logger   *slog.Logger
}

// WithProvider replaces the OpenAI-compatible provider built from cfg.AI.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithQueue replaces the NATS queue built from cfg.NATS.
func WithQueue(q queue.Queue) DatabaseOption {
	return func(o *databaseOptions) {
		o.queue = q
	}
}

// InMemory keeps every store in memory. Nothing is written under DataDir.
func InMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// Open opens the stores and model services described by cfg. The work
// queue is connected on first use.
func Open(cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	path := cfg.BadgerPath()
	if options.inMemory {
		path = ""
	}
	backend, err := badger.OpenBackend(path, options.inMemory)
	if err != nil {
		return nil, err
	}

	partitions, err := openPartitionStore(cfg, backend, options)
	if err != nil {
		backend.Close()
		return nil, err
	}

	statuses := badger.NewStatusRepository(backend)
	catalog := badger.NewCatalogRepository(backend)

	tracker, err := status.NewTracker(statuses, status.WithLogger(options.logger))
	if err != nil {
		partitions.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(&cfg.AI)
		if err != nil {
			partitions.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		cfg:        cfg,
		backend:    backend,
		partitions: partitions,
		statuses:   statuses,
		catalog:    catalog,
		tracker:    tracker,
		provider:   provider,
		queue:      options.queue,
		logger:     options.logger,
	}, nil
}

func openPartitionStore(cfg *config.Config, backend *badger.Backend, options *databaseOptions) (storage.PartitionStore, error) {
	if cfg.Store.Backend != config.BackendChromem {
		return badger.NewPartitionRepository(backend), nil
	}
	path := cfg.ChromemPath()
	if options.inMemory {
		path = ""
	}
	return chromem.Open(path, cfg.Store.Compress, chromem.WithLogger(options.logger))
}

func (db *Database) Close() error {
	var errs []error

	db.mu.Lock()
	if db.queue != nil {
		if err := db.queue.Close(); err != nil {
			db.logger.Error("error closing queue", "err", err)
			errs = append(errs, err)
		}
	}
	db.mu.Unlock()

	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.partitions.Close(); err != nil {
		db.logger.Error("error closing partition store", "err", err)
		errs = append(errs, err)
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (db *Database) Config() *config.Config {
	return db.cfg
}

func (db *Database) PartitionStore() storage.PartitionStore {
	return db.partitions
}

func (db *Database) CatalogRepository() storage.CatalogRepository {
	return db.catalog
}

func (db *Database) Tracker() *status.Tracker {
	return db.tracker
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// Queue returns the work queue, connecting to NATS on first call.
func (db *Database) Queue(ctx context.Context) (queue.Queue, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.queue != nil {
		return db.queue, nil
	}
	q, err := natsqueue.Connect(ctx, db.cfg.NATS, natsqueue.WithLogger(db.logger))
	if err != nil {
		return nil, fmt.Errorf("connecting work queue: %w", err)
	}
	db.queue = q
	return q, nil
}

func (db *Database) NewDispatcher(ctx context.Context) (*dispatch.Dispatcher, error) {
	q, err := db.Queue(ctx)
	if err != nil {
		return nil, err
	}
	return dispatch.NewDispatcher(db.catalog, db.tracker, q, dispatch.WithLogger(db.logger))
}

// NewPipeline builds an indexing pipeline tuned by cfg.Pipeline. Extra
// options are applied last.
func (db *Database) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	fetcher, err := source.NewCatalogFetcher(db.catalog, source.WithLogger(db.logger))
	if err != nil {
		return nil, err
	}

	pc := db.cfg.Pipeline
	base := []ingestion.Option{
		ingestion.WithLogger(db.logger),
		ingestion.WithChunking(pc.ChunkSize, pc.ChunkOverlap),
		ingestion.WithTimeouts(pc.FetchTimeout, pc.EmbedTimeout, pc.StoreTimeout),
		ingestion.WithRetryPolicy(db.cfg.NATS.MaxDeliver, db.cfg.NATS.RetryDelay),
		ingestion.WithHeartbeat(db.cfg.NATS.AckWait / 2),
	}
	if pc.Workers > 0 {
		base = append(base, ingestion.WithPoolSize(pc.Workers))
	}

	return ingestion.NewPipeline(db.partitions, db.tracker, fetcher, db.provider.Embedder(), append(base, opts...)...)
}

// RunWorker indexes queued documents until ctx is done.
func (db *Database) RunWorker(ctx context.Context) error {
	q, err := db.Queue(ctx)
	if err != nil {
		return err
	}
	pipeline, err := db.NewPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	db.logger.Info("indexing worker started")
	err = pipeline.Run(ctx, q)
	db.logger.Info("indexing worker stopped")
	return err
}

// NewEngine builds a query engine tuned by cfg.Query. Extra options are
// applied last.
func (db *Database) NewEngine(opts ...query.Option) (*query.Engine, error) {
	qc := db.cfg.Query
	base := []query.Option{
		query.WithLogger(db.logger),
		query.WithContextBudget(qc.ContextBudget),
		query.WithMaxMatches(qc.MaxMatches),
		query.WithTimeouts(qc.EmbedTimeout, qc.SearchTimeout, qc.GenerateTimeout),
	}
	return query.NewEngine(db.partitions, db.provider, append(base, opts...)...)
}

// NewSpeechRenderer returns nil when speech is disabled.
func (db *Database) NewSpeechRenderer() (*speech.Renderer, error) {
	synth := db.provider.SpeechSynthesizer()
	if !db.cfg.Speech.Enabled || synth == nil {
		return nil, nil
	}
	return speech.NewRenderer(synth, db.cfg.Speech.Dir,
		speech.WithLogger(db.logger),
		speech.WithTimeout(db.cfg.Speech.Timeout))
}

// NewServer builds the HTTP API over a dispatcher, query engine and, when
// enabled, a speech renderer.
func (db *Database) NewServer(ctx context.Context) (*server.Server, error) {
	dispatcher, err := db.NewDispatcher(ctx)
	if err != nil {
		return nil, err
	}
	engine, err := db.NewEngine()
	if err != nil {
		return nil, err
	}
	renderer, err := db.NewSpeechRenderer()
	if err != nil {
		return nil, err
	}

	svc := server.Services{
		Asker:    engine,
		Indexer:  dispatcher,
		Statuses: db.tracker,
		Catalog:  db.catalog,
	}
	if renderer != nil {
		svc.Speech = renderer
	}

	return server.NewServer(svc, &server.Config{
		Host:                db.cfg.HTTP.Host,
		Port:                db.cfg.HTTP.Port,
		DefaultMinRelevance: db.cfg.Query.DefaultMinRelevance,
	}, db.logger)
}
