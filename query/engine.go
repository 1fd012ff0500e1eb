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

package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/episodic/ai"
	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
	"github.com/poiesic/episodic/telemetry"
)

// Default per-step timeouts.
const (
	DefaultEmbedTimeout    = 30 * time.Second
	DefaultSearchTimeout   = 30 * time.Second
	DefaultGenerateTimeout = 2 * time.Minute
)

// Engine answers questions from indexed partitions.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	store     storage.PartitionStore
	embedder  ai.Embedder
	generator ai.AnswerGenerator

	contextBudget int
	maxMatches    int

	embedTimeout    time.Duration
	searchTimeout   time.Duration
	generateTimeout time.Duration

	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "query-engine")
		return nil
	}
}

// WithContextBudget sets how many characters of partition text reach the
// answer generator. Default is DefaultContextBudget.
func WithContextBudget(chars int) Option {
	return func(e *Engine) error {
		if chars < 1 {
			return fmt.Errorf("context budget must be positive, got %d", chars)
		}
		e.contextBudget = chars
		return nil
	}
}

// WithMaxMatches caps how many partitions one search returns.
// Default is 0, no cap.
func WithMaxMatches(n int) Option {
	return func(e *Engine) error {
		if n < 0 {
			return fmt.Errorf("max matches must not be negative, got %d", n)
		}
		e.maxMatches = n
		return nil
	}
}

// WithTimeouts bounds the embed, search and generate steps. Zero keeps the default.
func WithTimeouts(embed, search, generate time.Duration) Option {
	return func(e *Engine) error {
		if embed > 0 {
			e.embedTimeout = embed
		}
		if search > 0 {
			e.searchTimeout = search
		}
		if generate > 0 {
			e.generateTimeout = generate
		}
		return nil
	}
}

// NewEngine creates a query engine.
func NewEngine(store storage.PartitionStore, provider ai.AIProvider, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &Engine{
		store:           store,
		embedder:        provider.Embedder(),
		generator:       provider.AnswerGenerator(),
		contextBudget:   DefaultContextBudget,
		embedTimeout:    DefaultEmbedTimeout,
		searchTimeout:   DefaultSearchTimeout,
		generateTimeout: DefaultGenerateTimeout,
		logger:          slog.Default().With("component", "query-engine"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Ask answers question from partitions matching filter with relevance of at
// least minRelevance. When nothing qualifies the result is ungrounded with no
// sources; that is not an error.
//
// Errors wrap core.ErrInvalidInput, core.ErrRetrievalFailed or
// core.ErrGenerationFailed.
func (e *Engine) Ask(ctx context.Context, question string, filter core.QueryFilter, minRelevance float32) (*core.AnswerResult, error) {
	return e.AskWithMonitor(ctx, question, filter, minRelevance, nil)
}

// AskWithMonitor is Ask reporting each stage to monitor.
func (e *Engine) AskWithMonitor(ctx context.Context, question string, filter core.QueryFilter, minRelevance float32, monitor Monitor) (*core.AnswerResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	start := time.Now()

	result, err := e.ask(ctx, question, filter, minRelevance, monitor)

	outcome := telemetry.OutcomeAnswered
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		outcome = telemetry.OutcomeInvalid
	case err != nil:
		outcome = telemetry.OutcomeFailed
	case !result.Grounded:
		outcome = telemetry.OutcomeUngrounded
	}
	telemetry.RecordAsk(outcome, time.Since(start))

	if err != nil {
		return nil, err
	}
	monitor.Finish(result)
	return result, nil
}

func (e *Engine) ask(ctx context.Context, question string, filter core.QueryFilter, minRelevance float32, monitor Monitor) (*core.AnswerResult, error) {
	if err := core.ValidateQuestion(question); err != nil {
		return nil, err
	}
	if err := core.ValidateRelevance(minRelevance); err != nil {
		return nil, err
	}
	if err := core.ValidateFilter(filter); err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	monitor.Start(question, filter, minRelevance)

	embedCtx, cancel := context.WithTimeout(ctx, e.embedTimeout)
	vector, err := e.embedder.EmbedText(embedCtx, question)
	cancel()
	if err != nil {
		e.logger.Error("error generating embedding for question", "err", err)
		return nil, fmt.Errorf("%w: embedding question: %w", core.ErrRetrievalFailed, err)
	}
	monitor.AfterEmbedding(vector)

	searchCtx, cancel := context.WithTimeout(ctx, e.searchTimeout)
	matches, err := e.store.SimilaritySearch(searchCtx, vector, filter, minRelevance, e.maxMatches)
	cancel()
	if err != nil {
		e.logger.Error("error searching partitions", "err", err)
		return nil, fmt.Errorf("%w: searching partitions: %w", core.ErrRetrievalFailed, err)
	}
	monitor.AfterSearch(matches)

	if len(matches) == 0 {
		e.logger.Debug("no partitions qualified", "min_relevance", minRelevance)
		return &core.AnswerResult{
			Answer:   core.NoGroundedAnswer,
			Grounded: false,
			Sources:  []core.Source{},
		}, nil
	}

	passages, truncated := buildContextWindow(matches, e.contextBudget)
	monitor.AfterContextWindow(passages, truncated)

	genCtx, cancel := context.WithTimeout(ctx, e.generateTimeout)
	answer, err := e.generator.GenerateAnswer(genCtx, question, passages)
	cancel()
	if err != nil {
		e.logger.Error("error generating answer", "passages", len(passages), "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrGenerationFailed, err)
	}

	sources := groupSources(matches)
	e.logger.Debug("answered question",
		"matches", len(matches),
		"passages", len(passages),
		"sources", len(sources))

	return &core.AnswerResult{
		Answer:   answer,
		Grounded: true,
		Sources:  sources,
	}, nil
}
