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

// Package dispatch turns candidate documents into indexing jobs.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/queue"
	"github.com/poiesic/episodic/status"
	"github.com/poiesic/episodic/storage"
	"github.com/poiesic/episodic/telemetry"
)

var (
	// ErrCatalogRequired is returned by NewDispatcher without a catalog.
	ErrCatalogRequired = errors.New("catalog repository is required")

	// ErrTrackerRequired is returned by NewDispatcher without a status tracker.
	ErrTrackerRequired = errors.New("status tracker is required")

	// ErrPublisherRequired is returned by NewDispatcher without a queue publisher.
	ErrPublisherRequired = errors.New("queue publisher is required")
)

// Dispatcher records candidate documents, marks them Queued and publishes
// their ids. It never touches the partition store.
type Dispatcher struct {
	catalog   storage.CatalogRepository
	tracker   *status.Tracker
	publisher queue.Publisher
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger.With("component", "dispatcher")
		return nil
	}
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(catalog storage.CatalogRepository, tracker *status.Tracker, publisher queue.Publisher, opts ...Option) (*Dispatcher, error) {
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if tracker == nil {
		return nil, ErrTrackerRequired
	}
	if publisher == nil {
		return nil, ErrPublisherRequired
	}

	d := &Dispatcher{
		catalog:   catalog,
		tracker:   tracker,
		publisher: publisher,
		logger:    slog.Default().With("component", "dispatcher"),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// RequestIndexing enqueues every candidate that is not already Queued or
// Processing and returns how many were enqueued. Failures do not stop the
// batch; they are returned together, each wrapping core.ErrDispatchFailed.
func (d *Dispatcher) RequestIndexing(ctx context.Context, candidates []*core.Document) (int, error) {
	return d.dispatch(ctx, candidates, false)
}

// ForceIndexing is RequestIndexing without the Queued de-duplication, for
// operator-initiated re-indexing. Documents being processed are still skipped.
func (d *Dispatcher) ForceIndexing(ctx context.Context, candidates []*core.Document) (int, error) {
	return d.dispatch(ctx, candidates, true)
}

func (d *Dispatcher) dispatch(ctx context.Context, candidates []*core.Document, force bool) (int, error) {
	var errs []error
	enqueued := 0

	for _, doc := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", core.ErrDispatchFailed, err))
			break
		}

		ok, err := d.dispatchOne(ctx, doc, force)
		switch {
		case err != nil:
			telemetry.RecordDispatch(telemetry.OutcomeFailed)
			errs = append(errs, err)
		case ok:
			telemetry.RecordDispatch(telemetry.OutcomeEnqueued)
			enqueued++
		default:
			telemetry.RecordDispatch(telemetry.OutcomeSkipped)
		}
	}

	d.logger.Info("dispatched candidates",
		"candidates", len(candidates),
		"enqueued", enqueued,
		"failed", len(errs),
		"force", force)

	return enqueued, errors.Join(errs...)
}

func (d *Dispatcher) dispatchOne(ctx context.Context, doc *core.Document, force bool) (bool, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return false, fmt.Errorf("%w: %w", core.ErrDispatchFailed, err)
	}
	id := doc.AssignID()

	current, err := d.tracker.GetStatus(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%w: reading status of %s: %w", core.ErrDispatchFailed, id, err)
	}
	if current == core.StatusProcessing || (current == core.StatusQueued && !force) {
		d.logger.Debug("skipping pending document", "id", id, "status", current)
		return false, nil
	}

	if err := d.catalog.PutDocuments(ctx, doc); err != nil {
		return false, fmt.Errorf("%w: cataloguing %s: %w", core.ErrDispatchFailed, id, err)
	}

	// Another dispatcher may have queued the document since the read above.
	rec, queued, err := d.tracker.Enqueue(ctx, id, force)
	if err != nil {
		return false, fmt.Errorf("%w: marking %s queued: %w", core.ErrDispatchFailed, id, err)
	}
	if !queued {
		return false, nil
	}

	job := queue.Job{DocumentID: id, QueuedAt: rec.UpdatedAt}
	if err := d.publisher.Publish(ctx, job); err != nil {
		d.logger.Warn("publish failed", "id", id, "err", err)
		reason := fmt.Sprintf("publish failed: %v", err)
		if _, markErr := d.tracker.SetStatus(ctx, id, core.StatusFailed, reason); markErr != nil {
			d.logger.Error("failed to mark document failed", "id", id, "err", markErr)
			err = errors.Join(err, markErr)
		}
		return false, fmt.Errorf("%w: publishing %s: %w", core.ErrDispatchFailed, id, err)
	}

	d.logger.Debug("enqueued document", "id", id, "title", doc.Title)
	return true, nil
}
