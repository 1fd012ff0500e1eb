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

// Package status tracks the indexing state of every document.
//
// All writes go through storage.StatusRepository.UpdateStatus, which runs the
// read-check-write of one id in a single transaction. Transition checks and
// the enqueue de-duplication therefore cannot race with other writers.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
)

var (
	// ErrRepositoryRequired is returned when constructing a Tracker without a repository.
	ErrRepositoryRequired = errors.New("status repository is required")
)

// Tracker reads and writes document pipeline statuses.
// Safe for concurrent use.
type Tracker struct {
	repo   storage.StatusRepository
	logger *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) error {
		if logger == nil {
			logger = slog.Default()
		}
		t.logger = logger.With("component", "status-tracker")
		return nil
	}
}

// NewTracker creates a tracker over repo.
func NewTracker(repo storage.StatusRepository, opts ...Option) (*Tracker, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	t := &Tracker{
		repo:   repo,
		logger: slog.Default().With("component", "status-tracker"),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// SetStatus moves a document to status, recording reason.
// Returns core.ErrInvalidTransition if the move is not allowed.
// Completed records should be written with Complete so the partition
// count is kept.
func (t *Tracker) SetStatus(ctx context.Context, id core.DocumentID, status core.PipelineStatus, reason string) (*core.StatusRecord, error) {
	rec, err := t.repo.UpdateStatus(ctx, id, func(current *core.StatusRecord) (*core.StatusRecord, error) {
		return transition(id, current, status, reason)
	})
	if err != nil {
		return nil, err
	}
	t.logger.Debug("status changed", "id", id, "status", rec.Status, "reason", reason)
	return rec, nil
}

// Complete marks a document Completed with its persisted partition count.
func (t *Tracker) Complete(ctx context.Context, id core.DocumentID, partitions int) (*core.StatusRecord, error) {
	rec, err := t.repo.UpdateStatus(ctx, id, func(current *core.StatusRecord) (*core.StatusRecord, error) {
		next, err := transition(id, current, core.StatusCompleted, "")
		if err != nil {
			return nil, err
		}
		next.PartitionCount = partitions
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.Debug("status changed", "id", id, "status", rec.Status, "partitions", partitions)
	return rec, nil
}

// Enqueue marks a document Queued unless it is already Queued or Processing.
// With force a Queued document is re-queued as well; a Processing document
// is always left alone since a worker owns it. The returned flag reports
// whether the document was queued by this call.
func (t *Tracker) Enqueue(ctx context.Context, id core.DocumentID, force bool) (*core.StatusRecord, bool, error) {
	queued := false
	rec, err := t.repo.UpdateStatus(ctx, id, func(current *core.StatusRecord) (*core.StatusRecord, error) {
		queued = false
		if current != nil {
			switch {
			case current.Status == core.StatusProcessing:
				return nil, errSkip
			case current.Status == core.StatusQueued && !force:
				return nil, errSkip
			}
		}
		next, err := transition(id, current, core.StatusQueued, "")
		if err != nil {
			return nil, err
		}
		queued = true
		return next, nil
	})
	if errors.Is(err, errSkip) {
		current, err := t.GetRecord(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, queued, nil
}

// errSkip aborts an Enqueue transaction without writing.
var errSkip = errors.New("skip enqueue")

// GetStatus returns the status of a document, StatusUnknown if none is recorded.
func (t *Tracker) GetStatus(ctx context.Context, id core.DocumentID) (core.PipelineStatus, error) {
	rec, err := t.repo.GetStatus(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.StatusUnknown, nil
	}
	if err != nil {
		return core.StatusUnknown, err
	}
	return rec.Status, nil
}

// GetRecord returns the full record of a document.
// Returns storage.ErrNotFound if none is recorded.
func (t *Tracker) GetRecord(ctx context.Context, id core.DocumentID) (*core.StatusRecord, error) {
	return t.repo.GetStatus(ctx, id)
}

// GetStatuses returns the status of every id. Ids without a record map to
// StatusUnknown.
func (t *Tracker) GetStatuses(ctx context.Context, ids []core.DocumentID) (map[core.DocumentID]core.PipelineStatus, error) {
	records, err := t.repo.GetStatuses(ctx, ids...)
	if err != nil {
		return nil, err
	}
	result := make(map[core.DocumentID]core.PipelineStatus, len(ids))
	for _, id := range ids {
		if rec, ok := records[id]; ok {
			result[id] = rec.Status
		} else {
			result[id] = core.StatusUnknown
		}
	}
	return result, nil
}

// List returns every status record ordered by document id.
func (t *Tracker) List(ctx context.Context) ([]*core.StatusRecord, error) {
	return t.repo.ListStatuses(ctx)
}

// transition builds the record that follows current when moving to status.
func transition(id core.DocumentID, current *core.StatusRecord, status core.PipelineStatus, reason string) (*core.StatusRecord, error) {
	from := core.StatusUnknown
	next := &core.StatusRecord{ID: id}
	if current != nil {
		from = current.Status
		*next = *current
	}
	if !core.CanTransition(from, status) {
		return nil, fmt.Errorf("%w: %s -> %s for %s", core.ErrInvalidTransition, from, status, id)
	}

	next.Status = status
	next.Reason = reason
	switch status {
	case core.StatusQueued:
		next.Attempts = 0
	case core.StatusProcessing:
		next.Attempts++
	}
	return next, nil
}
