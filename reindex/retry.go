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
	"time"

	"github.com/poiesic/episodic/core"
)

// maxRetryDelay caps the doubling delay between enqueue attempts.
const maxRetryDelay = 30 * time.Second

// permanent reports whether a dispatch error will recur however often the
// document is re-sent: the catalogued metadata is invalid, or the status
// machine refuses the move.
func permanent(err error) bool {
	return errors.Is(err, core.ErrInvalidDocument) || errors.Is(err, core.ErrInvalidTransition)
}

// requeue force-enqueues one document. Transient dispatch failures (broker
// or store errors) are retried up to MaxRetries attempts, waiting RetryDelay
// and doubling it each time. Permanent failures cost exactly one attempt.
func (r *Reindexer) requeue(ctx context.Context, doc *core.Document) (enqueued bool, attempts int, err error) {
	delay := r.config.RetryDelay
	for attempts = 1; ; attempts++ {
		var n int
		n, err = r.indexer.ForceIndexing(ctx, []*core.Document{doc})
		if err == nil {
			return n > 0, attempts, nil
		}
		if permanent(err) || attempts >= r.config.MaxRetries {
			return false, attempts, err
		}
		r.logger.Debug("retrying enqueue", "id", doc.ID, "attempt", attempts, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, attempts, ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
}
