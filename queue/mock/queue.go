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

// Package mock provides an in-memory queue for tests and single-process runs.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/queue"
)

// Queue is an in-memory queue.Publisher and queue.Consumer. Nak'ed
// deliveries are requeued immediately; delays are recorded but not waited on.
type Queue struct {
	// PublishFunc is called by Publish if set, instead of enqueueing.
	PublishFunc func(ctx context.Context, job queue.Job) error

	// MaxDeliver terminates a delivery after this many attempts. Zero means unbounded.
	MaxDeliver int

	mu        sync.Mutex
	published []queue.Job
	seen      map[string]bool
	pending   chan *Delivery
	outcomes  []*Delivery
}

var _ queue.Queue = (*Queue)(nil)

// NewQueue creates an empty in-memory queue.
func NewQueue() *Queue {
	return &Queue{
		seen:    make(map[string]bool),
		pending: make(chan *Delivery, 1024),
	}
}

// Publish enqueues the job unless its dedup key was already published.
func (q *Queue) Publish(ctx context.Context, job queue.Job) error {
	if q.PublishFunc != nil {
		return q.PublishFunc(ctx, job)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, job)
	key := job.DedupKey()
	if q.seen[key] {
		return nil
	}
	q.seen[key] = true
	q.pending <- &Delivery{queue: q, id: job.DocumentID, attempt: 1}
	return nil
}

// Published returns every job passed to Publish, including duplicates.
func (q *Queue) Published() []queue.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.Job(nil), q.published...)
}

// Len returns the number of deliveries waiting to be consumed.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Outcomes returns every delivery that was acked, nak'ed or terminated.
func (q *Queue) Outcomes() []*Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Delivery(nil), q.outcomes...)
}

// Consume hands deliveries to handle until ctx is done.
func (q *Queue) Consume(ctx context.Context, handle queue.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d := <-q.pending:
			handle(d)
		}
	}
}

// Close is a no-op; pending deliveries are discarded with the queue.
func (q *Queue) Close() error {
	return nil
}

func (q *Queue) settle(d *Delivery) {
	q.mu.Lock()
	q.outcomes = append(q.outcomes, d)
	q.mu.Unlock()

	if d.Result() != ResultNak {
		return
	}
	if q.MaxDeliver > 0 && d.attempt >= q.MaxDeliver {
		return
	}
	q.pending <- &Delivery{queue: q, id: d.id, attempt: d.attempt + 1}
}

// Result is how a delivery was settled.
type Result int

const (
	ResultPending Result = iota
	ResultAck
	ResultNak
	ResultTerm
)

// Delivery is an in-memory queue.Delivery.
type Delivery struct {
	queue   *Queue
	id      core.DocumentID
	attempt int

	mu       sync.Mutex
	result   Result
	delay    time.Duration
	progress int
}

var _ queue.Delivery = (*Delivery)(nil)

// NewDelivery creates a standalone delivery not bound to a queue.
func NewDelivery(id core.DocumentID, attempt int) *Delivery {
	return &Delivery{id: id, attempt: attempt}
}

func (d *Delivery) DocumentID() core.DocumentID { return d.id }
func (d *Delivery) Attempt() int                { return d.attempt }

func (d *Delivery) Ack() error {
	d.finish(ResultAck, 0)
	return nil
}

func (d *Delivery) Nak(delay time.Duration) error {
	d.finish(ResultNak, delay)
	return nil
}

func (d *Delivery) Term() error {
	d.finish(ResultTerm, 0)
	return nil
}

func (d *Delivery) InProgress() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progress++
	return nil
}

// Progress returns how many times InProgress was called.
func (d *Delivery) Progress() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progress
}

// Result returns how the delivery was settled.
func (d *Delivery) Result() Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// Delay returns the delay requested by Nak.
func (d *Delivery) Delay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delay
}

func (d *Delivery) finish(r Result, delay time.Duration) {
	d.mu.Lock()
	if d.result != ResultPending {
		d.mu.Unlock()
		return
	}
	d.result = r
	d.delay = delay
	d.mu.Unlock()

	if d.queue != nil {
		d.queue.settle(d)
	}
}
