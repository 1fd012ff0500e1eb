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

// Package queue defines the work queue between the ingestion dispatcher and
// the indexing pipeline. A message carries exactly one document id.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/episodic/core"
)

var (
	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("queue closed")

	// ErrInvalidPayload marks a message whose body is not a document id.
	ErrInvalidPayload = errors.New("invalid queue payload")
)

// Job is one indexing request.
type Job struct {
	DocumentID core.DocumentID

	// QueuedAt is the time the status tracker accepted the request.
	// Together with DocumentID it identifies a single enqueue, so
	// a retried publish of the same enqueue is dropped by the broker
	// while a later re-queue of the document is not.
	QueuedAt time.Time
}

// DedupKey identifies this enqueue for broker-side duplicate detection.
func (j Job) DedupKey() string {
	return fmt.Sprintf("%s:%d", j.DocumentID, j.QueuedAt.UnixNano())
}

// Publisher hands jobs to the queue.
type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

// Delivery is a received job awaiting acknowledgement.
type Delivery interface {
	// DocumentID is the id carried by the message.
	DocumentID() core.DocumentID

	// Attempt is the 1-based delivery count.
	Attempt() int

	// Ack removes the message from the queue.
	Ack() error

	// Nak asks for redelivery after delay.
	Nak(delay time.Duration) error

	// Term drops the message without redelivery.
	Term() error

	// InProgress extends the acknowledgement deadline.
	InProgress() error
}

// Handler processes one delivery. It owns acknowledging it.
type Handler func(d Delivery)

// Consumer pulls deliveries and hands them to a handler.
type Consumer interface {
	// Consume blocks, calling handle for each delivery until ctx is done.
	Consume(ctx context.Context, handle Handler) error
}

// Queue is a Publisher and Consumer sharing one connection.
type Queue interface {
	Publisher
	Consumer
	Close() error
}

// ParsePayload validates a raw message body.
func ParsePayload(data []byte) (core.DocumentID, error) {
	id := core.DocumentID(data)
	if len(id) == 0 || len(id) > 256 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPayload, data)
	}
	return id, nil
}
