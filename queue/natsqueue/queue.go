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

// Package natsqueue implements the indexing queue on NATS JetStream.
//
// Jobs go to a work-queue stream, so each message is removed once a consumer
// acknowledges it. One durable pull consumer is shared by every worker
// process; JetStream spreads deliveries across them.
package natsqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/queue"
)

// Queue is a JetStream-backed queue.Publisher and queue.Consumer.
type Queue struct {
	cfg      Config
	conn     *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	embedded *natsserver.Server
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ queue.Queue = (*Queue)(nil)

// Option configures a Queue.
type Option func(*Queue) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) error {
		if logger == nil {
			logger = slog.Default()
		}
		q.logger = logger.With("component", "nats-queue")
		return nil
	}
}

// Connect dials NATS (or starts an embedded server) and ensures the stream exists.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Queue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	q := &Queue{
		cfg:    cfg,
		logger: slog.Default().With("component", "nats-queue"),
	}
	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, err
		}
	}

	url := cfg.URL
	if cfg.Embedded {
		srv, err := StartEmbedded(cfg.StoreDir)
		if err != nil {
			return nil, err
		}
		q.embedded = srv
		url = srv.ClientURL()
		q.logger.Info("started embedded nats server", "url", url)
	}

	conn, err := nats.Connect(url,
		nats.Name("episodic"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		q.shutdownEmbedded()
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	q.conn = conn

	if q.js, err = jetstream.New(conn); err != nil {
		q.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	q.stream, err = q.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{cfg.Subject},
		Retention:  jetstream.WorkQueuePolicy,
		Storage:    jetstream.FileStorage,
		Duplicates: cfg.Duplicates,
	})
	if err != nil {
		q.Close()
		return nil, fmt.Errorf("creating stream %s: %w", cfg.Stream, err)
	}

	q.logger.Debug("queue ready", "stream", cfg.Stream, "subject", cfg.Subject)
	return q, nil
}

// Config returns the queue's configuration.
func (q *Queue) Config() Config {
	return q.cfg
}

// Publish sends the job's document id, using the job's dedup key as the
// JetStream message id.
func (q *Queue) Publish(ctx context.Context, job queue.Job) error {
	if q.isClosed() {
		return queue.ErrQueueClosed
	}

	ack, err := q.js.Publish(ctx, q.cfg.Subject, []byte(job.DocumentID), jetstream.WithMsgID(job.DedupKey()))
	if err != nil {
		return fmt.Errorf("publishing %s: %w", job.DocumentID, err)
	}
	if ack.Duplicate {
		q.logger.Debug("broker dropped duplicate publish", "id", job.DocumentID)
	}
	return nil
}

// Consume pulls messages from the durable consumer until ctx is done.
// Messages with an unusable payload are terminated without reaching handle.
func (q *Queue) Consume(ctx context.Context, handle queue.Handler) error {
	if q.isClosed() {
		return queue.ErrQueueClosed
	}

	consumer, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       q.cfg.Consumer,
		FilterSubject: q.cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       q.cfg.AckWait,
		MaxDeliver:    q.cfg.MaxDeliver,
	})
	if err != nil {
		return fmt.Errorf("creating consumer %s: %w", q.cfg.Consumer, err)
	}

	var msgOpts []jetstream.PullMessagesOpt
	if q.cfg.Prefetch > 0 {
		msgOpts = append(msgOpts, jetstream.PullMaxMessages(q.cfg.Prefetch))
	}
	iter, err := consumer.Messages(msgOpts...)
	if err != nil {
		return fmt.Errorf("starting message iterator: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		iter.Stop()
	}()

	q.logger.Info("consuming", "consumer", q.cfg.Consumer, "subject", q.cfg.Subject)
	for {
		msg, err := iter.Next()
		if err != nil {
			if errors.Is(err, jetstream.ErrMsgIteratorClosed) {
				return ctx.Err()
			}
			return fmt.Errorf("receiving message: %w", err)
		}

		d, err := newDelivery(msg)
		if err != nil {
			q.logger.Warn("terminating malformed message", "err", err)
			if termErr := msg.Term(); termErr != nil {
				q.logger.Error("failed to terminate message", "err", termErr)
			}
			continue
		}
		handle(d)
	}
}

// Close drains the connection and stops an embedded server.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	var err error
	if q.conn != nil {
		err = q.conn.Drain()
	}
	q.shutdownEmbedded()
	return err
}

func (q *Queue) shutdownEmbedded() {
	if q.embedded != nil {
		q.embedded.Shutdown()
		q.embedded.WaitForShutdown()
	}
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

type delivery struct {
	msg     jetstream.Msg
	id      core.DocumentID
	attempt int
}

var _ queue.Delivery = (*delivery)(nil)

func newDelivery(msg jetstream.Msg) (*delivery, error) {
	id, err := queue.ParsePayload(msg.Data())
	if err != nil {
		return nil, err
	}
	attempt := 1
	if meta, err := msg.Metadata(); err == nil {
		attempt = int(meta.NumDelivered)
	}
	return &delivery{msg: msg, id: id, attempt: attempt}, nil
}

func (d *delivery) DocumentID() core.DocumentID { return d.id }
func (d *delivery) Attempt() int                { return d.attempt }
func (d *delivery) Ack() error                  { return d.msg.Ack() }
func (d *delivery) Term() error                 { return d.msg.Term() }
func (d *delivery) InProgress() error           { return d.msg.InProgress() }

func (d *delivery) Nak(delay time.Duration) error {
	if delay <= 0 {
		return d.msg.Nak()
	}
	return d.msg.NakWithDelay(delay)
}
