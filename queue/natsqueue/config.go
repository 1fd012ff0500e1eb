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

package natsqueue

import (
	"errors"
	"time"
)

// Config describes the JetStream stream and durable consumer.
type Config struct {
	// URL of the NATS server. Ignored when Embedded is set.
	URL string `koanf:"url"`

	// Embedded starts an in-process NATS server with JetStream.
	Embedded bool `koanf:"embedded"`

	// StoreDir holds JetStream data for the embedded server.
	StoreDir string `koanf:"store_dir"`

	Stream   string `koanf:"stream"`
	Subject  string `koanf:"subject"`
	Consumer string `koanf:"consumer"`

	// MaxDeliver bounds deliveries of one message before it is dropped.
	MaxDeliver int `koanf:"max_deliver"`

	// AckWait is how long a delivery may stay unacknowledged.
	AckWait time.Duration `koanf:"ack_wait"`

	// BackOff lists redelivery delays per failed attempt. The last entry
	// repeats for later attempts.
	BackOff []time.Duration `koanf:"backoff"`

	// Duplicates is the broker's duplicate detection window.
	Duplicates time.Duration `koanf:"duplicates"`

	// Prefetch caps messages pulled ahead of processing.
	Prefetch int `koanf:"prefetch"`
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		URL:        "nats://localhost:4222",
		Stream:     "EPISODIC",
		Subject:    "episodic.index",
		Consumer:   "episodic-indexer",
		MaxDeliver: 5,
		AckWait:    2 * time.Minute,
		BackOff:    []time.Duration{5 * time.Second, 30 * time.Second, 2 * time.Minute},
		Duplicates: 2 * time.Minute,
		Prefetch:   16,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if !c.Embedded && c.URL == "" {
		return errors.New("nats config: URL is required")
	}
	if c.Stream == "" || c.Subject == "" || c.Consumer == "" {
		return errors.New("nats config: Stream, Subject and Consumer are required")
	}
	if c.MaxDeliver < 1 {
		return errors.New("nats config: MaxDeliver must be at least 1")
	}
	if c.AckWait <= 0 {
		return errors.New("nats config: AckWait must be positive")
	}
	for _, d := range c.BackOff {
		if d < 0 {
			return errors.New("nats config: BackOff delays must not be negative")
		}
	}
	return nil
}

// RetryDelay returns the redelivery delay after the given 1-based attempt.
func (c Config) RetryDelay(attempt int) time.Duration {
	if len(c.BackOff) == 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(c.BackOff) {
		return c.BackOff[len(c.BackOff)-1]
	}
	return c.BackOff[attempt-1]
}
