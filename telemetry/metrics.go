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

// Package telemetry provides Prometheus metrics for dispatch, indexing and
// question answering.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "episodic"

// Outcome label values.
const (
	OutcomeEnqueued   = "enqueued"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
	OutcomeCompleted  = "completed"
	OutcomeAnswered   = "answered"
	OutcomeUngrounded = "ungrounded"
	OutcomeInvalid    = "invalid"
)

var (
	// DispatchTotal counts dispatch decisions per candidate.
	// Labels: outcome (enqueued, skipped, failed)
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "documents_total",
			Help:      "Total number of candidate documents by dispatch outcome",
		},
		[]string{"outcome"},
	)

	// IndexingTotal counts finished indexing attempts.
	// Labels: outcome (completed, failed)
	IndexingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Total number of indexing attempts by outcome",
		},
		[]string{"outcome"},
	)

	// PartitionsWritten counts partitions persisted by the pipeline.
	PartitionsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "partitions_written_total",
			Help:      "Total number of partitions persisted",
		},
	)

	// IndexingDuration tracks how long one indexing attempt takes.
	IndexingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "indexing_duration_seconds",
			Help:      "Duration of indexing attempts in seconds",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// AskTotal counts questions by outcome.
	// Labels: outcome (answered, ungrounded, invalid, failed)
	AskTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "asks_total",
			Help:      "Total number of questions by outcome",
		},
		[]string{"outcome"},
	)

	// AskDuration tracks end-to-end question answering latency.
	AskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "ask_duration_seconds",
			Help:      "Duration of question answering in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// RecordDispatch counts one dispatch decision.
func RecordDispatch(outcome string) {
	DispatchTotal.WithLabelValues(outcome).Inc()
}

// RecordIndexing counts one indexing attempt and its duration.
func RecordIndexing(outcome string, partitions int, elapsed time.Duration) {
	IndexingTotal.WithLabelValues(outcome).Inc()
	IndexingDuration.Observe(elapsed.Seconds())
	if partitions > 0 {
		PartitionsWritten.Add(float64(partitions))
	}
}

// RecordAsk counts one question and its duration.
func RecordAsk(outcome string, elapsed time.Duration) {
	AskTotal.WithLabelValues(outcome).Inc()
	AskDuration.Observe(elapsed.Seconds())
}
