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

package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a partition store is not provided.
	ErrStoreRequired = errors.New("partition store required")

	// ErrTrackerRequired is returned when a status tracker is not provided.
	ErrTrackerRequired = errors.New("status tracker required")

	// ErrFetcherRequired is returned when a content fetcher is not provided.
	ErrFetcherRequired = errors.New("content fetcher required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmptyContent is returned when a transcript yields no partitions.
	ErrEmptyContent = errors.New("content produced no partitions")

	// ErrPartitionCountMismatch is returned when the store holds a different
	// number of partitions than were computed.
	ErrPartitionCountMismatch = errors.New("persisted partition count mismatch")

	// ErrEmbeddingCountMismatch is returned when the embedder returns a
	// different number of vectors than partitions.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)
