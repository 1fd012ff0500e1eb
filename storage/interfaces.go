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

package storage

import (
	"context"

	"github.com/poiesic/episodic/core"
)

// PartitionStore persists partitions and their embeddings and answers
// similarity queries over them.
// Implementations must be thread-safe and support concurrent access.
type PartitionStore interface {
	// UpsertPartitions replaces every partition of the document with the
	// given set. The replacement is atomic: readers see either the old set
	// or the new one.
	UpsertPartitions(ctx context.Context, id core.DocumentID, partitions []*core.Partition) error

	// SimilaritySearch returns partitions whose tags satisfy filter and whose
	// relevance to vector is >= minRelevance. Relevance is in [0,1].
	// Results are ordered by relevance descending, then position ascending,
	// then document id ascending. A limit <= 0 returns every match.
	SimilaritySearch(ctx context.Context, vector []float32, filter core.QueryFilter, minRelevance float32, limit int) ([]*core.Partition, error)

	// CountPartitions returns how many partitions are stored for the document.
	CountPartitions(ctx context.Context, id core.DocumentID) (int, error)

	// DeletePartitions removes every partition of the document.
	DeletePartitions(ctx context.Context, id core.DocumentID) error

	// Close releases resources held by the store.
	Close() error
}

// StatusRepository persists per-document pipeline status records.
type StatusRepository interface {
	// GetStatus retrieves the record for a document.
	// Returns ErrNotFound if no record exists.
	GetStatus(ctx context.Context, id core.DocumentID) (*core.StatusRecord, error)

	// GetStatuses retrieves records for several documents.
	// Missing documents are absent from the result map.
	GetStatuses(ctx context.Context, ids ...core.DocumentID) (map[core.DocumentID]*core.StatusRecord, error)

	// UpdateStatus runs fn against the current record (nil when none exists)
	// and stores the record it returns, all in one transaction. Concurrent
	// updates to the same id are serialized. If fn returns an error nothing
	// is written and the error is returned unchanged.
	UpdateStatus(ctx context.Context, id core.DocumentID, fn func(current *core.StatusRecord) (*core.StatusRecord, error)) (*core.StatusRecord, error)

	// ListStatuses returns every stored record ordered by document id.
	ListStatuses(ctx context.Context) ([]*core.StatusRecord, error)

	// Close releases resources held by the repository.
	Close() error
}

// CatalogRepository persists the metadata of documents submitted for indexing.
type CatalogRepository interface {
	// PutDocuments stores or replaces documents keyed by their id.
	// Sets InsertedAt if not already set.
	PutDocuments(ctx context.Context, docs ...*core.Document) error

	// GetDocument retrieves a document by id.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.DocumentID) (*core.Document, error)

	// ListDocuments returns every catalogued document ordered by publish date
	// descending, newest first.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// Close releases resources held by the repository.
	Close() error
}
