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

package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
)

// PartitionRepository implements storage.PartitionStore for BadgerDB.
// Similarity search is a linear scan over every stored vector.
type PartitionRepository struct {
	backend *Backend
}

var _ storage.PartitionStore = (*PartitionRepository)(nil)

// NewPartitionRepository creates a new PartitionRepository.
func NewPartitionRepository(backend *Backend) *PartitionRepository {
	return &PartitionRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is owned by the caller.
func (r *PartitionRepository) Close() error {
	return nil
}

// UpsertPartitions replaces all partitions of a document in one transaction.
func (r *PartitionRepository) UpsertPartitions(ctx context.Context, id core.DocumentID, partitions []*core.Partition) error {
	if err := storage.ValidatePartitions(id, partitions); err != nil {
		return err
	}

	values := make([][]byte, len(partitions))
	for i, p := range partitions {
		values[i] = storage.MarshalPartition(p)
	}

	return r.backend.WithRetryTx(ctx, func(tx *badger.Txn) error {
		if err := deletePartitionKeys(tx, id); err != nil {
			return err
		}
		for i, p := range partitions {
			if err := tx.Set(makePartitionKey(id, p.Position), values[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeletePartitions removes every partition of a document.
func (r *PartitionRepository) DeletePartitions(ctx context.Context, id core.DocumentID) error {
	return r.backend.WithRetryTx(ctx, func(tx *badger.Txn) error {
		return deletePartitionKeys(tx, id)
	})
}

// CountPartitions counts the stored partitions of a document.
func (r *PartitionRepository) CountPartitions(ctx context.Context, id core.DocumentID) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialPartitionKey(id)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// SimilaritySearch scans all partitions, keeping those that match the
// filter and clear the relevance floor.
func (r *PartitionRepository) SimilaritySearch(ctx context.Context, vector []float32, filter core.QueryFilter, minRelevance float32, limit int) ([]*core.Partition, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	var results []*core.Partition

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(partitionPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var p *core.Partition
			err := iter.Item().Value(func(val []byte) error {
				var err error
				p, err = storage.UnmarshalPartition(val)
				return err
			})
			if err != nil {
				return err
			}

			if !filter.Matches(p.Tags) {
				continue
			}
			if len(p.Vector) != len(vector) {
				return fmt.Errorf("%w: query has %d dimensions, partition %s/%d has %d",
					storage.ErrDimensionMismatch, len(vector), p.DocumentID, p.Position, len(p.Vector))
			}

			relevance := cosineSimilarity(vector, p.Vector)
			if relevance < minRelevance {
				continue
			}
			p.Relevance = relevance
			p.Vector = nil
			results = append(results, p)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	storage.SortByRelevance(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// deletePartitionKeys removes every key under the document's partition prefix.
func deletePartitionKeys(tx *badger.Txn, id core.DocumentID) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialPartitionKey(id)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
