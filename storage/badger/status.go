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
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
)

// StatusRepository implements storage.StatusRepository for BadgerDB.
type StatusRepository struct {
	backend *Backend
}

var _ storage.StatusRepository = (*StatusRepository)(nil)

// NewStatusRepository creates a new StatusRepository.
func NewStatusRepository(backend *Backend) *StatusRepository {
	return &StatusRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is owned by the caller.
func (r *StatusRepository) Close() error {
	return nil
}

// GetStatus retrieves the status record of a document.
func (r *StatusRepository) GetStatus(ctx context.Context, id core.DocumentID) (*core.StatusRecord, error) {
	var result *core.StatusRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readStatus(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetStatuses retrieves several records from one snapshot.
func (r *StatusRepository) GetStatuses(ctx context.Context, ids ...core.DocumentID) (map[core.DocumentID]*core.StatusRecord, error) {
	results := make(map[core.DocumentID]*core.StatusRecord, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			rec, err := readStatus(tx, id)
			if err != nil {
				return err
			}
			if rec != nil {
				results[id] = rec
			}
		}
		return nil
	}, false)
	return results, err
}

// UpdateStatus performs a read-modify-write of one status record. Badger
// detects concurrent writers of the same key at commit and the loser is
// retried against the fresh value, so updates per id are linearizable.
func (r *StatusRepository) UpdateStatus(ctx context.Context, id core.DocumentID, fn func(current *core.StatusRecord) (*core.StatusRecord, error)) (*core.StatusRecord, error) {
	var result *core.StatusRecord
	err := r.backend.WithRetryTx(ctx, func(tx *badger.Txn) error {
		current, err := readStatus(tx, id)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		next.ID = id
		next.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

		if err := tx.Set(makeStatusKey(id), storage.MarshalStatusRecord(next)); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListStatuses returns every status record ordered by document id.
func (r *StatusRepository) ListStatuses(ctx context.Context) ([]*core.StatusRecord, error) {
	var results []*core.StatusRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(statusPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				rec, err := storage.UnmarshalStatusRecord(val)
				if err != nil {
					return err
				}
				results = append(results, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return results, err
}

// readStatus reads a status record. Returns nil, nil if none exists.
func readStatus(tx *badger.Txn, id core.DocumentID) (*core.StatusRecord, error) {
	item, err := tx.Get(makeStatusKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var rec *core.StatusRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		rec, unmarshalErr = storage.UnmarshalStatusRecord(val)
		return unmarshalErr
	})
	return rec, err
}
