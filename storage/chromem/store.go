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

// Package chromem implements storage.PartitionStore on an embedded
// chromem-go vector database.
//
// chromem metadata is a flat string map, so multi-valued tags are stored
// as one JSON-encoded field and filtered after the nearest neighbor scan.
// Positions must be contiguous from zero; partition counts are derived
// from that.
package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
)

const (
	// DefaultCollection is the collection holding every partition.
	DefaultCollection = "partitions"

	metaDocumentID = "document_id"
	metaPosition   = "position"
	metaTags       = "tags"
)

// Store implements storage.PartitionStore with chromem-go.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	// mu makes replace-all upserts atomic with respect to searches.
	mu     sync.RWMutex
	logger *slog.Logger
}

var _ storage.PartitionStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "chromem-store")
		return nil
	}
}

// Open opens a chromem database. An empty path keeps everything in memory;
// otherwise documents are persisted under path, optionally gzip-compressed.
func Open(path string, compress bool, opts ...Option) (*Store, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db at %s: %w", path, err)
		}
	}

	// Embeddings are always supplied by the caller, so the collection's
	// embedding function is never invoked.
	collection, err := db.GetOrCreateCollection(DefaultCollection, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", DefaultCollection, err)
	}

	s := &Store{
		db:         db,
		collection: collection,
		logger:     slog.Default().With("component", "chromem-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func noEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("%w: embeddings must be precomputed", storage.ErrInvalidQuery)
}

// Close is a no-op; chromem persists on every write.
func (s *Store) Close() error {
	return nil
}

// UpsertPartitions replaces every partition of the document. If the context
// ends or a write fails part way, the previous set is restored and the error
// returned.
func (s *Store) UpsertPartitions(ctx context.Context, id core.DocumentID, partitions []*core.Partition) error {
	if err := storage.ValidatePartitions(id, partitions); err != nil {
		return err
	}
	for _, p := range partitions {
		if p.Position >= len(partitions) {
			return fmt.Errorf("%w: positions must be contiguous from zero", storage.ErrInvalidQuery)
		}
	}

	docs := make([]chromem.Document, len(partitions))
	for i, p := range partitions {
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		docs[i] = chromem.Document{
			ID:      partitionID(id, p.Position),
			Content: p.Text,
			Metadata: map[string]string{
				metaDocumentID: string(id),
				metaPosition:   strconv.Itoa(p.Position),
				metaTags:       string(tags),
			},
			Embedding: p.Vector,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	previous := s.snapshot(ctx, id)
	if err := s.replace(ctx, id, docs); err != nil {
		if restoreErr := s.replace(context.WithoutCancel(ctx), id, previous); restoreErr != nil {
			s.logger.Error("failed to restore partitions", "id", id, "err", restoreErr)
			return errors.Join(err, restoreErr)
		}
		return err
	}

	s.logger.Debug("stored partitions", "id", id, "count", len(docs))
	return nil
}

// snapshot copies the stored partitions of a document. Must be called with
// the write lock held.
func (s *Store) snapshot(ctx context.Context, id core.DocumentID) []chromem.Document {
	var docs []chromem.Document
	for position := 0; ; position++ {
		doc, err := s.collection.GetByID(ctx, partitionID(id, position))
		if err != nil {
			return docs
		}
		docs = append(docs, doc)
	}
}

// replace deletes the document's partitions and adds docs one at a time,
// checking the context between writes. Must be called with the write lock
// held.
func (s *Store) replace(ctx context.Context, id core.DocumentID, docs []chromem.Document) error {
	if err := s.collection.Delete(ctx, map[string]string{metaDocumentID: string(id)}, nil); err != nil {
		return fmt.Errorf("deleting partitions of %s: %w", id, err)
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("adding partition %s: %w", doc.ID, err)
		}
	}
	return nil
}

// DeletePartitions removes every partition of the document.
func (s *Store) DeletePartitions(ctx context.Context, id core.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection.Delete(ctx, map[string]string{metaDocumentID: string(id)}, nil)
}

// CountPartitions walks positions from zero until one is missing.
func (s *Store) CountPartitions(ctx context.Context, id core.DocumentID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for {
		if _, err := s.collection.GetByID(ctx, partitionID(id, count)); err != nil {
			return count, nil
		}
		count++
	}
}

// SimilaritySearch ranks every stored partition against vector, then applies
// the tag filter and relevance floor.
func (s *Store) SimilaritySearch(ctx context.Context, vector []float32, filter core.QueryFilter, minRelevance float32, limit int) ([]*core.Partition, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// chromem requires nResults <= doc count
	n := s.collection.Count()
	if n == 0 {
		return []*core.Partition{}, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", DefaultCollection, err)
	}

	matches := make([]*core.Partition, 0, len(results))
	for _, r := range results {
		relevance := min(max(r.Similarity, 0), 1)
		if relevance < minRelevance {
			continue
		}
		p, err := toPartition(r)
		if err != nil {
			return nil, err
		}
		if !filter.Matches(p.Tags) {
			continue
		}
		p.Relevance = relevance
		matches = append(matches, p)
	}

	storage.SortByRelevance(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func partitionID(id core.DocumentID, position int) string {
	return string(id) + ":" + strconv.Itoa(position)
}

func toPartition(r chromem.Result) (*core.Partition, error) {
	position, err := strconv.Atoi(r.Metadata[metaPosition])
	if err != nil {
		return nil, fmt.Errorf("%w: position of %s: %w", storage.ErrSerializationFailed, r.ID, err)
	}
	tags := core.Tags{}
	if raw := r.Metadata[metaTags]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil, fmt.Errorf("%w: tags of %s: %w", storage.ErrSerializationFailed, r.ID, err)
		}
	}
	return &core.Partition{
		DocumentID: core.DocumentID(r.Metadata[metaDocumentID]),
		Position:   position,
		Text:       r.Content,
		Tags:       tags,
	}, nil
}
