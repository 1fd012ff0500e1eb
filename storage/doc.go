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

// Package storage provides the storage abstraction layer for episodic.
//
// This package defines repository interfaces that decouple storage implementation
// from the indexing pipeline and the query engine:
//
//   - PartitionStore: partitions, embeddings and similarity search
//   - StatusRepository: per-document pipeline status
//   - CatalogRepository: metadata of documents submitted for indexing
//
// Two partition store backends exist. storage/badger keeps everything in one
// BadgerDB instance and scans vectors linearly. storage/chromem keeps
// partitions in an embedded chromem-go collection. Status and catalog
// records always live in BadgerDB.
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	stores, err := badger.NewMemoryStores()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stores.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines. StatusRepository.UpdateStatus
// is the only read-modify-write primitive; it is serialized per document.
package storage
