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

// Package reindex re-queues catalogued episodes for indexing in bulk.
//
// Switching embedding models or chunking settings leaves every stored
// partition stale. Reindexer walks the catalog in batches, optionally
// keeping only documents in selected pipeline statuses, and force-enqueues
// each one through the dispatcher so the indexing workers rebuild its
// partitions. Documents currently being processed are left alone.
//
// # Usage Example
//
//	r := reindex.NewReindexer(db.CatalogRepository(), db.Tracker(), dispatcher, nil, os.Stderr)
//	summary, err := r.Run(ctx)
package reindex
