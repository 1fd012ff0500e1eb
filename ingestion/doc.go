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

// Package ingestion implements the document indexing pipeline.
//
// A document id received from the queue is processed in order:
//
//  1. mark Processing
//  2. fetch transcript and metadata
//  3. split the transcript into partitions
//  4. tag every partition with title, uri, date, speakers and topics
//  5. embed all partitions in one batch
//  6. replace the document's partitions in the store
//  7. verify the stored count and mark Completed
//
// Any failure from step 2 on marks the document Failed with the error as
// reason. Retries happen only through queue redelivery.
package ingestion
