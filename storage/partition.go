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
	"cmp"
	"fmt"
	"slices"

	"github.com/poiesic/episodic/core"
)

// SortByRelevance orders partitions by relevance descending, then position
// ascending, then document id ascending. Every PartitionStore returns
// search results in this order.
func SortByRelevance(partitions []*core.Partition) {
	slices.SortFunc(partitions, func(a, b *core.Partition) int {
		if c := cmp.Compare(b.Relevance, a.Relevance); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.DocumentID, b.DocumentID)
	})
}

// ValidatePartitions checks every partition belongs to id, carries a
// vector and has a unique non-negative position.
func ValidatePartitions(id core.DocumentID, partitions []*core.Partition) error {
	seen := make(map[int]bool, len(partitions))
	for _, p := range partitions {
		if p == nil {
			return fmt.Errorf("%w: nil partition", ErrInvalidQuery)
		}
		if p.DocumentID != id {
			return fmt.Errorf("%w: partition belongs to %s, not %s", ErrInvalidQuery, p.DocumentID, id)
		}
		if p.Position < 0 || seen[p.Position] {
			return fmt.Errorf("%w: invalid or duplicate position %d", ErrInvalidQuery, p.Position)
		}
		if len(p.Vector) == 0 {
			return fmt.Errorf("%w: partition %d has no vector", ErrInvalidQuery, p.Position)
		}
		seen[p.Position] = true
	}
	return nil
}
