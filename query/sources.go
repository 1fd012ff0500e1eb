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

package query

import (
	"cmp"
	"slices"

	"github.com/poiesic/episodic/core"
)

// groupSources collapses ranked partitions into one Source per document.
// ranked must be ordered by relevance descending, so the first partition
// seen for a document is its best one.
func groupSources(ranked []*core.Partition) []core.Source {
	index := make(map[core.DocumentID]int)
	sources := make([]core.Source, 0)
	unions := make(map[core.DocumentID]core.Tags)

	for _, p := range ranked {
		i, seen := index[p.DocumentID]
		if !seen {
			index[p.DocumentID] = len(sources)
			sources = append(sources, core.Source{
				DocumentID:  p.DocumentID,
				Title:       p.Tags.First(core.TagTitle),
				URI:         p.Tags.First(core.TagURI),
				PublishDate: p.Tags.First(core.TagDate),
				Excerpt:     p.Text,
				Relevance:   p.Relevance,
			})
			unions[p.DocumentID] = core.Tags{}
			i = len(sources) - 1
		} else if p.Relevance > sources[i].Relevance {
			sources[i].Excerpt = p.Text
			sources[i].Relevance = p.Relevance
		}

		union := unions[p.DocumentID]
		union.Add(core.TagSpeaker, p.Tags.Get(core.TagSpeaker)...)
		union.Add(core.TagTopic, p.Tags.Get(core.TagTopic)...)
	}

	for i := range sources {
		union := unions[sources[i].DocumentID]
		sources[i].Speakers = union.Get(core.TagSpeaker)
		sources[i].Topics = union.Get(core.TagTopic)
	}

	slices.SortStableFunc(sources, func(a, b core.Source) int {
		if c := cmp.Compare(b.Relevance, a.Relevance); c != 0 {
			return c
		}
		return cmp.Compare(a.DocumentID, b.DocumentID)
	})
	return sources
}
