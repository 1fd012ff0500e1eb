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
	"unicode/utf8"

	"github.com/poiesic/episodic/ai"
	"github.com/poiesic/episodic/core"
)

// DefaultContextBudget is the number of characters of partition text
// handed to the answer generator.
const DefaultContextBudget = 6000

// buildContextWindow takes ranked partitions until the next one would exceed
// budget characters. The top partition is always included, truncated if it
// alone exceeds the budget; a later partition that does not fit is dropped
// whole along with the rest.
func buildContextWindow(ranked []*core.Partition, budget int) ([]ai.Passage, bool) {
	passages := make([]ai.Passage, 0, len(ranked))
	used := 0
	truncated := false

	for i, p := range ranked {
		text := p.Text
		n := utf8.RuneCountInString(text)
		if used+n > budget {
			if i > 0 {
				truncated = true
				break
			}
			text = truncateRunes(text, budget)
			n = budget
			truncated = true
		}
		passages = append(passages, toPassage(p, text))
		used += n
	}
	return passages, truncated
}

func toPassage(p *core.Partition, text string) ai.Passage {
	return ai.Passage{
		Title:    p.Tags.First(core.TagTitle),
		Date:     p.Tags.First(core.TagDate),
		Speakers: p.Tags.Get(core.TagSpeaker),
		Text:     text,
	}
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
