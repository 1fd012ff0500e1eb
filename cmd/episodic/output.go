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

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/episodic/ai"
	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/query"
)

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// buildFilter returns nil when neither speakers nor topics are given.
func buildFilter(speakers, topics []string) core.QueryFilter {
	filter := core.QueryFilter{}
	if len(speakers) > 0 {
		filter[core.TagSpeaker] = speakers
	}
	if len(topics) > 0 {
		filter[core.TagTopic] = topics
	}
	if filter.IsEmpty() {
		return nil
	}
	return filter
}

func printAnswer(w io.Writer, result *core.AnswerResult) {
	fmt.Fprintln(w, result.Answer)

	if len(result.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for i, src := range result.Sources {
			fmt.Fprintf(w, "%d: %s (%s) [%0.3f]\n", i+1, src.Title, src.PublishDate, src.Relevance)
			if src.URI != "" {
				fmt.Fprintf(w, "   %s\n", src.URI)
			}
			if len(src.Speakers) > 0 {
				fmt.Fprintf(w, "   speakers: %s\n", strings.Join(src.Speakers, ", "))
			}
		}
	}
	if result.AudioRef != "" {
		fmt.Fprintf(w, "\nAudio: %s\n", result.AudioRef)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

// printMonitor writes each retrieval stage to w.
type printMonitor struct {
	w io.Writer
}

var _ query.Monitor = (*printMonitor)(nil)

func newPrintMonitor(w io.Writer) *printMonitor {
	return &printMonitor{w: w}
}

func (m *printMonitor) Start(question string, filter core.QueryFilter, minRelevance float32) {
	fmt.Fprintf(m.w, "question: %q\n", question)
	if !filter.IsEmpty() {
		fmt.Fprintf(m.w, "filter: %v\n", map[string][]string(filter))
	}
	fmt.Fprintf(m.w, "min relevance: %0.2f\n", minRelevance)
}

func (m *printMonitor) AfterEmbedding(vector []float32) {
	fmt.Fprintf(m.w, "embedded question (%d dimensions)\n", len(vector))
}

func (m *printMonitor) AfterSearch(matches []*core.Partition) {
	fmt.Fprintf(m.w, "%d partitions qualified\n", len(matches))
	for _, p := range matches {
		fmt.Fprintf(m.w, "  %s #%d [%0.3f] %s\n", p.DocumentID, p.Position, p.Relevance, p.Tags.First(core.TagTitle))
	}
}

func (m *printMonitor) AfterContextWindow(passages []ai.Passage, truncated bool) {
	fmt.Fprintf(m.w, "%d passages in context", len(passages))
	if truncated {
		fmt.Fprint(m.w, " (truncated)")
	}
	fmt.Fprintln(m.w)
}

func (m *printMonitor) Finish(result *core.AnswerResult) {
	fmt.Fprintf(m.w, "grounded: %v, %d sources\n\n", result.Grounded, len(result.Sources))
}
