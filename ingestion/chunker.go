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

package ingestion

import (
	"fmt"
	"strings"

	"github.com/poiesic/episodic/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the partition size in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared by neighboring partitions.
	DefaultChunkOverlap = 100
)

// Chunker splits transcripts into partitions. Splitting is a pure function
// of the text and the configured size and overlap.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
	size     int
	overlap  int
}

// NewChunker creates a chunker producing chunks of at most size characters.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0,%d), got %d", size, overlap)
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
		size:    size,
		overlap: overlap,
	}, nil
}

// Split returns the non-blank chunks of text in order.
func (c *Chunker) Split(text string) ([]string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	chunks, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	out := chunks[:0]
	for _, chunk := range chunks {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			out = append(out, chunk)
		}
	}
	return out, nil
}

// Partition splits content and tags every chunk with the document's metadata.
func (c *Chunker) Partition(content *core.Content) ([]*core.Partition, error) {
	chunks, err := c.Split(content.Text)
	if err != nil {
		return nil, err
	}

	tags := DocumentTags(content.Document)
	partitions := make([]*core.Partition, len(chunks))
	for i, chunk := range chunks {
		partitions[i] = &core.Partition{
			DocumentID: content.Document.ID,
			Position:   i,
			Text:       chunk,
			Tags:       tags.Clone(),
		}
	}
	return partitions, nil
}

// DocumentTags builds the tag set shared by every partition of doc. The
// title, uri and date keys are always present.
func DocumentTags(doc *core.Document) core.Tags {
	tags := core.Tags{
		core.TagTitle: {doc.Title},
		core.TagURI:   {doc.URI},
		core.TagDate:  {doc.PublishDate.UTC().Format(core.DateLayout)},
	}
	tags.Add(core.TagSpeaker, doc.Speakers...)
	tags.Add(core.TagTopic, doc.Topics...)
	return tags
}
