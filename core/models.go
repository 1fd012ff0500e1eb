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

package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// DateLayout is the layout used for the "date" partition tag.
const DateLayout = "2006-01-02"

// NoGroundedAnswer is the answer text returned when no partition qualifies.
const NoGroundedAnswer = "I couldn't find anything in the episodes that answers that question."

// DocumentID identifies a source document. It is derived from the
// document's title and publish timestamp so the same episode always maps
// to the same id.
type DocumentID string

// NewDocumentID hashes title and publish date with BLAKE2b.
func NewDocumentID(title string, publishDate time.Time) DocumentID {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(publishDate.UTC().Format(time.RFC3339)))
	return DocumentID(hex.EncodeToString(h.Sum(nil)))
}

func (id DocumentID) String() string {
	return string(id)
}

// Document is the metadata of an episode submitted for indexing.
// Transcript may carry the content inline; otherwise ContentRef points
// at a file path or http(s) URL holding it.
type Document struct {
	ID          DocumentID `json:"id"`
	Title       string     `json:"title"`
	URI         string     `json:"uri"`
	PublishDate time.Time  `json:"publish_date"`
	ContentRef  string     `json:"content_ref,omitempty"`
	Transcript  string     `json:"transcript,omitempty"`
	Speakers    []string   `json:"speakers,omitempty"`
	Topics      []string   `json:"topics,omitempty"`
	InsertedAt  time.Time  `json:"inserted_at"`
}

// AssignID computes and stores the document's id.
func (d *Document) AssignID() DocumentID {
	d.ID = NewDocumentID(d.Title, d.PublishDate)
	return d.ID
}

// Content is a document's metadata together with its transcript text.
type Content struct {
	Document *Document
	Text     string
}

// Partition is one contiguous fragment of a document's transcript.
// Relevance is only populated on search results and never persisted.
type Partition struct {
	DocumentID DocumentID `json:"document_id"`
	Position   int        `json:"position"`
	Text       string     `json:"text"`
	Tags       Tags       `json:"tags"`
	Vector     []float32  `json:"vector,omitempty"`
	Relevance  float32    `json:"-"`
}

// Source is a cited document in an answer.
type Source struct {
	DocumentID  DocumentID `json:"document_id"`
	Title       string     `json:"title"`
	URI         string     `json:"uri"`
	PublishDate string     `json:"publish_date,omitempty"`
	Speakers    []string   `json:"speakers,omitempty"`
	Topics      []string   `json:"topics,omitempty"`
	Excerpt     string     `json:"excerpt"`
	Relevance   float32    `json:"relevance"`
}

// AnswerResult is the outcome of a question.
type AnswerResult struct {
	Answer   string   `json:"answer"`
	Grounded bool     `json:"grounded"`
	Sources  []Source `json:"sources"`
	AudioRef string   `json:"audio_ref,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
