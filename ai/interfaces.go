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

package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AnswerGenerator composes an answer to a question from retrieved passages.
// Implementations must be thread-safe for concurrent use.
type AnswerGenerator interface {
	// GenerateAnswer answers question using only the supplied passages.
	// Passages arrive in rank order, most relevant first.
	GenerateAnswer(ctx context.Context, question string, passages []Passage) (string, error)
}

// SpeechSynthesizer renders text to audio.
type SpeechSynthesizer interface {
	// Synthesize returns encoded audio (mp3) for text.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// AnswerGenerator returns the answer composition service.
	AnswerGenerator() AnswerGenerator

	// SpeechSynthesizer returns the text-to-speech service, or nil when
	// speech is not configured.
	SpeechSynthesizer() SpeechSynthesizer

	// Close releases resources held by the provider and its services.
	Close() error
}
