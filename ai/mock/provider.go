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

package mock

import "github.com/poiesic/episodic/ai"

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	embedder  *MockEmbedder
	generator *MockAnswerGenerator
	speech    *MockSpeechSynthesizer
}

var _ ai.AIProvider = (*MockProvider)(nil)

// NewMockProvider creates a provider backed by default mocks.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder:  NewMockEmbedder(),
		generator: NewMockAnswerGenerator(),
		speech:    NewMockSpeechSynthesizer(),
	}
}

// NewMockProviderWithServices creates a provider from the given mocks.
// A nil speech mock makes SpeechSynthesizer return nil.
func NewMockProviderWithServices(embedder *MockEmbedder, generator *MockAnswerGenerator, speech *MockSpeechSynthesizer) *MockProvider {
	return &MockProvider{
		embedder:  embedder,
		generator: generator,
		speech:    speech,
	}
}

func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *MockProvider) AnswerGenerator() ai.AnswerGenerator {
	return p.generator
}

func (p *MockProvider) SpeechSynthesizer() ai.SpeechSynthesizer {
	if p.speech == nil {
		return nil
	}
	return p.speech
}

func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the concrete embedder for assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockGenerator returns the concrete generator for assertions.
func (p *MockProvider) GetMockGenerator() *MockAnswerGenerator {
	return p.generator
}

// GetMockSpeech returns the concrete synthesizer for assertions.
func (p *MockProvider) GetMockSpeech() *MockSpeechSynthesizer {
	return p.speech
}
