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

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/episodic/ai"
)

// DefaultAudio is returned by MockSpeechSynthesizer when no Func is set.
var DefaultAudio = []byte("ID3mock-audio")

// MockSpeechSynthesizer is a test double for ai.SpeechSynthesizer.
type MockSpeechSynthesizer struct {
	// SynthesizeFunc is called by Synthesize if set.
	SynthesizeFunc func(ctx context.Context, text string) ([]byte, error)

	callCount atomic.Int64
}

var _ ai.SpeechSynthesizer = (*MockSpeechSynthesizer)(nil)

// NewMockSpeechSynthesizer creates a mock synthesizer with default behavior.
func NewMockSpeechSynthesizer() *MockSpeechSynthesizer {
	return &MockSpeechSynthesizer{}
}

// Synthesize returns SynthesizeFunc's result or DefaultAudio.
func (m *MockSpeechSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.callCount.Add(1)
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text)
	}
	return DefaultAudio, nil
}

// CallCount returns the number of Synthesize calls.
func (m *MockSpeechSynthesizer) CallCount() int {
	return int(m.callCount.Load())
}
