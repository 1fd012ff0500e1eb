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
	"fmt"
	"strings"
	"sync"

	"github.com/poiesic/episodic/ai"
)

// MockAnswerGenerator is a test double for ai.AnswerGenerator.
type MockAnswerGenerator struct {
	// GenerateAnswerFunc is called by GenerateAnswer if set.
	GenerateAnswerFunc func(ctx context.Context, question string, passages []ai.Passage) (string, error)

	mu       sync.Mutex
	calls    int
	passages []ai.Passage
}

var _ ai.AnswerGenerator = (*MockAnswerGenerator)(nil)

// NewMockAnswerGenerator creates a mock generator with default behavior.
func NewMockAnswerGenerator() *MockAnswerGenerator {
	return &MockAnswerGenerator{}
}

// GenerateAnswer records the passages and returns GenerateAnswerFunc's result
// or an answer naming the question and the passage titles.
func (m *MockAnswerGenerator) GenerateAnswer(ctx context.Context, question string, passages []ai.Passage) (string, error) {
	m.mu.Lock()
	m.calls++
	m.passages = append([]ai.Passage(nil), passages...)
	m.mu.Unlock()

	if m.GenerateAnswerFunc != nil {
		return m.GenerateAnswerFunc(ctx, question, passages)
	}

	titles := make([]string, 0, len(passages))
	for _, p := range passages {
		titles = append(titles, p.Title)
	}
	return fmt.Sprintf("Answer to %q from %s", question, strings.Join(titles, "; ")), nil
}

// LastPassages returns the passages of the most recent call.
func (m *MockAnswerGenerator) LastPassages() []ai.Passage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.passages
}

// CallCount returns the number of GenerateAnswer calls.
func (m *MockAnswerGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Reset clears recorded calls and injected behavior.
func (m *MockAnswerGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.passages = nil
	m.GenerateAnswerFunc = nil
}
