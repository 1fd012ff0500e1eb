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
	"github.com/poiesic/episodic/ai"
	"github.com/poiesic/episodic/core"
)

// Monitor observes the stages of one Ask call.
type Monitor interface {
	Start(question string, filter core.QueryFilter, minRelevance float32)
	AfterEmbedding(vector []float32)
	AfterSearch(matches []*core.Partition)
	AfterContextWindow(passages []ai.Passage, truncated bool)
	Finish(result *core.AnswerResult)
}

type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.QueryFilter, _ float32) {}
func (n *noopMonitor) AfterEmbedding(_ []float32)                     {}
func (n *noopMonitor) AfterSearch(_ []*core.Partition)                {}
func (n *noopMonitor) AfterContextWindow(_ []ai.Passage, _ bool)      {}
func (n *noopMonitor) Finish(_ *core.AnswerResult)                    {}
