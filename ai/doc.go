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

// Package ai provides abstractions for the model services used by episodic.
//
// # Interfaces
//
//   - Embedder: turns transcript partitions and questions into vectors
//   - AnswerGenerator: composes a grounded answer from ranked passages
//   - SpeechSynthesizer: renders an answer to audio
//   - AIProvider: aggregates the services behind one Config
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible services (Ollama, LocalAI, vLLM, OpenAI)
//   - ai/mock: test doubles with injectable behavior and call counts
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and inspect calls.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "what did Alice say about AI?")
package ai
