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

// Passage is one piece of retrieved context handed to an AnswerGenerator.
type Passage struct {
	// Title and Date identify the episode the passage came from.
	Title string
	Date  string

	// Speakers lists who talks in the episode.
	Speakers []string

	Text string
}
