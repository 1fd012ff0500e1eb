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

package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/episodic/ai"
)

const answerSystemPrompt = `You answer questions about podcast episodes using ONLY the transcript excerpts provided
by the user. Each excerpt is labeled with its episode title and date.

Rules:
- If the excerpts do not contain the answer, say that the episodes do not cover it. Do not guess.
- Name the episode(s) you draw from when it helps the listener find them.
- Attribute statements to speakers when the excerpt makes the speaker clear.
- Keep the answer short and conversational; it may be read aloud.
- Do not mention "excerpts" or "context" in the answer.`

const answerUserTemplate = `Transcript excerpts:

%s

Question: %s`

func buildUserPrompt(question string, passages []ai.Passage) string {
	var b strings.Builder
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s (%s)", i+1, p.Title, p.Date)
		if len(p.Speakers) > 0 {
			fmt.Fprintf(&b, " speakers: %s", strings.Join(p.Speakers, ", "))
		}
		b.WriteString("\n")
		b.WriteString(collapseWhitespace(p.Text))
	}
	return fmt.Sprintf(answerUserTemplate, b.String(), strings.TrimSpace(question))
}
