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
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Title must not be blank
//   - PublishDate must be set
//   - Transcript or ContentRef must be set
//
// NOT validated:
//   - ID (assigned from title and publish date)
//   - URI (may be empty for private feeds)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyTitle)
	}

	if doc.PublishDate.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingPublishDate)
	}

	if doc.Transcript == "" && doc.ContentRef == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingContent)
	}

	return nil
}

// ValidateQuestion rejects blank questions.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyQuestion)
	}
	return nil
}

// ValidateRelevance checks a minimum relevance lies in [0,1].
func ValidateRelevance(minRelevance float32) error {
	if minRelevance < 0 || minRelevance > 1 || minRelevance != minRelevance {
		return fmt.Errorf("%w: min relevance %v outside [0,1]", ErrInvalidInput, minRelevance)
	}
	return nil
}

// ValidateFilter rejects blank keys and keys with no usable values.
func ValidateFilter(filter QueryFilter) error {
	for key, values := range filter {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: filter key cannot be empty", ErrInvalidInput)
		}
		if len(values) == 0 {
			return fmt.Errorf("%w: filter key %q has no values", ErrInvalidInput, key)
		}
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%w: filter key %q has an empty value", ErrInvalidInput, key)
			}
		}
	}
	return nil
}
