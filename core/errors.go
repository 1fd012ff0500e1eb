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

import "errors"

// Operation errors surfaced to callers.
var (
	// ErrInvalidInput indicates a malformed question, filter or threshold.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRetrievalFailed indicates the query embedding or similarity search failed.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrGenerationFailed indicates answer synthesis failed.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrIndexingFailed indicates a document could not be indexed.
	ErrIndexingFailed = errors.New("indexing failed")

	// ErrDispatchFailed indicates one or more documents could not be enqueued.
	ErrDispatchFailed = errors.New("dispatch failed")

	// ErrInvalidTransition indicates a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrMissingPublishDate indicates the PublishDate field is zero.
	ErrMissingPublishDate = errors.New("publish date is required")

	// ErrMissingContent indicates neither Transcript nor ContentRef is set.
	ErrMissingContent = errors.New("transcript or content reference is required")

	// ErrEmptyQuestion indicates a blank question.
	ErrEmptyQuestion = errors.New("question cannot be empty")
)
