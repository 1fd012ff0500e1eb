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

package server

import (
	"time"

	"github.com/poiesic/episodic/core"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned for every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AskRequest is the request body for POST /api/v1/ask.
type AskRequest struct {
	Question string           `json:"question"`
	Filter   core.QueryFilter `json:"filter,omitempty"`

	// MinRelevance defaults to the server's configured floor when absent.
	MinRelevance *float32 `json:"min_relevance,omitempty"`

	// Speak renders the answer to audio when speech is enabled.
	Speak bool `json:"speak,omitempty"`
}

// IndexRequest is the request body for POST /api/v1/documents/index.
type IndexRequest struct {
	Documents []*core.Document `json:"documents"`
	Force     bool             `json:"force,omitempty"`
}

// IndexResponse reports how many documents were enqueued.
type IndexResponse struct {
	Enqueued int      `json:"enqueued"`
	Errors   []string `json:"errors,omitempty"`
}

// StatusRequest is the request body for POST /api/v1/documents/status.
type StatusRequest struct {
	IDs []core.DocumentID `json:"ids"`
}

// StatusResponse maps each requested id to its pipeline status.
type StatusResponse struct {
	Statuses map[core.DocumentID]core.PipelineStatus `json:"statuses"`
}

// DocumentSummary is one row of GET /api/v1/documents.
type DocumentSummary struct {
	ID             core.DocumentID     `json:"id"`
	Title          string              `json:"title"`
	URI            string              `json:"uri"`
	PublishDate    time.Time           `json:"publish_date"`
	Status         core.PipelineStatus `json:"status"`
	Reason         string              `json:"reason,omitempty"`
	PartitionCount int                 `json:"partition_count"`
	UpdatedAt      *time.Time          `json:"updated_at,omitempty"`
}

// DocumentList is the response body for GET /api/v1/documents.
type DocumentList struct {
	Documents []DocumentSummary `json:"documents"`
}
