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
	"time"
)

// PipelineStatus is the indexing state of a document.
type PipelineStatus int

const (
	// StatusUnknown means no record exists for the document.
	StatusUnknown PipelineStatus = iota
	// StatusQueued means the document id was published to the indexing queue.
	StatusQueued
	// StatusProcessing means a worker is indexing the document.
	StatusProcessing
	// StatusCompleted means all partitions were persisted.
	StatusCompleted
	// StatusFailed means the last attempt failed. See StatusRecord.Reason.
	StatusFailed
)

var statusNames = map[PipelineStatus]string{
	StatusUnknown:    "unknown",
	StatusQueued:     "queued",
	StatusProcessing: "processing",
	StatusCompleted:  "completed",
	StatusFailed:     "failed",
}

func (s PipelineStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ParseStatus converts a status name back to its value.
func ParseStatus(name string) (PipelineStatus, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return StatusUnknown, fmt.Errorf("%w: status %q", ErrInvalidInput, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s PipelineStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PipelineStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsPending reports whether the document is waiting for or undergoing indexing.
func (s PipelineStatus) IsPending() bool {
	return s == StatusQueued || s == StatusProcessing
}

// StatusRecord is the persisted status of one document.
type StatusRecord struct {
	ID             DocumentID     `json:"id"`
	Status         PipelineStatus `json:"status"`
	Reason         string         `json:"reason,omitempty"`
	PartitionCount int            `json:"partition_count"`
	Attempts       int            `json:"attempts"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// transitions lists, per source status, the statuses it may move to.
var transitions = map[PipelineStatus][]PipelineStatus{
	StatusUnknown:    {StatusQueued},
	StatusQueued:     {StatusQueued, StatusProcessing, StatusFailed},
	StatusProcessing: {StatusProcessing, StatusCompleted, StatusFailed},
	StatusFailed:     {StatusQueued, StatusProcessing},
	StatusCompleted:  {StatusQueued, StatusProcessing},
}

// CanTransition reports whether a document may move from one status to another.
// Processing->Processing covers queue redelivery after a worker crash.
func CanTransition(from, to PipelineStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
