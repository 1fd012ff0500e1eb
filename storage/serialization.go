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

package storage

import (
	"fmt"

	"github.com/poiesic/episodic/core"
)

// MarshalPartition serializes a Partition, including its vector, to bytes.
func MarshalPartition(p *core.Partition) []byte {
	buf := make([]byte, core.PartitionMUS.Size(*p))
	core.PartitionMUS.Marshal(*p, buf)
	return buf
}

// UnmarshalPartition deserializes a Partition from bytes.
func UnmarshalPartition(data []byte) (*core.Partition, error) {
	p, _, err := core.PartitionMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: partition: %w", ErrSerializationFailed, err)
	}
	return &p, nil
}

// MarshalStatusRecord serializes a StatusRecord to bytes.
func MarshalStatusRecord(record *core.StatusRecord) []byte {
	buf := make([]byte, core.StatusRecordMUS.Size(*record))
	core.StatusRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalStatusRecord deserializes a StatusRecord from bytes.
func UnmarshalStatusRecord(data []byte) (*core.StatusRecord, error) {
	record, _, err := core.StatusRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: status record: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, core.DocumentMUS.Size(*doc))
	core.DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := core.DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: document: %w", ErrSerializationFailed, err)
	}
	return &doc, nil
}
