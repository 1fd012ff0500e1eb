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

package badger

import (
	"encoding/binary"

	"github.com/poiesic/episodic/core"
)

// Key prefixes for different data types
const (
	partitionPrefix = "part"
	statusPrefix    = "stat"
	catalogPrefix   = "catdoc"
)

// makePartitionKey generates a composite key for one partition.
// Format: prefix:documentID:position
func makePartitionKey(id core.DocumentID, position int) []byte {
	prefix := makePartialPartitionKey(id)
	buf := make([]byte, len(prefix)+4) // 4 bytes for position
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort follows position
	binary.BigEndian.PutUint32(buf[offset:], uint32(position))
	return buf
}

// makePartialPartitionKey generates the key prefix shared by all partitions of a document.
// Format: prefix:documentID:
func makePartialPartitionKey(id core.DocumentID) []byte {
	return []byte(partitionPrefix + ":" + string(id) + ":")
}

// makeStatusKey generates a key for a document's status record.
func makeStatusKey(id core.DocumentID) []byte {
	return []byte(statusPrefix + ":" + string(id))
}

// makeCatalogKey generates a key for a catalogued document.
func makeCatalogKey(id core.DocumentID) []byte {
	return []byte(catalogPrefix + ":" + string(id))
}
