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

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted records. Timestamps are stored as Unix
// microseconds and decode in UTC.
var (
	DocumentIDMUS   = documentIDMUS{}
	TagsMUS         = tagsMUS{}
	PartitionMUS    = partitionMUS{}
	StatusRecordMUS = statusRecordMUS{}
	DocumentMUS     = documentMUS{}

	stringsMUS = ord.NewSliceSer[string](ord.String)
	vectorMUS  = ord.NewSliceSer[float32](raw.Float32)
	tagMapMUS  = ord.NewMapSer[string, []string](ord.String, stringsMUS)
	timeMUS    = raw.TimeUnixMicroUTC
)

var (
	_ mus.Serializer[DocumentID]   = DocumentIDMUS
	_ mus.Serializer[Tags]         = TagsMUS
	_ mus.Serializer[Partition]    = PartitionMUS
	_ mus.Serializer[StatusRecord] = StatusRecordMUS
	_ mus.Serializer[Document]     = DocumentMUS
)

type documentIDMUS struct{}

func (s documentIDMUS) Marshal(v DocumentID, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s documentIDMUS) Unmarshal(bs []byte) (v DocumentID, n int, err error) {
	str, n, err := ord.String.Unmarshal(bs)
	return DocumentID(str), n, err
}

func (s documentIDMUS) Size(v DocumentID) (size int) {
	return ord.String.Size(string(v))
}

func (s documentIDMUS) Skip(bs []byte) (n int, err error) {
	return ord.String.Skip(bs)
}

type tagsMUS struct{}

func (s tagsMUS) Marshal(v Tags, bs []byte) (n int) {
	return tagMapMUS.Marshal(map[string][]string(v), bs)
}

func (s tagsMUS) Unmarshal(bs []byte) (v Tags, n int, err error) {
	m, n, err := tagMapMUS.Unmarshal(bs)
	return Tags(m), n, err
}

func (s tagsMUS) Size(v Tags) (size int) {
	return tagMapMUS.Size(map[string][]string(v))
}

func (s tagsMUS) Skip(bs []byte) (n int, err error) {
	return tagMapMUS.Skip(bs)
}

// partitionMUS never writes Relevance; it is computed per query.
type partitionMUS struct{}

func (s partitionMUS) Marshal(v Partition, bs []byte) (n int) {
	n = DocumentIDMUS.Marshal(v.DocumentID, bs)
	n += varint.Int.Marshal(v.Position, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += TagsMUS.Marshal(v.Tags, bs[n:])
	return n + vectorMUS.Marshal(v.Vector, bs[n:])
}

func (s partitionMUS) Unmarshal(bs []byte) (v Partition, n int, err error) {
	v.DocumentID, n, err = DocumentIDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Position, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Tags, n1, err = TagsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	v.Vector = nilIfEmpty(v.Vector)
	return
}

func (s partitionMUS) Size(v Partition) (size int) {
	size = DocumentIDMUS.Size(v.DocumentID)
	size += varint.Int.Size(v.Position)
	size += ord.String.Size(v.Text)
	size += TagsMUS.Size(v.Tags)
	return size + vectorMUS.Size(v.Vector)
}

func (s partitionMUS) Skip(bs []byte) (n int, err error) {
	return skipAll(bs,
		DocumentIDMUS.Skip,
		varint.Int.Skip,
		ord.String.Skip,
		TagsMUS.Skip,
		vectorMUS.Skip,
	)
}

type statusRecordMUS struct{}

func (s statusRecordMUS) Marshal(v StatusRecord, bs []byte) (n int) {
	n = DocumentIDMUS.Marshal(v.ID, bs)
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += ord.String.Marshal(v.Reason, bs[n:])
	n += varint.Int.Marshal(v.PartitionCount, bs[n:])
	n += varint.Int.Marshal(v.Attempts, bs[n:])
	return n + timeMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (s statusRecordMUS) Unmarshal(bs []byte) (v StatusRecord, n int, err error) {
	v.ID, n, err = DocumentIDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1     int
		status int
	)
	status, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status = PipelineStatus(status)
	if _, ok := statusNames[v.Status]; !ok {
		err = fmt.Errorf("unknown pipeline status %d", status)
		return
	}
	v.Reason, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.PartitionCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Attempts, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s statusRecordMUS) Size(v StatusRecord) (size int) {
	size = DocumentIDMUS.Size(v.ID)
	size += varint.Int.Size(int(v.Status))
	size += ord.String.Size(v.Reason)
	size += varint.Int.Size(v.PartitionCount)
	size += varint.Int.Size(v.Attempts)
	return size + timeMUS.Size(v.UpdatedAt)
}

func (s statusRecordMUS) Skip(bs []byte) (n int, err error) {
	return skipAll(bs,
		DocumentIDMUS.Skip,
		varint.Int.Skip,
		ord.String.Skip,
		varint.Int.Skip,
		varint.Int.Skip,
		timeMUS.Skip,
	)
}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = DocumentIDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.URI, bs[n:])
	n += timeMUS.Marshal(v.PublishDate, bs[n:])
	n += ord.String.Marshal(v.ContentRef, bs[n:])
	n += ord.String.Marshal(v.Transcript, bs[n:])
	n += stringsMUS.Marshal(v.Speakers, bs[n:])
	n += stringsMUS.Marshal(v.Topics, bs[n:])
	return n + timeMUS.Marshal(v.InsertedAt, bs[n:])
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	v.ID, n, err = DocumentIDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	for _, field := range []*string{&v.Title, &v.URI} {
		*field, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.PublishDate, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for _, field := range []*string{&v.ContentRef, &v.Transcript} {
		*field, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	for _, field := range []*[]string{&v.Speakers, &v.Topics} {
		*field, n1, err = stringsMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		*field = nilIfEmpty(*field)
	}
	v.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = DocumentIDMUS.Size(v.ID)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.URI)
	size += timeMUS.Size(v.PublishDate)
	size += ord.String.Size(v.ContentRef)
	size += ord.String.Size(v.Transcript)
	size += stringsMUS.Size(v.Speakers)
	size += stringsMUS.Size(v.Topics)
	return size + timeMUS.Size(v.InsertedAt)
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	return skipAll(bs,
		DocumentIDMUS.Skip,
		ord.String.Skip,
		ord.String.Skip,
		timeMUS.Skip,
		ord.String.Skip,
		ord.String.Skip,
		stringsMUS.Skip,
		stringsMUS.Skip,
		timeMUS.Skip,
	)
}

// nilIfEmpty keeps absent lists nil after a round trip.
func nilIfEmpty[T any](v []T) []T {
	if len(v) == 0 {
		return nil
	}
	return v
}

func skipAll(bs []byte, skips ...func([]byte) (int, error)) (n int, err error) {
	for _, skip := range skips {
		var n1 int
		n1, err = skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}
