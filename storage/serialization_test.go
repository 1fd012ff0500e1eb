package storage

import (
	"testing"
	"time"

	"github.com/poiesic/episodic/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionSerialization(t *testing.T) {
	p := &core.Partition{
		DocumentID: "abc",
		Position:   2,
		Text:       "Alice talks about AI",
		Tags: core.Tags{
			core.TagSpeaker: {"Zed", "Alice", "Bob"},
			core.TagTitle:   {"Episode 42"},
		},
		Vector:    []float32{0.5, -0.25, 1e-7},
		Relevance: 0.9,
	}

	decoded, err := UnmarshalPartition(MarshalPartition(p))
	require.NoError(t, err)

	assert.Equal(t, p.DocumentID, decoded.DocumentID)
	assert.Equal(t, 2, decoded.Position)
	assert.Equal(t, p.Text, decoded.Text)
	assert.Equal(t, []string{"Zed", "Alice", "Bob"}, decoded.Tags.Get(core.TagSpeaker))
	assert.Equal(t, "Episode 42", decoded.Tags.First(core.TagTitle))
	assert.Equal(t, p.Vector, decoded.Vector, "vectors are stored bit-exact")
	assert.Zero(t, decoded.Relevance, "relevance is query-time only")
}

func TestStatusRecordSerialization(t *testing.T) {
	rec := &core.StatusRecord{
		ID:             "abc",
		Status:         core.StatusFailed,
		Reason:         "embedding timeout",
		PartitionCount: 7,
		Attempts:       3,
		UpdatedAt:      time.Date(2024, 1, 1, 12, 30, 0, 123000, time.UTC),
	}

	decoded, err := UnmarshalStatusRecord(MarshalStatusRecord(rec))
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestDocumentSerialization(t *testing.T) {
	tests := []struct {
		name string
		doc  *core.Document
	}{
		{
			name: "full document",
			doc: &core.Document{
				ID:          "ep42",
				Title:       "Episode 42",
				URI:         "https://x/42",
				PublishDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				ContentRef:  "transcripts/42.txt",
				Speakers:    []string{"Alice", "Bob"},
				Topics:      []string{"AI"},
				InsertedAt:  time.Date(2024, 2, 3, 4, 5, 6, 7000, time.UTC),
			},
		},
		{
			name: "absent lists and zero times",
			doc:  &core.Document{ID: "bare", Title: "Bare", Transcript: "inline text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalDocument(MarshalDocument(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.doc, decoded)
		})
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := UnmarshalDocument(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	data := MarshalDocument(&core.Document{ID: "ep42", Title: "Episode 42"})
	_, err = UnmarshalDocument(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrSerializationFailed, "truncated record")

	_, err = UnmarshalPartition([]byte{0xff})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	unknown := MarshalStatusRecord(&core.StatusRecord{ID: "abc", Status: core.PipelineStatus(42)})
	_, err = UnmarshalStatusRecord(unknown)
	require.ErrorIs(t, err, ErrSerializationFailed)
	assert.Contains(t, err.Error(), "unknown pipeline status")
}
