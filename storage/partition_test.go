package storage

import (
	"testing"

	"github.com/poiesic/episodic/core"
	"github.com/stretchr/testify/assert"
)

func TestSortByRelevance(t *testing.T) {
	partitions := []*core.Partition{
		{DocumentID: "b", Position: 0, Relevance: 0.9},
		{DocumentID: "a", Position: 1, Relevance: 0.9},
		{DocumentID: "a", Position: 0, Relevance: 0.5},
		{DocumentID: "a", Position: 0, Relevance: 0.9},
		{DocumentID: "c", Position: 3, Relevance: 0.95},
	}

	SortByRelevance(partitions)

	type key struct {
		id  core.DocumentID
		pos int
	}
	got := make([]key, len(partitions))
	for i, p := range partitions {
		got[i] = key{p.DocumentID, p.Position}
	}
	assert.Equal(t, []key{
		{"c", 3},
		{"a", 0},
		{"b", 0},
		{"a", 1},
		{"a", 0},
	}, got)
	assert.Equal(t, float32(0.5), partitions[4].Relevance)
}

func TestValidatePartitions(t *testing.T) {
	vec := []float32{1}

	tests := []struct {
		name       string
		partitions []*core.Partition
		wantErr    bool
	}{
		{name: "empty set", partitions: nil, wantErr: false},
		{name: "valid", partitions: []*core.Partition{{DocumentID: "a", Position: 0, Vector: vec}, {DocumentID: "a", Position: 1, Vector: vec}}, wantErr: false},
		{name: "nil partition", partitions: []*core.Partition{nil}, wantErr: true},
		{name: "foreign document", partitions: []*core.Partition{{DocumentID: "b", Position: 0, Vector: vec}}, wantErr: true},
		{name: "duplicate position", partitions: []*core.Partition{{DocumentID: "a", Position: 0, Vector: vec}, {DocumentID: "a", Position: 0, Vector: vec}}, wantErr: true},
		{name: "negative position", partitions: []*core.Partition{{DocumentID: "a", Position: -1, Vector: vec}}, wantErr: true},
		{name: "missing vector", partitions: []*core.Partition{{DocumentID: "a", Position: 0}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePartitions("a", tt.partitions)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuery)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
