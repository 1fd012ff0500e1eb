package query

import (
	"strings"
	"testing"

	"github.com/poiesic/episodic/core"
)

func TestBuildContextWindow(t *testing.T) {
	mk := func(text string) *core.Partition {
		p := partition("doc", 0, "Title", 0.5, "Alice")
		p.Text = text
		return p
	}

	tests := []struct {
		name          string
		texts         []string
		budget        int
		wantTexts     []string
		wantTruncated bool
	}{
		{
			name:      "everything fits",
			texts:     []string{"aaaa", "bbbb"},
			budget:    10,
			wantTexts: []string{"aaaa", "bbbb"},
		},
		{
			name:      "exact fit",
			texts:     []string{"aaaaa", "bbbbb"},
			budget:    10,
			wantTexts: []string{"aaaaa", "bbbbb"},
		},
		{
			name:          "stops at first partition that overflows",
			texts:         []string{"aaaa", "bbbbbbbb", "cc"},
			budget:        10,
			wantTexts:     []string{"aaaa"},
			wantTruncated: true,
		},
		{
			name:          "later partition dropped not cut",
			texts:         []string{"aaaaaaaa", "bbbbbbbb"},
			budget:        10,
			wantTexts:     []string{"aaaaaaaa"},
			wantTruncated: true,
		},
		{
			name:          "first partition truncated",
			texts:         []string{strings.Repeat("a", 12), "b"},
			budget:        5,
			wantTexts:     []string{"aaaaa"},
			wantTruncated: true,
		},
		{
			name:          "counts runes not bytes",
			texts:         []string{"héllo wörld"},
			budget:        5,
			wantTexts:     []string{"héllo"},
			wantTruncated: true,
		},
		{
			name:      "no partitions",
			budget:    10,
			wantTexts: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := make([]*core.Partition, 0, len(tt.texts))
			for _, text := range tt.texts {
				ranked = append(ranked, mk(text))
			}

			passages, truncated := buildContextWindow(ranked, tt.budget)

			if truncated != tt.wantTruncated {
				t.Errorf("truncated = %v, want %v", truncated, tt.wantTruncated)
			}
			if len(passages) != len(tt.wantTexts) {
				t.Fatalf("got %d passages, want %d", len(passages), len(tt.wantTexts))
			}
			for i, want := range tt.wantTexts {
				if passages[i].Text != want {
					t.Errorf("passage %d = %q, want %q", i, passages[i].Text, want)
				}
				if passages[i].Title != "Title" || passages[i].Date != "2024-05-01" {
					t.Errorf("passage %d lost its metadata: %+v", i, passages[i])
				}
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 0, ""},
		{"hello", 3, "hel"},
		{"hello", 5, "hello"},
		{"hello", 9, "hello"},
		{"日本語テキスト", 3, "日本語"},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
