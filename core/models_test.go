package core

import (
	"testing"
	"time"
)

func TestNewDocumentID(t *testing.T) {
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		titleA   string
		dateA    time.Time
		titleB   string
		dateB    time.Time
		wantSame bool
	}{
		{
			name:     "same title and date produce same ID",
			titleA:   "Episode 42",
			dateA:    published,
			titleB:   "Episode 42",
			dateB:    published,
			wantSame: true,
		},
		{
			name:     "same instant in another zone produces same ID",
			titleA:   "Episode 42",
			dateA:    published,
			titleB:   "Episode 42",
			dateB:    published.In(time.FixedZone("CET", 3600)),
			wantSame: true,
		},
		{
			name:     "different title",
			titleA:   "Episode 42",
			dateA:    published,
			titleB:   "Episode 43",
			dateB:    published,
			wantSame: false,
		},
		{
			name:     "different date",
			titleA:   "Episode 42",
			dateA:    published,
			titleB:   "Episode 42",
			dateB:    published.Add(24 * time.Hour),
			wantSame: false,
		},
		{
			name:     "title boundary is not ambiguous",
			titleA:   "Episode 4",
			dateA:    published,
			titleB:   "Episode 42",
			dateB:    published,
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewDocumentID(tt.titleA, tt.dateA)
			b := NewDocumentID(tt.titleB, tt.dateB)
			if (a == b) != tt.wantSame {
				t.Errorf("NewDocumentID() same = %v, want %v (%s vs %s)", a == b, tt.wantSame, a, b)
			}
			if len(a) != 32 {
				t.Errorf("NewDocumentID() length = %d, want 32", len(a))
			}
		})
	}
}

func TestDocument_AssignID(t *testing.T) {
	doc := &Document{Title: "Episode 42", PublishDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	id := doc.AssignID()
	if id != doc.ID {
		t.Errorf("AssignID() = %s, stored %s", id, doc.ID)
	}
	if id != NewDocumentID(doc.Title, doc.PublishDate) {
		t.Errorf("AssignID() did not match NewDocumentID")
	}
}

func TestTags_Add(t *testing.T) {
	tags := Tags{}
	tags.Add(TagSpeaker, "Alice", "Bob", "Alice", "")
	tags.Add(TagSpeaker, "Bob", "Carol")

	got := tags.Get(TagSpeaker)
	want := []string{"Alice", "Bob", "Carol"}
	if len(got) != len(want) {
		t.Fatalf("Tags.Add() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tags.Add()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if tags.First(TagSpeaker) != "Alice" {
		t.Errorf("First() = %q, want Alice", tags.First(TagSpeaker))
	}
	if tags.First(TagTopic) != "" {
		t.Errorf("First() on missing key = %q, want empty", tags.First(TagTopic))
	}
}

func TestTags_Clone(t *testing.T) {
	tags := Tags{TagTopic: {"AI"}}
	clone := tags.Clone()
	clone.Add(TagTopic, "ML")
	if len(tags[TagTopic]) != 1 {
		t.Errorf("Clone() shares backing storage with original")
	}
}

func TestQueryFilter_Matches(t *testing.T) {
	tags := Tags{
		TagSpeaker: {"Alice"},
		TagTopic:   {"AI", "Robotics"},
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   bool
	}{
		{name: "empty filter matches", filter: QueryFilter{}, want: true},
		{name: "nil filter matches", filter: nil, want: true},
		{name: "single value hit", filter: QueryFilter{TagTopic: {"AI"}}, want: true},
		{name: "disjunction within key", filter: QueryFilter{TagTopic: {"Cooking", "Robotics"}}, want: true},
		{name: "single value miss", filter: QueryFilter{TagTopic: {"Cooking"}}, want: false},
		{name: "conjunction across keys", filter: QueryFilter{TagTopic: {"AI"}, TagSpeaker: {"Alice"}}, want: true},
		{name: "conjunction with one key failing", filter: QueryFilter{TagTopic: {"AI"}, TagSpeaker: {"Bob"}}, want: false},
		{name: "unknown key", filter: QueryFilter{"guest": {"Alice"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tags); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
