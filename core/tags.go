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

import "slices"

// Well-known tag keys.
const (
	TagTitle   = "title"
	TagURI     = "uri"
	TagDate    = "date"
	TagSpeaker = "speaker"
	TagTopic   = "topic"
)

// Tags maps a tag key to its ordered, de-duplicated values.
type Tags map[string][]string

// Add appends values under key, skipping empty strings and duplicates.
func (t Tags) Add(key string, values ...string) {
	for _, v := range values {
		if v == "" || slices.Contains(t[key], v) {
			continue
		}
		t[key] = append(t[key], v)
	}
}

// Get returns the values stored under key.
func (t Tags) Get(key string) []string {
	return t[key]
}

// First returns the first value under key, or "".
func (t Tags) First(key string) string {
	if vals := t[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Has reports whether key holds value.
func (t Tags) Has(key, value string) bool {
	return slices.Contains(t[key], value)
}

// Clone returns a deep copy.
func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	for k, v := range t {
		out[k] = slices.Clone(v)
	}
	return out
}

// QueryFilter restricts retrieval by tag. Values under one key are
// alternatives; every key must be satisfied. An empty filter matches all.
type QueryFilter map[string][]string

// Matches reports whether tags satisfy the filter.
func (f QueryFilter) Matches(tags Tags) bool {
	for key, wanted := range f {
		if !slices.ContainsFunc(wanted, func(v string) bool { return tags.Has(key, v) }) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the filter has no keys.
func (f QueryFilter) IsEmpty() bool {
	return len(f) == 0
}
