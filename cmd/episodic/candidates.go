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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/episodic/core"
	"gopkg.in/yaml.v3"
)

// candidateFile is the YAML layout accepted by the dispatch command:
//
//	episodes:
//	  - title: Episode 42
//	    uri: https://example.com/ep42
//	    publish_date: 2024-05-01
//	    content_ref: transcripts/ep42.txt
//	    speakers: [Alice, Bob]
//	    topics: [AI]
type candidateFile struct {
	Episodes []candidate `yaml:"episodes"`
}

type candidate struct {
	Title       string   `yaml:"title"`
	URI         string   `yaml:"uri"`
	PublishDate string   `yaml:"publish_date"`
	ContentRef  string   `yaml:"content_ref"`
	Transcript  string   `yaml:"transcript"`
	Speakers    []string `yaml:"speakers"`
	Topics      []string `yaml:"topics"`
}

// loadCandidates reads episodes from a YAML file. Relative content_ref
// paths are resolved against the file's directory.
func loadCandidates(path string) ([]*core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}

	var file candidateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse candidates %s: %w", path, err)
	}
	if len(file.Episodes) == 0 {
		return nil, fmt.Errorf("no episodes listed in %s", path)
	}

	base := filepath.Dir(path)
	docs := make([]*core.Document, 0, len(file.Episodes))
	for i, ep := range file.Episodes {
		published, err := parseDate(ep.PublishDate)
		if err != nil {
			return nil, fmt.Errorf("episode %d (%q): %w", i+1, ep.Title, err)
		}
		docs = append(docs, &core.Document{
			Title:       strings.TrimSpace(ep.Title),
			URI:         ep.URI,
			PublishDate: published,
			ContentRef:  resolveRef(base, ep.ContentRef),
			Transcript:  ep.Transcript,
			Speakers:    ep.Speakers,
			Topics:      ep.Topics,
		})
	}
	return docs, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("publish_date %q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	return t, nil
}

func resolveRef(base, ref string) string {
	if ref == "" || strings.Contains(ref, "://") || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(base, ref)
}
