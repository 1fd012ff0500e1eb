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

package reindex

import (
	"fmt"
	"io"
	"time"
)

// progressReporter prints a running tally of a reindex run on one line.
// It is driven from the Run goroutine only.
type progressReporter struct {
	w        io.Writer
	total    int
	every    int
	reported int
	start    time.Time
}

func newProgressReporter(w io.Writer, total, every int) *progressReporter {
	return &progressReporter{
		w:     w,
		total: total,
		every: max(every, 1),
		start: time.Now(),
	}
}

// update prints the tally once every documents have been handled since the
// last line.
func (p *progressReporter) update(s Summary) {
	if handled(s)-p.reported < p.every {
		return
	}
	p.reported = handled(s)
	p.print(s)
}

// finish prints the final tally and ends the line.
func (p *progressReporter) finish(s Summary) {
	p.print(s)
	fmt.Fprintln(p.w)
}

func (p *progressReporter) elapsed() time.Duration {
	return time.Since(p.start)
}

func (p *progressReporter) print(s Summary) {
	done := handled(s)
	percentage := 100.0
	if p.total > 0 {
		percentage = float64(done) / float64(p.total) * 100
	}
	rate := 0.0
	if secs := p.elapsed().Seconds(); secs > 0 {
		rate = float64(done) / secs
	}
	fmt.Fprintf(p.w, "\rReindexing: %d/%d documents (%.1f%%) enqueued=%d skipped=%d failed=%d %.1f documents/s",
		done, p.total, percentage, s.Enqueued, s.Skipped, s.Failed, rate)
}

func handled(s Summary) int {
	return s.Enqueued + s.Skipped + s.Failed
}
