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

package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/episodic/ai"
	"github.com/poiesic/episodic/core"
)

// DefaultTimeout bounds one synthesis call.
const DefaultTimeout = 60 * time.Second

var (
	// ErrSynthesizerRequired indicates NewRenderer was given no synthesizer.
	ErrSynthesizerRequired = errors.New("speech synthesizer is required")

	// ErrDirRequired indicates NewRenderer was given no output directory.
	ErrDirRequired = errors.New("audio output directory is required")
)

// Renderer turns answers into audio files.
type Renderer struct {
	synth   ai.SpeechSynthesizer
	dir     string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "speech")
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRenderer creates a Renderer writing mp3 files under dir.
// The directory is created if missing.
func NewRenderer(synth ai.SpeechSynthesizer, dir string, opts ...Option) (*Renderer, error) {
	if synth == nil {
		return nil, ErrSynthesizerRequired
	}
	if dir == "" {
		return nil, ErrDirRequired
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audio directory: %w", err)
	}

	r := &Renderer{
		synth:   synth,
		dir:     dir,
		timeout: DefaultTimeout,
		logger:  slog.Default().With("component", "speech"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render synthesizes result.Answer and records the file path in
// result.AudioRef. A failure is logged and appended to result.Warnings;
// the answer and its sources are left untouched.
func (r *Renderer) Render(ctx context.Context, result *core.AnswerResult) {
	if result == nil {
		return
	}

	path, err := r.render(ctx, result.Answer)
	if err != nil {
		r.logger.Warn("speech rendering failed", "err", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("speech unavailable: %v", err))
		return
	}
	result.AudioRef = path
}

func (r *Renderer) render(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	audio, err := r.synth.Synthesize(ctx, text)
	if err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", errors.New("synthesizer returned no audio")
	}

	path := filepath.Join(r.dir, uuid.NewString()+".mp3")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	r.logger.Debug("rendered answer audio", "path", path, "bytes", len(audio))
	return path, nil
}
