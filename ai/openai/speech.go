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

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/poiesic/episodic/ai"
)

// maxSpeechErrorBody caps how much of an error response is echoed into errors.
const maxSpeechErrorBody = 512

// SpeechSynthesizer implements ai.SpeechSynthesizer against the
// OpenAI-compatible /audio/speech endpoint.
type SpeechSynthesizer struct {
	endpoint string
	apiKey   string
	model    string
	voice    string
	client   *http.Client
	logger   *slog.Logger
}

var _ ai.SpeechSynthesizer = (*SpeechSynthesizer)(nil)

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func newSpeechSynthesizer(config *ai.Config, client *http.Client) (*SpeechSynthesizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !config.SpeechEnabled() {
		return nil, fmt.Errorf("ai config: SpeechHost is required for speech synthesis")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SpeechSynthesizer{
		endpoint: config.SpeechHost + "/audio/speech",
		apiKey:   config.APIKey,
		model:    config.SpeechModel,
		voice:    config.SpeechVoice,
		client:   client,
		logger:   slog.Default().With("component", "openai-speech"),
	}, nil
}

// NewSpeechSynthesizer creates a synthesizer for config.SpeechHost.
// A nil client uses http.DefaultClient.
func NewSpeechSynthesizer(config *ai.Config, client *http.Client) (ai.SpeechSynthesizer, error) {
	return newSpeechSynthesizer(config, client)
}

// Synthesize returns mp3 audio for text.
func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("speech request failed", "err", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxSpeechErrorBody))
		return nil, fmt.Errorf("speech service returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech service returned no audio")
	}

	s.logger.Debug("synthesized speech", "chars", len(text), "bytes", len(audio))
	return audio, nil
}
