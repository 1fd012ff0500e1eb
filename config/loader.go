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

package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix marks environment variables that override the file.
	EnvPrefix = "EPISODIC_"

	maxConfigFileSize = 1024 * 1024
)

// defaults is loaded before the file so unset keys keep these values.
const defaults = `
data_dir: ./data
store:
  backend: badger
  compress: false
nats:
  url: nats://localhost:4222
  embedded: false
  stream: EPISODIC
  subject: episodic.index
  consumer: episodic-indexer
  max_deliver: 5
  ack_wait: 2m
  backoff: [5s, 30s, 2m]
  duplicates: 2m
  prefetch: 16
ai:
  embedding_host: http://localhost:11434/v1
  chat_host: http://localhost:11434/v1
  embedding_model: embeddinggemma
  chat_model: qwen2.5:7b
  speech_model: tts-1
  speech_voice: alloy
  api_key: none
  temperature: 0.2
pipeline:
  workers: 0
  chunk_size: 1000
  chunk_overlap: 100
  fetch_timeout: 30s
  embed_timeout: 2m
  store_timeout: 30s
query:
  context_budget: 6000
  max_matches: 0
  default_min_relevance: 0.8
  embed_timeout: 30s
  search_timeout: 30s
  generate_timeout: 2m
speech:
  enabled: false
  timeout: 60s
http:
  host: 127.0.0.1
  port: 8080
  shutdown_timeout: 10s
`

// Default returns the configuration used when nothing overrides it.
func Default() (*Config, error) {
	return load(nil, nil)
}

// Load reads configuration from the YAML file at path, then applies
// EPISODIC_* environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (EPISODIC_NATS_URL, EPISODIC_AI_CHAT_MODEL, etc.)
//  2. YAML config file
//  3. Built-in defaults
//
// An empty path skips the file. Environment variables map to keys by
// dropping the prefix and splitting section from field at the first
// underscore:
//
//	EPISODIC_NATS_MAX_DELIVER -> nats.max_deliver
//	EPISODIC_AI_CHAT_MODEL    -> ai.chat_model
//	EPISODIC_DATA_DIR         -> data_dir
func Load(path string) (*Config, error) {
	var content []byte
	if path != "" {
		var err error
		content, err = readConfigFile(path)
		if err != nil {
			return nil, err
		}
	}
	return load(content, env.Provider(EnvPrefix, ".", envKey))
}

func load(content []byte, envProvider koanf.Provider) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if envProvider != nil {
		if err := k.Load(envProvider, nil); err != nil {
			return nil, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// envKey maps EPISODIC_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if lower == "data_dir" {
		return lower
	}
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + field
}
