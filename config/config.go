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
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/poiesic/episodic/ai"
	"github.com/poiesic/episodic/queue/natsqueue"
)

// Store backends.
const (
	BackendBadger  = "badger"
	BackendChromem = "chromem"
)

// Config is the process-wide configuration.
type Config struct {
	// DataDir is the root for every on-disk artifact.
	DataDir string `koanf:"data_dir"`

	Store    StoreConfig      `koanf:"store"`
	NATS     natsqueue.Config `koanf:"nats"`
	AI       ai.Config        `koanf:"ai"`
	Pipeline PipelineConfig   `koanf:"pipeline"`
	Query    QueryConfig      `koanf:"query"`
	Speech   SpeechConfig     `koanf:"speech"`
	HTTP     HTTPConfig       `koanf:"http"`
}

// StoreConfig selects where partitions live. Status and catalog records
// always live in badger.
type StoreConfig struct {
	// Backend is "badger" or "chromem".
	Backend string `koanf:"backend"`

	// Compress gzips chromem's persisted collection.
	Compress bool `koanf:"compress"`
}

// PipelineConfig tunes the indexing workers.
type PipelineConfig struct {
	Workers      int           `koanf:"workers"`
	ChunkSize    int           `koanf:"chunk_size"`
	ChunkOverlap int           `koanf:"chunk_overlap"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	EmbedTimeout time.Duration `koanf:"embed_timeout"`
	StoreTimeout time.Duration `koanf:"store_timeout"`
}

// QueryConfig tunes question answering.
type QueryConfig struct {
	ContextBudget       int           `koanf:"context_budget"`
	MaxMatches          int           `koanf:"max_matches"`
	DefaultMinRelevance float32       `koanf:"default_min_relevance"`
	EmbedTimeout        time.Duration `koanf:"embed_timeout"`
	SearchTimeout       time.Duration `koanf:"search_timeout"`
	GenerateTimeout     time.Duration `koanf:"generate_timeout"`
}

// SpeechConfig controls audio rendering of answers.
type SpeechConfig struct {
	Enabled bool          `koanf:"enabled"`
	Dir     string        `koanf:"dir"`
	Timeout time.Duration `koanf:"timeout"`
}

// HTTPConfig is the listen address of the API server.
type HTTPConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// BadgerPath is the directory of the badger database.
func (c *Config) BadgerPath() string {
	return filepath.Join(c.DataDir, "badger")
}

// ChromemPath is the directory of the chromem database.
func (c *Config) ChromemPath() string {
	return filepath.Join(c.DataDir, "chromem")
}

// applyDefaults fills values derived from DataDir.
func applyDefaults(cfg *Config) {
	if cfg.NATS.Embedded && cfg.NATS.StoreDir == "" {
		cfg.NATS.StoreDir = filepath.Join(cfg.DataDir, "nats")
	}
	if cfg.Speech.Dir == "" {
		cfg.Speech.Dir = filepath.Join(cfg.DataDir, "audio")
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}

	switch c.Store.Backend {
	case BackendBadger, BackendChromem:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendBadger, BackendChromem, c.Store.Backend)
	}

	if err := c.NATS.Validate(); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if c.Speech.Enabled && !c.AI.SpeechEnabled() {
		return errors.New("speech.enabled requires ai.speech_host")
	}

	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must not be negative, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.ChunkSize < 1 {
		return fmt.Errorf("pipeline.chunk_size must be positive, got %d", c.Pipeline.ChunkSize)
	}
	if c.Pipeline.ChunkOverlap < 0 || c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return fmt.Errorf("pipeline.chunk_overlap must be in [0,%d), got %d", c.Pipeline.ChunkSize, c.Pipeline.ChunkOverlap)
	}

	if c.Query.ContextBudget < 1 {
		return fmt.Errorf("query.context_budget must be positive, got %d", c.Query.ContextBudget)
	}
	if c.Query.MaxMatches < 0 {
		return fmt.Errorf("query.max_matches must not be negative, got %d", c.Query.MaxMatches)
	}
	if c.Query.DefaultMinRelevance < 0 || c.Query.DefaultMinRelevance > 1 {
		return fmt.Errorf("query.default_min_relevance must be in [0,1], got %v", c.Query.DefaultMinRelevance)
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be in [1,65535], got %d", c.HTTP.Port)
	}
	return nil
}
