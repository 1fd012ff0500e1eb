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

// Package source resolves document ids to transcript content.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
)

// DefaultMaxBytes caps the size of a fetched transcript.
const DefaultMaxBytes = 16 << 20

var (
	// ErrCatalogRequired is returned by NewCatalogFetcher without a catalog.
	ErrCatalogRequired = errors.New("catalog repository is required")

	// ErrUnknownDocument means the id is not in the catalog.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrUnsupportedRef means the content reference scheme cannot be fetched.
	ErrUnsupportedRef = errors.New("unsupported content reference")

	// ErrContentTooLarge means the transcript exceeds the configured cap.
	ErrContentTooLarge = errors.New("content too large")
)

// Fetcher retrieves a document's metadata and transcript.
type Fetcher interface {
	Fetch(ctx context.Context, id core.DocumentID) (*core.Content, error)
}

// CatalogFetcher looks documents up in the catalog and reads their
// transcript inline, from a local file, or over http(s).
type CatalogFetcher struct {
	catalog  storage.CatalogRepository
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

var _ Fetcher = (*CatalogFetcher)(nil)

// Option configures a CatalogFetcher.
type Option func(*CatalogFetcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *CatalogFetcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger.With("component", "catalog-fetcher")
		return nil
	}
}

// WithHTTPClient sets the client used for http(s) references.
// Default is http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(f *CatalogFetcher) error {
		if client != nil {
			f.client = client
		}
		return nil
	}
}

// WithMaxBytes caps transcript size.
// Default is DefaultMaxBytes.
func WithMaxBytes(n int64) Option {
	return func(f *CatalogFetcher) error {
		if n <= 0 {
			return fmt.Errorf("max bytes must be positive, got %d", n)
		}
		f.maxBytes = n
		return nil
	}
}

// NewCatalogFetcher creates a fetcher over catalog.
func NewCatalogFetcher(catalog storage.CatalogRepository, opts ...Option) (*CatalogFetcher, error) {
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	f := &CatalogFetcher{
		catalog:  catalog,
		client:   http.DefaultClient,
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default().With("component", "catalog-fetcher"),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Fetch returns the document and its transcript.
func (f *CatalogFetcher) Fetch(ctx context.Context, id core.DocumentID) (*core.Content, error) {
	doc, err := f.catalog.GetDocument(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	if err != nil {
		return nil, err
	}

	if doc.Transcript != "" {
		return &core.Content{Document: doc, Text: doc.Transcript}, nil
	}

	text, err := f.read(ctx, doc.ContentRef)
	if err != nil {
		return nil, fmt.Errorf("fetching %s from %q: %w", id, doc.ContentRef, err)
	}
	f.logger.Debug("fetched content", "id", id, "ref", doc.ContentRef, "bytes", len(text))
	return &core.Content{Document: doc, Text: text}, nil
}

func (f *CatalogFetcher) read(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty", ErrUnsupportedRef)
	}

	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters.
		return f.readFile(ref)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return f.readFile(u.Path)
	case "http", "https":
		return f.readHTTP(ctx, ref)
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedRef, u.Scheme)
	}
}

func (f *CatalogFetcher) readFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return f.readLimited(file)
}

func (f *CatalogFetcher) readHTTP(ctx context.Context, ref string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	return f.readLimited(resp.Body)
}

func (f *CatalogFetcher) readLimited(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > f.maxBytes {
		return "", fmt.Errorf("%w: more than %d bytes", ErrContentTooLarge, f.maxBytes)
	}
	return string(data), nil
}
