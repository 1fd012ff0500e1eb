package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRepository(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	repo := stores.Catalog
	ctx := context.Background()

	older := &core.Document{
		Title:       "Episode 41",
		URI:         "https://x/41",
		PublishDate: time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC),
		ContentRef:  "/data/41.txt",
	}
	newer := &core.Document{
		Title:       "Episode 42",
		URI:         "https://x/42",
		PublishDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Transcript:  "Alice: hello",
		Speakers:    []string{"Alice"},
		Topics:      []string{"AI"},
	}

	require.NoError(t, repo.PutDocuments(ctx, older, newer))
	assert.NotEmpty(t, older.ID, "ids are assigned on put")
	assert.False(t, newer.InsertedAt.IsZero())

	got, err := repo.GetDocument(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Episode 42", got.Title)
	assert.Equal(t, []string{"Alice"}, got.Speakers)
	assert.True(t, newer.PublishDate.Equal(got.PublishDate))

	_, err = repo.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err := repo.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID, "newest first")
	assert.Equal(t, older.ID, all[1].ID)

	// Re-putting replaces the stored metadata.
	newer.URI = "https://x/42?v=2"
	require.NoError(t, repo.PutDocuments(ctx, newer))
	got, err = repo.GetDocument(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://x/42?v=2", got.URI)
}
