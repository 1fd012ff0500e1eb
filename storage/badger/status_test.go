package badger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStatuses(t *testing.T) *StatusRepository {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	return stores.Statuses
}

func setStatus(status core.PipelineStatus) func(*core.StatusRecord) (*core.StatusRecord, error) {
	return func(current *core.StatusRecord) (*core.StatusRecord, error) {
		return &core.StatusRecord{Status: status}, nil
	}
}

func TestStatusRepository_Basics(t *testing.T) {
	repo := setupStatuses(t)
	ctx := context.Background()

	_, err := repo.GetStatus(ctx, "doc1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rec, err := repo.UpdateStatus(ctx, "doc1", setStatus(core.StatusQueued))
	require.NoError(t, err)
	assert.Equal(t, core.DocumentID("doc1"), rec.ID)
	assert.False(t, rec.UpdatedAt.IsZero())

	got, err := repo.GetStatus(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusQueued, got.Status)
}

func TestStatusRepository_UpdateSeesCurrent(t *testing.T) {
	repo := setupStatuses(t)
	ctx := context.Background()

	_, err := repo.UpdateStatus(ctx, "doc1", func(current *core.StatusRecord) (*core.StatusRecord, error) {
		assert.Nil(t, current)
		return &core.StatusRecord{Status: core.StatusQueued}, nil
	})
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, "doc1", func(current *core.StatusRecord) (*core.StatusRecord, error) {
		require.NotNil(t, current)
		assert.Equal(t, core.StatusQueued, current.Status)
		return &core.StatusRecord{Status: core.StatusProcessing, Attempts: current.Attempts + 1}, nil
	})
	require.NoError(t, err)
}

func TestStatusRepository_UpdateErrorWritesNothing(t *testing.T) {
	repo := setupStatuses(t)
	ctx := context.Background()

	sentinel := errors.New("refused")
	_, err := repo.UpdateStatus(ctx, "doc1", func(*core.StatusRecord) (*core.StatusRecord, error) {
		return nil, sentinel
	})
	assert.Equal(t, sentinel, err)

	_, err = repo.GetStatus(ctx, "doc1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStatusRepository_ConcurrentUpdatesAreSerialized(t *testing.T) {
	repo := setupStatuses(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateStatus(ctx, "doc1", func(current *core.StatusRecord) (*core.StatusRecord, error) {
				attempts := 0
				if current != nil {
					attempts = current.Attempts
				}
				return &core.StatusRecord{Status: core.StatusProcessing, Attempts: attempts + 1}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := repo.GetStatus(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, writers, rec.Attempts, "no increment may be lost")
}

func TestStatusRepository_GetStatusesAndList(t *testing.T) {
	repo := setupStatuses(t)
	ctx := context.Background()

	_, err := repo.UpdateStatus(ctx, "b", setStatus(core.StatusCompleted))
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, "a", setStatus(core.StatusFailed))
	require.NoError(t, err)

	got, err := repo.GetStatuses(ctx, "a", "b", "missing")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, core.StatusFailed, got["a"].Status)
	assert.Equal(t, core.StatusCompleted, got["b"].Status)

	all, err := repo.ListStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, core.DocumentID("a"), all[0].ID)
	assert.Equal(t, core.DocumentID("b"), all[1].ID)
}
