package reindex

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/episodic/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequeue(t *testing.T) {
	transient := fmt.Errorf("%w: publishing ep42: %w", core.ErrDispatchFailed, errors.New("nats: timeout"))

	tests := []struct {
		name         string
		failures     int
		failWith     error
		wantEnqueued bool
		wantAttempts int
		wantErr      error
	}{
		{
			name:         "first attempt succeeds",
			wantEnqueued: true,
			wantAttempts: 1,
		},
		{
			name:         "transient failure is retried",
			failures:     2,
			failWith:     transient,
			wantEnqueued: true,
			wantAttempts: 3,
		},
		{
			name:         "transient failures exhaust retries",
			failures:     10,
			failWith:     transient,
			wantAttempts: 3,
			wantErr:      core.ErrDispatchFailed,
		},
		{
			name:         "invalid document is not retried",
			failures:     10,
			failWith:     fmt.Errorf("%w: %w", core.ErrDispatchFailed, fmt.Errorf("%w: %w", core.ErrInvalidDocument, core.ErrEmptyTitle)),
			wantAttempts: 1,
			wantErr:      core.ErrInvalidDocument,
		},
		{
			name:         "refused transition is not retried",
			failures:     10,
			failWith:     fmt.Errorf("%w: marking ep42 queued: %w", core.ErrDispatchFailed, core.ErrInvalidTransition),
			wantAttempts: 1,
			wantErr:      core.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			indexer := &indexerFunc{fn: func(*core.Document) (int, error) {
				calls++
				if calls <= tt.failures {
					return 0, tt.failWith
				}
				return 1, nil
			}}
			cfg := testConfig()
			cfg.MaxRetries = 3
			r := NewReindexer(&stubCatalog{}, stubStatuses{}, indexer, cfg, nil)

			enqueued, attempts, err := r.requeue(context.Background(), docs("ep42")[0])
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantEnqueued, enqueued)
			assert.Equal(t, tt.wantAttempts, attempts)
			assert.Equal(t, tt.wantAttempts, calls)
		})
	}
}

func TestRequeue_StopsWaitingWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	indexer := &indexerFunc{fn: func(*core.Document) (int, error) {
		cancel()
		return 0, errors.New("broker unavailable")
	}}
	cfg := testConfig()
	cfg.MaxRetries = 5
	cfg.RetryDelay = time.Hour
	r := NewReindexer(&stubCatalog{}, stubStatuses{}, indexer, cfg, nil)

	_, attempts, err := r.requeue(ctx, docs("ep42")[0])
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
