package mock

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/episodic/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_DedupAndRedelivery(t *testing.T) {
	q := NewQueue()
	q.MaxDeliver = 2
	ctx := context.Background()

	job := queue.Job{DocumentID: "doc1", QueuedAt: time.Unix(1, 0)}
	require.NoError(t, q.Publish(ctx, job))
	require.NoError(t, q.Publish(ctx, job))
	assert.Len(t, q.Published(), 2)
	assert.Equal(t, 1, q.Len())

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	var attempts []int
	err := q.Consume(ctx, func(d queue.Delivery) {
		attempts = append(attempts, d.Attempt())
		_ = d.Nak(time.Second)
		if q.Len() == 0 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{1, 2}, attempts)

	outcomes := q.Outcomes()
	require.Len(t, outcomes, 2)
	assert.Equal(t, ResultNak, outcomes[1].Result())
	assert.Equal(t, time.Second, outcomes[1].Delay())
}

func TestDelivery_SettlesOnce(t *testing.T) {
	d := NewDelivery("doc1", 1)
	require.NoError(t, d.Ack())
	require.NoError(t, d.Term())
	assert.Equal(t, ResultAck, d.Result())
}
