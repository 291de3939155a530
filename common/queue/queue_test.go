package queue

import (
	"context"
	"testing"
	"time"

	"github.com/genomeai/platform/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_PublishSubscribe(t *testing.T) {
	q := NewMemoryQueue(logger.Discard())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	require.NoError(t, q.Subscribe(ctx, TopicRunEvents, func(ctx context.Context, key string, value []byte) error {
		got <- key + "=" + string(value)
		return nil
	}))

	require.NoError(t, q.Publish(ctx, TopicRunEvents, "run-1", []byte("Succeeded")))

	select {
	case msg := <-got:
		assert.Equal(t, "run-1=Succeeded", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMemoryQueue_PublishAfterClose(t *testing.T) {
	q := NewMemoryQueue(logger.Discard())
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	err := q.Publish(context.Background(), TopicRunEvents, "k", nil)
	assert.ErrorIs(t, err, ErrClosed)
}
