package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/redis"
)

// ErrClosed is returned when publishing or subscribing on a closed queue
var ErrClosed = errors.New("queue closed")

// RedisStreamQueue publishes to Redis streams and consumes through a consumer group,
// so several api replicas share one audit trail without duplicates.
type RedisStreamQueue struct {
	client   *redis.Client
	prefix   string
	group    string
	consumer string
	log      *logger.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewRedisStreamQueue creates a stream-backed queue. Stream names are "<prefix>:<topic>".
func NewRedisStreamQueue(client *redis.Client, prefix, group string, log *logger.Logger) *RedisStreamQueue {
	host, _ := os.Hostname()
	return &RedisStreamQueue{
		client:   client,
		prefix:   prefix,
		group:    group,
		consumer: fmt.Sprintf("%s-%d", host, os.Getpid()),
		log:      log,
	}
}

func (q *RedisStreamQueue) stream(topic string) string {
	return q.prefix + ":" + topic
}

// Publish appends the message to the topic stream
func (q *RedisStreamQueue) Publish(ctx context.Context, topic string, key string, message []byte) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrClosed
	}

	_, err := q.client.AddToStream(ctx, q.stream(topic), map[string]interface{}{
		"key":   key,
		"value": message,
	})
	return err
}

// Subscribe creates the consumer group if needed and starts a blocking read loop
func (q *RedisStreamQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	stream := q.stream(topic)

	if err := q.client.CreateStreamGroup(ctx, stream, q.group); err != nil {
		return err
	}

	q.log.Info("subscribing to topic",
		"topic", topic,
		"backend", "redis",
		"stream", stream,
		"group", q.group,
		"consumer", q.consumer)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.consume(ctx, stream, handler)
	}()

	return nil
}

func (q *RedisStreamQueue) consume(ctx context.Context, stream string, handler MessageHandler) {
	for {
		if ctx.Err() != nil {
			q.log.Info("subscription cancelled", "stream", stream)
			return
		}

		streams, err := q.client.ReadFromStreamGroup(ctx, q.group, q.consumer, stream, 10, 2*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.log.Warn("stream read failed, backing off", "stream", stream, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				key, _ := msg.Values["key"].(string)
				value, _ := msg.Values["value"].(string)

				if err := handler(ctx, key, []byte(value)); err != nil {
					// Left pending; redelivery is an operator action (XCLAIM).
					q.log.Error("message handler error", "stream", stream, "id", msg.ID, "key", key, "error", err)
					continue
				}

				if err := q.client.AckStreamMessage(ctx, stream, q.group, msg.ID); err != nil {
					q.log.Warn("ack failed", "stream", stream, "id", msg.ID, "error", err)
				}
			}
		}
	}
}

// Close stops accepting publishes and waits for consumers whose context has ended
func (q *RedisStreamQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}
