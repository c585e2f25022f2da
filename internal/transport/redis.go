package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRequestKey   = "locator:requests"
	DefaultEventStream  = "locator:events"
	defaultPopTimeout   = 5 * time.Second
	defaultStreamMaxLen = 10000
)

// RedisSource pops raw requests from a Redis list.
type RedisSource struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

func NewRedisSource(client *redis.Client, key string) *RedisSource {
	if key == "" {
		key = DefaultRequestKey
	}
	return &RedisSource{client: client, key: key, timeout: defaultPopTimeout}
}

// Next blocks up to the pop timeout. It returns nil data and a nil error
// when nothing arrived in time.
func (s *RedisSource) Next(ctx context.Context) ([]byte, error) {
	res, err := s.client.BLPop(ctx, s.timeout, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blpop %s: %w", s.key, err)
	}
	// BLPOP answers [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("blpop %s: unexpected reply %v", s.key, res)
	}
	return []byte(res[1]), nil
}

// Push enqueues a request. Producers and tests use it.
func (s *RedisSource) Push(ctx context.Context, req LocateRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return s.client.RPush(ctx, s.key, data).Err()
}

// RedisPublisher appends messages to a Redis stream, one entry each, under
// the "data" field.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	if stream == "" {
		stream = DefaultEventStream
	}
	return &RedisPublisher{client: client, stream: stream, maxLen: defaultStreamMaxLen}
}

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal stream message: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": msgJSON,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}
