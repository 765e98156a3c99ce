package replenish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cimillas/order-ledger/internal/clock"
	"github.com/cimillas/order-ledger/internal/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultQueueKey    = "order-ledger:replenish"
	defaultPushTimeout = 2 * time.Second
	popTimeout         = time.Second
)

// NewRedisClient parses url, connects and pings.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisQueue is a Dispatcher that pushes tasks onto a Redis list so refills
// survive process restarts and can be shared by several instances.
type RedisQueue struct {
	client *redis.Client
	key    string
	logger *zap.Logger
	clock  clock.Clock

	pushes sync.WaitGroup
}

func NewRedisQueue(client *redis.Client, key string, logger *zap.Logger) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{client: client, key: key, logger: logger, clock: clock.NewSystem()}
}

// Dispatch pushes in the background and returns at once. Push failures are
// logged and the tasks are lost.
func (q *RedisQueue) Dispatch(ctx context.Context, productIDs []int64) {
	if len(productIDs) == 0 {
		return
	}
	now := q.clock.Now()
	requestID := logging.RequestID(ctx)

	payloads := make([]any, 0, len(productIDs))
	for _, id := range productIDs {
		b, err := json.Marshal(Task{ProductID: id, EnqueuedAt: now, RequestID: requestID})
		if err != nil {
			q.logger.Error("encode replenish task", zap.Int64("product_id", id), zap.Error(err))
			continue
		}
		payloads = append(payloads, b)
	}
	if len(payloads) == 0 {
		return
	}

	q.pushes.Add(1)
	go func() {
		defer q.pushes.Done()
		pushCtx, cancel := context.WithTimeout(context.Background(), defaultPushTimeout)
		defer cancel()
		if err := q.client.LPush(pushCtx, q.key, payloads...).Err(); err != nil {
			q.logger.Error("push replenish tasks",
				zap.Int64s("product_ids", productIDs),
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		}
	}()
}

// Consume pops tasks oldest first and passes them to handle until ctx is
// done. Undecodable entries are logged and skipped.
func (q *RedisQueue) Consume(ctx context.Context, handle func(context.Context, Task) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		res, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			q.logger.Error("pop replenish task", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			q.logger.Warn("skip malformed replenish task", zap.String("payload", res[1]), zap.Error(err))
			continue
		}
		if err := handle(ctx, task); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrPoolClosed) {
				return nil
			}
			q.logger.Error("handle replenish task", zap.Int64("product_id", task.ProductID), zap.Error(err))
		}
	}
}

// Close waits for in-flight pushes. It does not close the client.
func (q *RedisQueue) Close() {
	q.pushes.Wait()
}
