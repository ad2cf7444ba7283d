// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list that session action records are appended to.
var DefaultQueueName = "psykos_actions"

// recordBuffer bounds how many records may wait for the publisher.
const recordBuffer = 256

// SessionActionRecord is one committed transition, for consumers that replay or audit sessions.
type SessionActionRecord struct {
	SessionCode   string                 `json:"session_code"`
	ActionIndex   int                    `json:"action_index"`
	ActorID       uuid.UUID              `json:"actor_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ConnectRedis dials addr and verifies the connection with a ping.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// PublishSessionAction serializes the record to JSON and pushes it onto queue.
func PublishSessionAction(ctx context.Context, rdb redis.Cmdable, queue string, record SessionActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal SessionActionRecord: %w", err)
	}
	if err := rdb.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queue, err)
	}
	return nil
}

// RedisRecorder publishes records from a single worker so a session's actions
// land in the list in the order they were committed. A nil *RedisRecorder is a no-op.
type RedisRecorder struct {
	rdb     redis.Cmdable
	queue   string
	logger  logrus.FieldLogger
	records chan SessionActionRecord
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewRedisRecorder starts the publishing worker. Call Close to flush and stop it.
func NewRedisRecorder(rdb redis.Cmdable, queue string, logger logrus.FieldLogger) *RedisRecorder {
	if queue == "" {
		queue = DefaultQueueName
	}
	r := &RedisRecorder{
		rdb:     rdb,
		queue:   queue,
		logger:  logger,
		records: make(chan SessionActionRecord, recordBuffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues rec without blocking. Records are dropped when the buffer is full.
func (r *RedisRecorder) Record(rec SessionActionRecord) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.records <- rec:
	default:
		r.logger.WithFields(logrus.Fields{
			"session": rec.SessionCode,
			"index":   rec.ActionIndex,
		}).Warn("action log buffer full, dropping record")
	}
}

// Close stops accepting records and waits for queued ones to be published.
func (r *RedisRecorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.records)
	r.mu.Unlock()
	<-r.done
}

func (r *RedisRecorder) run() {
	defer close(r.done)
	for rec := range r.records {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := PublishSessionAction(ctx, r.rdb, r.queue, rec); err != nil {
			r.logger.WithError(err).WithField("session", rec.SessionCode).Warn("failed to publish session action")
		}
		cancel()
	}
}
