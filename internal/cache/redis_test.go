package cache

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *RedisRecorder
	assert.NotPanics(t, func() {
		r.Record(SessionActionRecord{SessionCode: "OTTER"})
		r.Close()
	})
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	// The client points nowhere; nothing is queued so nothing is dialed.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()

	r := NewRedisRecorder(rdb, "", quietLogger())
	r.Close()
	r.Close()
	assert.NotPanics(t, func() { r.Record(SessionActionRecord{SessionCode: "OTTER"}) })
}

// Requires a local Redis; skipped otherwise.
func TestRecorderPublishesInOrder(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	queue := "psykos_test_" + uuid.NewString()
	defer rdb.Del(context.Background(), queue)

	r := NewRedisRecorder(rdb, queue, quietLogger())
	actor := uuid.New()
	for i := 1; i <= 5; i++ {
		r.Record(SessionActionRecord{
			SessionCode: "OTTER",
			ActionIndex: i,
			ActorID:     actor,
			ActionType:  "submit-answer",
			Timestamp:   time.Now().UnixMilli(),
		})
	}
	r.Close()

	raw, err := rdb.LRange(ctx, queue, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, raw, 5)
	for i, item := range raw {
		var rec SessionActionRecord
		require.NoError(t, json.Unmarshal([]byte(item), &rec))
		assert.Equal(t, i+1, rec.ActionIndex)
		assert.Equal(t, actor, rec.ActorID)
	}
}
