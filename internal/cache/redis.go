// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list the historian consumes.
const DefaultQueueName = "whosaid_lobby_actions"

// LobbyActionRecord is one entry in a lobby's history log.
type LobbyActionRecord struct {
	LobbyID     uuid.UUID      `json:"lobby_id"`
	ActionIndex int            `json:"action_index"`
	ActorID     uuid.UUID      `json:"actor_id"`
	ActionType  string         `json:"action_type"`
	Payload     map[string]any `json:"payload"`
	Timestamp   int64          `json:"timestamp"` // epoch millis
}

// Connect opens a Redis client and verifies it with a PING.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
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

// Publisher pushes lobby history records onto a Redis list.
type Publisher struct {
	rdb     *redis.Client
	queue   string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewPublisher returns a Publisher writing to queue. An empty queue uses DefaultQueueName.
func NewPublisher(rdb *redis.Client, queue string, logger *logrus.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queue: queue, timeout: 2 * time.Second, logger: logger}
}

// Publish serializes record to JSON and RPUSHes it onto the queue.
func (p *Publisher) Publish(ctx context.Context, record LobbyActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal LobbyActionRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// RecordAction publishes record in the background so lobby commands never wait on Redis.
func (p *Publisher) RecordAction(record LobbyActionRecord) {
	go func(rec LobbyActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, rec); err != nil {
			p.logger.WithFields(logrus.Fields{
				"lobby_id":     rec.LobbyID,
				"action_index": rec.ActionIndex,
				"action_type":  rec.ActionType,
			}).Warnf("publishing lobby action: %v", err)
		}
	}(record)
}

// Queue returns the Redis list name.
func (p *Publisher) Queue() string {
	return p.queue
}

// PopAction blocks up to timeout for the next record on queue. It returns nil, nil
// when the wait times out.
func PopAction(ctx context.Context, rdb *redis.Client, queue string, timeout time.Duration) (*LobbyActionRecord, error) {
	res, err := rdb.BLPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("BLPop %s: %w", queue, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	var record LobbyActionRecord
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return nil, fmt.Errorf("invalid action record: %w", err)
	}
	return &record, nil
}
