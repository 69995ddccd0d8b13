package historian

import (
	"context"

	"github.com/jason-s-yu/whosaid/internal/cache"
	"github.com/jason-s-yu/whosaid/internal/database"
	"github.com/redis/go-redis/v9"
)

// RedisSource pops records from a Redis list.
type RedisSource struct {
	Client *redis.Client
	Queue  string
}

func (r RedisSource) Pop(ctx context.Context) (*cache.LobbyActionRecord, error) {
	return cache.PopAction(ctx, r.Client, r.Queue, popTimeout)
}

// PostgresSink writes batches with database.InsertLobbyActions.
type PostgresSink struct {
	DB database.TxBeginner
}

func (p PostgresSink) Insert(ctx context.Context, records []cache.LobbyActionRecord) error {
	return database.InsertLobbyActions(ctx, p.DB, records)
}
