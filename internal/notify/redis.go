package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier PUBLISHes events on the tab-{id} channel so websocket
// gateways subscribed through Redis can push them to clients.
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier { return &RedisNotifier{rdb: rdb} }

func (n *RedisNotifier) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}
	if err := n.rdb.Publish(ctx, ev.Topic(), body).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", ev.Topic(), err)
	}
	return nil
}
