// Package notify publishes committed notifications to Redis so that
// connected portals can refresh without polling.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"institute/portal/internal/model"
)

var ErrRedisNotConfigured = errors.New("redis_not_configured")

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: client}
}

// Channel is the pub/sub channel a role's listeners subscribe to.
func Channel(role model.Role) string {
	return fmt.Sprintf("notifications:%s", role)
}

func encode(note model.Notification) ([]byte, error) {
	return json.Marshal(note)
}

func (p *RedisPublisher) Publish(ctx context.Context, note model.Notification) error {
	if p == nil || p.redis == nil {
		return ErrRedisNotConfigured
	}
	data, err := encode(note)
	if err != nil {
		return err
	}
	return p.redis.Publish(ctx, Channel(note.RecipientRole), data).Err()
}
