package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink публикует события в канал Redis для соседних сервисов (чат, лента).
type RedisSink struct {
	client  publisher
	channel string
}

func NewRedisSink(client publisher, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

// NewRedisClient разбирает REDIS_URL и проверяет соединение.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: некорректный адрес: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: нет соединения: %w", err)
	}
	return client, nil
}

type redisMessage struct {
	entity.OrderEvent
	Recipients []string `json:"recipients"`
}

func (s *RedisSink) Notify(ctx context.Context, event entity.OrderEvent) error {
	msg := redisMessage{OrderEvent: event, Recipients: make([]string, len(event.Recipients))}
	for i, id := range event.Recipients {
		msg.Recipients[i] = id.String()
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis: не удалось сериализовать событие: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis: публикация в %s: %w", s.channel, err)
	}
	return nil
}
