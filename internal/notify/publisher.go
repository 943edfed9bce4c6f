// Package notify delivers structured event payloads to an external channel.
// The core emits plain JSON; formatting and fan-out belong to the consumer.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/platform/envutil"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

// Message is one outbound event payload.
type Message struct {
	Kind   string         `json:"kind"`
	Data   map[string]any `json:"data"`
	SentAt time.Time      `json:"sent_at"`
}

// Publisher hands a message to the configured channel. Delivery retry and
// formatting are the consumer's responsibility.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Channel() string
	Close() error
}

// NewPublisher returns the Redis publisher when REDIS_ADDR is set and the
// log-only publisher otherwise.
func NewPublisher(log *logger.Logger) (Publisher, error) {
	if addr := envutil.Str("REDIS_ADDR", ""); addr != "" {
		return NewRedisPublisher(log)
	}
	return NewLogPublisher(log), nil
}

type redisPublisher struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisPublisher connects to REDIS_ADDR and verifies the connection with a
// ping before returning.
func NewRedisPublisher(log *logger.Logger) (Publisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := envutil.Str("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	channel := envutil.Str("NOTIFY_CHANNEL", "assetwatch:events")

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.Str("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisPublisher{
		log:     log.With("service", "RedisPublisher"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (p *redisPublisher) Publish(ctx context.Context, msg Message) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("redis publisher not initialized")
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}

func (p *redisPublisher) Channel() string { return types.NotifyChannelRedis }

func (p *redisPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

type logPublisher struct {
	log *logger.Logger
}

// NewLogPublisher writes payloads to the application log. Used when no Redis
// address is configured.
func NewLogPublisher(log *logger.Logger) Publisher {
	return &logPublisher{log: log.With("service", "LogPublisher")}
}

func (p *logPublisher) Publish(ctx context.Context, msg Message) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	raw, err := json.Marshal(msg.Data)
	if err != nil {
		return err
	}
	p.log.Info("event", "kind", msg.Kind, "payload", string(raw))
	return nil
}

func (p *logPublisher) Channel() string { return types.NotifyChannelLog }

func (p *logPublisher) Close() error { return nil }
