package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "notify:"
	redisCap       = 100
	redisTTL       = 24 * time.Hour
	redisTimeout   = 5 * time.Second
)

// RedisFeed stores each namespace's feed as a capped Redis list with a TTL,
// so notifications survive API restarts and are visible to every admin
// replica.
type RedisFeed struct {
	client *redis.Client
}

func NewRedisFeed(redisURL string) (*RedisFeed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisFeed{client: client}, nil
}

// NewRedisFeedWithClient creates a feed from an existing client.
func NewRedisFeedWithClient(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

func (f *RedisFeed) key(namespace string) string {
	return redisKeyPrefix + namespace
}

func (f *RedisFeed) Push(namespace string, level Level, text string) {
	payload, err := json.Marshal(Message{Level: level, Text: text, CreatedAt: time.Now()})
	if err != nil {
		log.Printf("notify: marshal message: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	key := f.key(namespace)
	pipe := f.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, redisCap-1)
	pipe.Expire(ctx, key, redisTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("notify: push to %s: %v", key, err)
	}
}

// Recent returns up to limit messages, newest first.
func (f *RedisFeed) Recent(namespace string, limit int) []Message {
	if limit <= 0 || limit > redisCap {
		limit = redisCap
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	raw, err := f.client.LRange(ctx, f.key(namespace), 0, int64(limit-1)).Result()
	if err != nil {
		log.Printf("notify: read %s: %v", f.key(namespace), err)
		return nil
	}

	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		var message Message
		if err := json.Unmarshal([]byte(item), &message); err != nil {
			log.Printf("notify: decode message: %v", err)
			continue
		}
		messages = append(messages, message)
	}
	return messages
}

// Ping checks the backend connection.
func (f *RedisFeed) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}
