// Package cache keeps live leaderboard snapshots in Redis and fans updates
// out to other instances over pub/sub.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/retroarena/eventengine/internal/domain"
)

const (
	snapshotKeyFmt     = "leaderboard:snapshot:%s"
	ChannelLeaderboard = "leaderboard:updates"
)

// ErrMiss is returned when no snapshot is cached for an event.
var ErrMiss = errors.New("cache miss")

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Client wraps a Redis connection.
type Client struct {
	rdb        *redis.Client
	ttl        time.Duration
	instanceID string
	logger     *slog.Logger
}

// NewClient connects and pings Redis.
func NewClient(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("connected to redis", "addr", opts.Addr)

	return &Client{
		rdb:        rdb,
		ttl:        opts.TTL,
		instanceID: uuid.NewString()[:8],
		logger:     logger.With("component", "redis"),
	}, nil
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// GetSnapshot returns the cached snapshot of eventID, or ErrMiss.
func (c *Client) GetSnapshot(ctx context.Context, eventID string) (*domain.LeaderboardSnapshot, error) {
	raw, err := c.rdb.Get(ctx, snapshotKey(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap domain.LeaderboardSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// SetSnapshot caches snap with the configured TTL.
func (c *Client) SetSnapshot(ctx context.Context, snap *domain.LeaderboardSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, snapshotKey(snap.EventID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

// PublishSnapshot announces a new snapshot to other instances.
func (c *Client) PublishSnapshot(ctx context.Context, snap *domain.LeaderboardSnapshot) error {
	data, err := encodeEnvelope(c.instanceID, snap)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, ChannelLeaderboard, data).Err()
}

// Subscribe delivers snapshots published by other instances to handler
// until ctx is done.
func (c *Client) Subscribe(ctx context.Context, handler func(*domain.LeaderboardSnapshot)) error {
	ps := c.rdb.Subscribe(ctx, ChannelLeaderboard)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.logger.Info("pubsub started", "instance_id", c.instanceID)

	go func() {
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				snap, fromSelf, err := decodeEnvelope(c.instanceID, msg.Payload)
				if err != nil {
					c.logger.Error("failed to decode pubsub message", "error", err)
					continue
				}
				if fromSelf {
					continue
				}
				handler(snap)
			}
		}
	}()
	return nil
}

type envelope struct {
	SourceInstance string                      `json:"source_instance"`
	Snapshot       *domain.LeaderboardSnapshot `json:"snapshot"`
}

func encodeEnvelope(instanceID string, snap *domain.LeaderboardSnapshot) ([]byte, error) {
	data, err := json.Marshal(envelope{SourceInstance: instanceID, Snapshot: snap})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

func decodeEnvelope(instanceID, payload string) (*domain.LeaderboardSnapshot, bool, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, false, err
	}
	if env.Snapshot == nil {
		return nil, false, errors.New("envelope has no snapshot")
	}
	return env.Snapshot, env.SourceInstance == instanceID, nil
}

func snapshotKey(eventID string) string {
	return fmt.Sprintf(snapshotKeyFmt, eventID)
}
