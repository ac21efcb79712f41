package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/retroarena/eventengine/internal/cache"
	"github.com/retroarena/eventengine/internal/config"
	"github.com/retroarena/eventengine/internal/logger"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/rewards"
)

// ProvideMetrics provides the Prometheus registry, or nil when metrics are
// disabled. Every metrics method tolerates a nil receiver.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if !cfg.Metrics.Enabled {
		return nil, nil
	}
	return metrics.New(), nil
}

// CacheHandle wraps the optional Redis snapshot cache. Client is nil when
// Redis is not configured or unreachable at startup.
type CacheHandle struct {
	Client *cache.Client
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	if h.Client == nil {
		return nil
	}
	return h.Client.Close()
}

// ProvideCache connects to Redis when an address is configured. An
// unreachable Redis degrades to badger-only snapshots instead of failing
// startup.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Redis.Addr == "" {
		log.Info("Redis not configured, leaderboard snapshots stay in badger")
		return &CacheHandle{}, nil
	}

	client, err := cache.NewClient(context.Background(), cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.SnapshotTTL,
	}, log.Component("redis"))
	if err != nil {
		log.Warn("Redis unavailable, continuing without snapshot cache", "addr", cfg.Redis.Addr, "error", err)
		return &CacheHandle{}, nil
	}

	log.Info("Redis snapshot cache connected", "addr", cfg.Redis.Addr)
	return &CacheHandle{Client: client}, nil
}

// RewardsHandle owns the reward fan-out and the Kafka writer behind it.
type RewardsHandle struct {
	rewards.Emitter
	kafka *rewards.KafkaEmitter
}

// Shutdown implements do.Shutdownable.
func (h *RewardsHandle) Shutdown() error {
	if h.kafka == nil {
		return nil
	}
	return h.kafka.Close()
}

// ProvideRewards provides the reward emitter: a log line, an SSE event to the
// recipient and, when brokers are configured, a Kafka message.
func ProvideRewards(i do.Injector) (*RewardsHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	emitters := []rewards.Emitter{
		rewards.NewLogEmitter(log.Component("rewards")),
		rewards.NewSSEEmitter(sseHandle.Manager),
	}

	h := &RewardsHandle{}
	if len(cfg.Kafka.Brokers) > 0 {
		h.kafka = rewards.NewKafkaEmitter(cfg.Kafka.Brokers, cfg.Kafka.RewardTopic, log.Logger)
		emitters = append(emitters, h.kafka)
		log.Info("Reward publishing to Kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.RewardTopic)
	}

	h.Emitter = rewards.NewFanOut(m, emitters...)
	return h, nil
}
