package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/retroarena/eventengine/internal/config"
	"github.com/retroarena/eventengine/internal/domain"
	"github.com/retroarena/eventengine/internal/logger"
	"github.com/retroarena/eventengine/internal/scheduler"
	"github.com/retroarena/eventengine/internal/service"
	"github.com/retroarena/eventengine/internal/sse"
)

// SchedulerHandle wraps the leaderboard job scheduler with shutdown capability.
type SchedulerHandle struct {
	*scheduler.Scheduler
}

// ProvideScheduler starts the periodic leaderboard refresh and finalization jobs.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	leaderboard := do.MustInvoke[*service.LeaderboardService](i)

	sched, err := scheduler.New(leaderboard, scheduler.Config{
		RefreshInterval:  cfg.Leaderboard.RefreshInterval,
		FinalizeInterval: cfg.Leaderboard.FinalizeInterval,
	}, nil, log.Component("scheduler"))
	if err != nil {
		return nil, err
	}

	if err := sched.Start(context.Background()); err != nil {
		return nil, err
	}

	return &SchedulerHandle{Scheduler: sched}, nil
}

// LeaderboardRelayHandle forwards snapshots published by other instances to
// local SSE clients.
type LeaderboardRelayHandle struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *LeaderboardRelayHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideLeaderboardRelay subscribes to Redis leaderboard updates. Without
// Redis there is nothing to relay.
func ProvideLeaderboardRelay(i do.Injector) (*LeaderboardRelayHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	if cacheHandle.Client == nil {
		return &LeaderboardRelayHandle{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := cacheHandle.Client.Subscribe(ctx, func(snap *domain.LeaderboardSnapshot) {
		sseHandle.Emit(sse.NewLeaderboardUpdatedEvent(snap))
	})
	if err != nil {
		cancel()
		log.Warn("Leaderboard relay unavailable", "error", err)
		return &LeaderboardRelayHandle{}, nil
	}

	return &LeaderboardRelayHandle{cancel: cancel}, nil
}
