package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/retroarena/eventengine/internal/domain"
	"github.com/retroarena/eventengine/internal/id"
	"github.com/retroarena/eventengine/internal/rewards"
	"github.com/retroarena/eventengine/internal/sse"
)

// EventLookup resolves catalog events. *catalog.Store satisfies it.
type EventLookup interface {
	GetByID(id string) (domain.Event, error)
}

// Broadcaster queues live updates. *sse.Manager satisfies it.
type Broadcaster interface {
	Emit(event sse.Event)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Emit(sse.Event) {}

func broadcasterOrNoop(b Broadcaster) Broadcaster {
	if b == nil {
		return noopBroadcaster{}
	}
	return b
}

// emitGrants hands each grant to the emitter. Failures are logged and never
// returned: awarded state is already committed.
func emitGrants(ctx context.Context, emitter rewards.Emitter, logger *slog.Logger, grants []domain.RewardGrant) {
	if emitter == nil {
		return
	}
	for _, g := range grants {
		if err := emitter.Emit(ctx, g); err != nil {
			logger.Warn("reward emit failed",
				"grant_id", g.ID,
				"user_id", g.UserID,
				"reason", g.Reason,
				"error", err,
			)
		}
	}
}

// newGrantID never fails the caller; an entropy failure falls back to a
// timestamp-derived id.
func newGrantID(now time.Time) string {
	gid, err := id.Generate(id.PrefixGrant)
	if err != nil {
		return id.PrefixGrant + "-" + now.UTC().Format("20060102T150405.000000000")
	}
	return gid
}
