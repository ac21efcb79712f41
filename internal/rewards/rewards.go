// Package rewards delivers reward grants to the systems that award them.
package rewards

import (
	"context"
	"errors"
	"log/slog"

	"github.com/retroarena/eventengine/internal/domain"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/sse"
)

// Emitter hands a grant to an awarding system. Callers log failures and never
// roll back engine state because of them.
type Emitter interface {
	Emit(ctx context.Context, grant domain.RewardGrant) error
}

// LogEmitter records grants in the log only.
type LogEmitter struct {
	logger *slog.Logger
}

func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) Emit(_ context.Context, g domain.RewardGrant) error {
	e.logger.Info("reward granted",
		"grant_id", g.ID,
		"user_id", g.UserID,
		"kind", g.Kind,
		"amount", g.Amount,
		"reason", g.Reason,
		"event_id", g.EventID,
	)
	return nil
}

// SSEEmitter notifies the receiving user's live connections.
type SSEEmitter struct {
	manager *sse.Manager
}

func NewSSEEmitter(manager *sse.Manager) *SSEEmitter {
	return &SSEEmitter{manager: manager}
}

func (e *SSEEmitter) Emit(_ context.Context, g domain.RewardGrant) error {
	e.manager.Emit(sse.NewRewardGrantedEvent(g))
	return nil
}

// FanOut delivers each grant to every emitter and joins their errors.
type FanOut struct {
	emitters []Emitter
	metrics  *metrics.Metrics
}

// NewFanOut skips nil emitters. m may be nil.
func NewFanOut(m *metrics.Metrics, emitters ...Emitter) *FanOut {
	f := &FanOut{metrics: m}
	for _, e := range emitters {
		if e != nil {
			f.emitters = append(f.emitters, e)
		}
	}
	return f
}

func (f *FanOut) Emit(ctx context.Context, g domain.RewardGrant) error {
	var errs []error
	for _, e := range f.emitters {
		if err := e.Emit(ctx, g); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)

	status := "ok"
	if err != nil {
		status = "error"
	}
	f.metrics.IncReward(g.Reason, status)
	return err
}
