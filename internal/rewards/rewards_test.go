package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroarena/eventengine/internal/domain"
	"github.com/retroarena/eventengine/internal/metrics"
)

var grant = domain.RewardGrant{
	IssuedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	ID:       "grant-1",
	UserID:   "u1",
	Kind:     domain.RewardKindPoints,
	Amount:   25,
	Reason:   domain.RewardReasonVerification,
	EventID:  "evt-1",
}

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

type funcEmitter func(context.Context, domain.RewardGrant) error

func (f funcEmitter) Emit(ctx context.Context, g domain.RewardGrant) error { return f(ctx, g) }

func TestKafkaEmitter_KeysByUser(t *testing.T) {
	w := &recordingWriter{}
	e := NewKafkaEmitterWithWriter(w, "event-rewards", slog.New(slog.DiscardHandler))

	require.NoError(t, e.Emit(context.Background(), grant))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "u1", string(w.msgs[0].Key))

	var decoded domain.RewardGrant
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, grant, decoded)

	require.NoError(t, e.Close())
	assert.True(t, w.closed)
}

func TestKafkaEmitter_WrapsWriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	e := NewKafkaEmitterWithWriter(w, "event-rewards", slog.New(slog.DiscardHandler))

	err := e.Emit(context.Background(), grant)
	assert.ErrorContains(t, err, "broker down")
	assert.ErrorContains(t, err, "grant-1")
}

func TestFanOut_DeliversToAllAndJoinsErrors(t *testing.T) {
	var got []string
	ok := funcEmitter(func(_ context.Context, g domain.RewardGrant) error {
		got = append(got, "ok:"+g.ID)
		return nil
	})
	boom := errors.New("boom")
	bad := funcEmitter(func(context.Context, domain.RewardGrant) error { return boom })

	f := NewFanOut(metrics.New(), ok, nil, bad, NewLogEmitter(slog.New(slog.DiscardHandler)))
	err := f.Emit(context.Background(), grant)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"ok:grant-1"}, got)
}

func TestFanOut_NilMetrics(t *testing.T) {
	f := NewFanOut(nil)
	assert.NoError(t, f.Emit(context.Background(), grant))
}
