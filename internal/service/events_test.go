package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroarena/eventengine/internal/catalog"
	"github.com/retroarena/eventengine/internal/domain"
	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/search"
	"github.com/retroarena/eventengine/internal/sse"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingBroadcaster) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func newEventService(t *testing.T) (*EventService, *recordingBroadcaster) {
	t.Helper()
	idx, err := search.NewSearchIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	rec := &recordingBroadcaster{}
	svc := NewEventService(catalog.NewStore(nil), idx, metrics.New(), rec, slog.New(slog.DiscardHandler))
	require.NoError(t, svc.Replace(context.Background(), testEvents(), now))
	return svc, rec
}

func eventIDs(events []domain.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestEventService_Lists(t *testing.T) {
	svc, _ := newEventService(t)

	assert.Equal(t, []string{"E1", "E2"}, eventIDs(svc.ListActive(now)))
	assert.Equal(t, []string{"E-upcoming"}, eventIDs(svc.ListUpcoming(now)))
	assert.Equal(t, []string{"E-past"}, eventIDs(svc.ListCompleted(now)))

	_, err := svc.Get("missing")
	assert.ErrorIs(t, err, domainerrors.ErrEventNotFound)
}

func TestEventService_ListFilters(t *testing.T) {
	svc, _ := newEventService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  ListEventsRequest
		want []string
	}{
		{"priority order", ListEventsRequest{}, []string{"E1", "E2", "E-upcoming", "E-past"}},
		{"by status", ListEventsRequest{Status: domain.EventStatusUpcoming}, []string{"E-upcoming"}},
		{"by type", ListEventsRequest{Type: domain.EventTypeTimeTrial}, []string{"E-upcoming", "E-past"}},
		{"by type and status", ListEventsRequest{Type: domain.EventTypeTimeTrial, Status: domain.EventStatusCompleted}, []string{"E-past"}},
		{"text query", ListEventsRequest{Query: "metroid"}, []string{"E1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.req, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, eventIDs(got))
		})
	}
}

func TestEventService_ReplaceBroadcasts(t *testing.T) {
	svc, rec := newEventService(t)

	require.NoError(t, svc.Replace(context.Background(), testEvents()[:1], now))
	assert.Equal(t, []string{"E1"}, eventIDs(svc.ListActive(now)))

	require.Len(t, rec.events, 2)
	assert.Equal(t, sse.EventCatalogReloaded, rec.events[1].Type)

	res, err := svc.Search(context.Background(), search.SearchParams{Query: "relay"})
	require.NoError(t, err)
	assert.Zero(t, res.Total, "replaced events drop out of the index")
}
