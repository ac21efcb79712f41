package sse

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/retroarena/eventengine/internal/id"
	"github.com/retroarena/eventengine/internal/metrics"
)

const (
	queueSize       = 1024
	subscriberQueue = 64

	// A subscriber that misses this many events in a row is evicted.
	maxConsecutiveDrops = 32

	defaultHeartbeat = 30 * time.Second
)

// Filter decides which events a subscriber sees.
type Filter struct {
	// UserID receives events targeted at that user. Empty means anonymous.
	UserID string
	// EventID, when set, hides event-scoped traffic for other events.
	EventID string
	// Moderator unlocks moderation-only events.
	Moderator bool
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Event) bool {
	switch {
	case e.Type == EventSubmissionReported && !f.Moderator:
		return false
	case e.UserID != "" && e.UserID != f.UserID:
		return false
	case f.EventID != "" && e.EventID != "" && e.EventID != f.EventID:
		return false
	}
	return true
}

// Subscriber is one open stream.
type Subscriber struct {
	ID          string
	Filter      Filter
	ConnectedAt time.Time

	ch    chan Event
	drops atomic.Int32
}

// Events delivers matching events. It is closed when the subscriber is
// disconnected, evicted or the manager shuts down.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Manager fans emitted events out to subscribers.
type Manager struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	heartbeat time.Duration

	queue chan Event
	quit  chan struct{}
	once  sync.Once
	done  chan struct{}
	ran   atomic.Bool

	mu   sync.RWMutex
	subs map[string]*Subscriber
}

// NewManager returns a Manager. Call Start to begin delivery.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:    logger,
		heartbeat: defaultHeartbeat,
		queue:     make(chan Event, queueSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		subs:      make(map[string]*Subscriber),
	}
}

// SetMetrics reports the subscriber count to m. Call before Start.
func (m *Manager) SetMetrics(mt *metrics.Metrics) {
	m.metrics = mt
}

// Start delivers queued events and heartbeats until ctx ends or Shutdown is
// called. It runs at most once.
func (m *Manager) Start(ctx context.Context) {
	if !m.ran.CompareAndSwap(false, true) {
		return
	}
	defer close(m.done)

	tick := time.NewTicker(m.heartbeat)
	defer tick.Stop()

	m.logger.Info("SSE manager started", "heartbeat", m.heartbeat)
	for {
		select {
		case e := <-m.queue:
			m.deliver(e)
		case <-tick.C:
			m.deliver(NewHeartbeatEvent())
		case <-m.quit:
			m.drain()
			m.closeAll()
			return
		case <-ctx.Done():
			m.closeAll()
			return
		}
	}
}

// Shutdown stops accepting events, flushes what is queued and closes every
// subscriber. It returns when delivery has stopped or ctx expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.once.Do(func() { close(m.quit) })

	if !m.ran.Load() {
		m.closeAll()
		return nil
	}

	select {
	case <-m.done:
		m.logger.Info("SSE manager stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("SSE manager stop timed out, queued events may be lost")
		return ctx.Err()
	}
}

// Emit queues e. It never blocks: a full queue drops the event.
func (m *Manager) Emit(e Event) {
	select {
	case <-m.quit:
		return
	default:
	}

	select {
	case m.queue <- e:
	default:
		m.logger.Error("SSE queue full, dropping event", "event_type", e.Type)
	}
}

// Connect registers a subscriber for f.
func (m *Manager) Connect(f Filter) (*Subscriber, error) {
	subID, err := id.Generate(id.PrefixClient)
	if err != nil {
		return nil, err
	}
	sub := &Subscriber{
		ID:          subID,
		Filter:      f,
		ConnectedAt: time.Now(),
		ch:          make(chan Event, subscriberQueue),
	}

	m.mu.Lock()
	m.subs[sub.ID] = sub
	n := len(m.subs)
	m.mu.Unlock()
	m.metrics.SetSSEClients(n)

	m.logger.Info("SSE client connected",
		"client_id", sub.ID,
		"user_id", f.UserID,
		"event_id", f.EventID,
		"total_clients", n,
	)
	return sub, nil
}

// Disconnect removes a subscriber. Unknown ids are ignored.
func (m *Manager) Disconnect(subID string) {
	m.mu.Lock()
	sub, ok := m.subs[subID]
	if ok {
		delete(m.subs, subID)
		close(sub.ch)
	}
	n := len(m.subs)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.metrics.SetSSEClients(n)

	m.logger.Info("SSE client disconnected",
		"client_id", subID,
		"duration", time.Since(sub.ConnectedAt),
		"total_clients", n,
	)
}

// ClientCount returns the number of open subscribers.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

func (m *Manager) deliver(e Event) {
	var sent, skipped int
	var evict []string

	m.mu.RLock()
	for _, sub := range m.subs {
		if !sub.Filter.Match(e) {
			skipped++
			continue
		}
		select {
		case sub.ch <- e:
			sub.drops.Store(0)
			sent++
		default:
			if sub.drops.Add(1) >= maxConsecutiveDrops {
				evict = append(evict, sub.ID)
			}
		}
	}
	m.mu.RUnlock()

	for _, subID := range evict {
		m.logger.Warn("evicting slow SSE client", "client_id", subID)
		m.Disconnect(subID)
	}

	if e.Type != EventHeartbeat {
		m.logger.Debug("event delivered",
			"event_type", e.Type,
			"sent", sent,
			"skipped", skipped,
		)
	}
}

func (m *Manager) drain() {
	for {
		select {
		case e := <-m.queue:
			m.deliver(e)
		default:
			return
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	for _, sub := range m.subs {
		close(sub.ch)
	}
	clear(m.subs)
	m.mu.Unlock()
	m.metrics.SetSSEClients(0)
}
