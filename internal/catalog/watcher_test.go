package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroarena/eventengine/internal/domain"
)

const catalogV1 = `events:
  - {id: E1, title: First, type: speedrun, start_date: 2024-01-01T00:00:00Z, end_date: 2024-01-08T00:00:00Z}
`

const catalogV2 = `events:
  - {id: E1, title: First, type: speedrun, start_date: 2024-01-01T00:00:00Z, end_date: 2024-01-08T00:00:00Z}
  - {id: E2, title: Second, type: challenge, start_date: 2024-02-01T00:00:00Z, end_date: 2024-02-08T00:00:00Z}
`

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogV1), 0o600))

	store := NewStore(nil)
	var mu sync.Mutex
	applied := 0
	apply := func(events []domain.Event) {
		store.Replace(events)
		mu.Lock()
		applied++
		mu.Unlock()
	}

	logger := slog.New(slog.DiscardHandler)
	w := NewWatcher(path, NewLoader(logger), apply, logger)
	w.settleDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher a moment to register before writing.
	time.Sleep(50 * time.Millisecond)

	// A broken edit must not replace the catalog.
	require.NoError(t, os.WriteFile(path, []byte("events: [ {id: "), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, store.Len())

	require.NoError(t, os.WriteFile(path, []byte(catalogV2), 0o600))

	require.Eventually(t, func() bool {
		return store.Len() == 2
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, applied, 1)
}
