package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroarena/eventengine/internal/domain"
)

func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func catalogEvents() []domain.Event {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Event{
		{
			ID: "E1", Title: "Rainbow Road Time Trial", Game: "Mario Kart 64",
			Description: "Fastest three laps on Rainbow Road", Type: domain.EventTypeTimeTrial,
			StartDate: start, EndDate: start.Add(7 * 24 * time.Hour),
		},
		{
			ID: "E2", Title: "Facility Any%", Game: "GoldenEye 007",
			Description: "Classic speedrun of the Facility level", Type: domain.EventTypeSpeedrun,
			StartDate: start.Add(24 * time.Hour), EndDate: start.Add(8 * 24 * time.Hour),
			IsTeamEvent: true,
		},
		{
			ID: "E3", Title: "Cartridge Collection Drive", Game: "Any",
			Description: "Show off your boxed Mario titles", Type: domain.EventTypeCollection,
			StartDate: start.Add(48 * time.Hour), EndDate: start.Add(9 * 24 * time.Hour),
		},
	}
}

func hitIDs(res *SearchResult) []string {
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestSearchIndex_ReplaceAll(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.ReplaceAll(catalogEvents()))
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	require.NoError(t, index.ReplaceAll(catalogEvents()[:1]))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearchIndex_TextQuery(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.ReplaceAll(catalogEvents()))

	res, err := index.Search(context.Background(), SearchParams{Query: "mario"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"E1", "E3"}, hitIDs(res))

	res, err = index.Search(context.Background(), SearchParams{Query: "goldeneye"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "E2", res.Hits[0].ID)
	assert.Equal(t, "GoldenEye 007", res.Hits[0].Game)
}

func TestSearchIndex_TypeFilter(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.ReplaceAll(catalogEvents()))

	res, err := index.Search(context.Background(), SearchParams{Type: string(domain.EventTypeSpeedrun)})
	require.NoError(t, err)
	assert.Equal(t, []string{"E2"}, hitIDs(res))

	res, err = index.Search(context.Background(), SearchParams{TeamOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"E2"}, hitIDs(res))
}

func TestSearchIndex_MatchAllSortsByStart(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.ReplaceAll(catalogEvents()))

	res, err := index.Search(context.Background(), SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"E1", "E2", "E3"}, hitIDs(res))
}

func TestNewSearchIndex_OnDisk(t *testing.T) {
	dir := t.TempDir()

	index, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.ReplaceAll(catalogEvents()))
	require.NoError(t, index.Close())

	reopened, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}
