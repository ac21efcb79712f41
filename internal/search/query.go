package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query     string // free text over title, game and description
	Type      string // exact event type filter, empty for all
	TeamOnly  bool
	Limit     int
	Offset    int
	Highlight bool
}

// SearchResult is the outcome of a query.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit is a single matched event.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Game       string            `json:"game"`
	Type       string            `json:"type"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a query. Results are ordered by relevance, falling back to
// start time when there is no text query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	if strings.TrimSpace(params.Query) == "" {
		req.SortBy([]string{"start", "_id"})
	} else {
		req.SortBy([]string{"-_score", "start"})
	}

	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("game")
	}

	req.Fields = []string{"title", "game", "type"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if v, ok := hit.Fields["game"].(string); ok {
			h.Game = v
		}
		if v, ok := hit.Fields["type"].(string); ok {
			h.Type = v
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string, len(hit.Fragments))
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if text := strings.TrimSpace(params.Query); text != "" {
		titleMatch := bleve.NewMatchQuery(text)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		gameMatch := bleve.NewMatchQuery(text)
		gameMatch.SetField("game")
		gameMatch.SetBoost(2.0)

		descMatch := bleve.NewMatchQuery(text)
		descMatch.SetField("description")

		// Typo tolerance on titles
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(text))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)

		textQueries := []query.Query{titleMatch, gameMatch, descMatch, fuzzy}

		// Prefix for autocomplete (minimum 2 chars)
		if len(text) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(text))
			prefix.SetField("game")
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Type != "" {
		tq := bleve.NewTermQuery(params.Type)
		tq.SetField("type")
		queries = append(queries, tq)
	}

	if params.TeamOnly {
		bq := bleve.NewBoolFieldQuery(true)
		bq.SetField("team_event")
		queries = append(queries, bq)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}
