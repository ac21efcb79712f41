package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/retroarena/eventengine/internal/domain"
)

// SearchIndex wraps a Bleve index of catalog events.
//
// All public methods are safe for concurrent use. The mutex guards the index
// handle while ReplaceAll swaps contents.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch on disk triggers a rebuild on startup.
const mappingVersion = "1"

// NewSearchIndex creates or opens an event index. A corrupt or outdated
// on-disk index is removed and recreated; the catalog is reindexed on every
// load so nothing is lost.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &SearchIndex{index: index, logger: logger}, nil
	}

	indexPath := filepath.Join(opts.DataPath, "events.bleve")
	versionPath := filepath.Join(opts.DataPath, "events.bleve.version")

	var index bleve.Index
	if _, statErr := os.Stat(indexPath); statErr == nil {
		existing, readErr := os.ReadFile(versionPath) //#nosec G304 -- path built from config
		if readErr == nil && string(existing) == mappingVersion {
			opened, err := bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open existing index, will recreate", "path", indexPath, "error", err)
			} else {
				index = opened
			}
		} else {
			logger.Info("search index mapping version changed, will rebuild", "new_version", mappingVersion)
		}

		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if index == nil {
		created, err := bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o600); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		index = created
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	}

	return &SearchIndex{index: index, path: indexPath, logger: logger}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// ReplaceAll makes the index contain exactly events. Documents for events no
// longer in the catalog are deleted in the same batch.
func (s *SearchIndex) ReplaceAll(events []domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[string]struct{}, len(events))
	batch := s.index.NewBatch()
	for i := range events {
		doc := NewEventDocument(&events[i])
		keep[doc.ID] = struct{}{}
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}

	stale, err := s.allIDs()
	if err != nil {
		return err
	}
	for _, id := range stale {
		if _, ok := keep[id]; !ok {
			batch.Delete(id)
		}
	}

	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	s.logger.Debug("search index replaced", "events", len(events))
	return nil
}

// allIDs lists every indexed document id. Caller holds the lock.
func (s *SearchIndex) allIDs() ([]string, error) {
	count, err := s.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}
