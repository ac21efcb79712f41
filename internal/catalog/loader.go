package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/retroarena/eventengine/internal/domain"
)

// rawEvent is the on-disk shape. The type is free text until normalized.
type rawEvent struct {
	StartDate        time.Time                 `json:"start_date" yaml:"start_date"`
	EndDate          time.Time                 `json:"end_date" yaml:"end_date"`
	ID               string                    `json:"id" yaml:"id"`
	Title            string                    `json:"title" yaml:"title"`
	Game             string                    `json:"game" yaml:"game"`
	Description      string                    `json:"description" yaml:"description"`
	Type             string                    `json:"type" yaml:"type"`
	Rewards          []domain.RewardDescriptor `json:"rewards" yaml:"rewards"`
	IsTeamEvent      bool                      `json:"is_team_event" yaml:"is_team_event"`
	MinTeamSize      int                       `json:"min_team_size" yaml:"min_team_size"`
	MaxTeamSize      int                       `json:"max_team_size" yaml:"max_team_size"`
	MaxSubmissions   int                       `json:"max_submissions" yaml:"max_submissions"`
	ParticipantCount int                       `json:"participant_count" yaml:"participant_count"`
}

type catalogFile struct {
	Events []rawEvent `json:"events" yaml:"events"`
}

// Loader reads and validates catalog files.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads a .json, .yaml or .yml catalog. Every event is validated and
// defaulted; any problem fails the whole load so a bad edit never replaces a
// good catalog.
func (l *Loader) Load(path string) ([]domain.Event, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- catalog path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &file)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	events, err := normalize(file.Events)
	if err != nil {
		return nil, err
	}

	l.logger.Info("catalog loaded", "path", path, "events", len(events))
	return events, nil
}

// normalize validates raw events and converts them to domain events.
func normalize(raw []rawEvent) ([]domain.Event, error) {
	var errs []error
	seen := make(map[string]struct{}, len(raw))
	events := make([]domain.Event, 0, len(raw))

	for i, r := range raw {
		e, err := normalizeOne(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d (%s): %w", i, r.ID, err))
			continue
		}
		if _, dup := seen[e.ID]; dup {
			errs = append(errs, fmt.Errorf("event %d: duplicate id %q", i, e.ID))
			continue
		}
		seen[e.ID] = struct{}{}
		events = append(events, e)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return events, nil
}

// reservedIDChars may not appear in event ids; storage keys use ':' to join
// an event id with the ids scoped under it.
const reservedIDChars = ":"

func normalizeOne(r rawEvent) (domain.Event, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return domain.Event{}, errors.New("id is required")
	}
	if strings.ContainsAny(id, reservedIDChars) {
		return domain.Event{}, fmt.Errorf("id %q contains one of %q", id, reservedIDChars)
	}
	if strings.TrimSpace(r.Title) == "" {
		return domain.Event{}, errors.New("title is required")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return domain.Event{}, errors.New("start_date and end_date are required")
	}
	if !r.StartDate.Before(r.EndDate) {
		return domain.Event{}, fmt.Errorf("start_date %s is not before end_date %s",
			r.StartDate.Format(time.RFC3339), r.EndDate.Format(time.RFC3339))
	}

	eventType, ok := domain.ParseEventType(r.Type)
	if !ok {
		return domain.Event{}, fmt.Errorf("unknown event type %q", r.Type)
	}

	rewards := make([]domain.RewardDescriptor, 0, len(r.Rewards))
	for _, rw := range r.Rewards {
		if rw.Kind == "" {
			rw.Kind = domain.RewardKindPoints
		}
		switch rw.Kind {
		case domain.RewardKindPoints, domain.RewardKindBadge, domain.RewardKindTitle, domain.RewardKindItem:
		default:
			return domain.Event{}, fmt.Errorf("unknown reward kind %q", rw.Kind)
		}
		rewards = append(rewards, rw)
	}

	e := domain.Event{
		ID:               id,
		Title:            strings.TrimSpace(r.Title),
		Game:             strings.TrimSpace(r.Game),
		Description:      descriptionToMarkdown(r.Description),
		StartDate:        r.StartDate.UTC(),
		EndDate:          r.EndDate.UTC(),
		Type:             eventType,
		Rewards:          rewards,
		IsTeamEvent:      r.IsTeamEvent,
		MinTeamSize:      r.MinTeamSize,
		MaxTeamSize:      r.MaxTeamSize,
		MaxSubmissions:   r.MaxSubmissions,
		ParticipantCount: max(r.ParticipantCount, 0),
	}
	e.ApplyDefaults()

	if e.IsTeamEvent && e.MinTeamSize > e.MaxTeamSize {
		return domain.Event{}, fmt.Errorf("min_team_size %d exceeds max_team_size %d", e.MinTeamSize, e.MaxTeamSize)
	}
	return e, nil
}

// Write stores events as a catalog file, choosing the encoding by extension.
func Write(path string, events []domain.Event) error {
	payload := struct {
		Events []domain.Event `json:"events" yaml:"events"`
	}{Events: events}

	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(payload, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(payload)
	default:
		return fmt.Errorf("unsupported catalog format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	// Write then rename so a watcher never reads a half-written file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // catalog is not secret
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename catalog: %w", err)
	}
	return nil
}
