package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/retroarena/eventengine/internal/catalog"
	"github.com/retroarena/eventengine/internal/config"
	"github.com/retroarena/eventengine/internal/logger"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/service"
	"github.com/retroarena/eventengine/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideEventService provides the event service and loads the catalog
// file into it.
func ProvideEventService(i do.Injector) (*service.EventService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cat := do.MustInvoke[*catalog.Store](i)
	loader := do.MustInvoke[*catalog.Loader](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	svc := service.NewEventService(cat, indexHandle.SearchIndex, m, sseHandle.Manager, log.Component("events"))

	events, err := loadInitialCatalog(cfg, loader, log)
	if err != nil {
		return nil, err
	}
	if err := svc.Replace(context.Background(), events, time.Now()); err != nil {
		return nil, err
	}

	return svc, nil
}

// ProvideParticipationService provides the participation ledger service.
func ProvideParticipationService(i do.Injector) (*service.ParticipationService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	cat := do.MustInvoke[*catalog.Store](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	rewardsHandle := do.MustInvoke[*RewardsHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	return service.NewParticipationService(
		cat,
		storeHandle.Store,
		rewardsHandle.Emitter,
		sseHandle.Manager,
		m,
		log.Component("participation"),
	), nil
}

// ProvideTeamService provides the team registry service.
func ProvideTeamService(i do.Injector) (*service.TeamService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	cat := do.MustInvoke[*catalog.Store](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	return service.NewTeamService(cat, storeHandle.Store, v, sseHandle.Manager, m, log.Component("teams")), nil
}

// ProvideMediaGate provides the media submission gate.
func ProvideMediaGate(i do.Injector) (*service.MediaGate, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cat := do.MustInvoke[*catalog.Store](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	mediaHandle := do.MustInvoke[*MediaStoreHandle](i)
	blobStorage := do.MustInvoke[*BlobStorage](i)
	v := do.MustInvoke[*validation.Validator](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	return service.NewMediaGate(service.MediaGateConfig{
		Events:      cat,
		Ledger:      storeHandle.Store,
		Submissions: mediaHandle.Store,
		Blobs:       blobStorage.Storage,
		Validator:   v,
		MaxBytes:    cfg.Media.MaxUploadBytes,
		SSE:         sseHandle.Manager,
		Metrics:     m,
		Logger:      log.Component("media"),
	}), nil
}

// ProvideModerationService provides the moderation pipeline.
func ProvideModerationService(i do.Injector) (*service.ModerationService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	mediaHandle := do.MustInvoke[*MediaStoreHandle](i)
	blobStorage := do.MustInvoke[*BlobStorage](i)
	rewardsHandle := do.MustInvoke[*RewardsHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	return service.NewModerationService(
		mediaHandle.Store,
		blobStorage.Storage,
		rewardsHandle.Emitter,
		sseHandle.Manager,
		m,
		log.Component("moderation"),
	), nil
}

// ProvideLeaderboardService provides the leaderboard ranker.
func ProvideLeaderboardService(i do.Injector) (*service.LeaderboardService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cat := do.MustInvoke[*catalog.Store](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	mediaHandle := do.MustInvoke[*MediaStoreHandle](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	rewardsHandle := do.MustInvoke[*RewardsHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	lbCfg := service.LeaderboardConfig{
		Events:       cat,
		Submissions:  mediaHandle.Store,
		Store:        storeHandle.Store,
		Emitter:      rewardsHandle.Emitter,
		SSE:          sseHandle.Manager,
		VerifiedOnly: cfg.Leaderboard.VerifiedOnly,
		Metrics:      m,
		Logger:       log.Component("leaderboard"),
	}
	// A nil *cache.Client must not become a non-nil interface.
	if cacheHandle.Client != nil {
		lbCfg.Cache = cacheHandle.Client
	}

	return service.NewLeaderboardService(lbCfg), nil
}
