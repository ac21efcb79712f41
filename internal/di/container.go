// Package di provides dependency injection configuration for the event engine.
package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/retroarena/eventengine/internal/auth"
	"github.com/retroarena/eventengine/internal/catalog"
	"github.com/retroarena/eventengine/internal/config"
	"github.com/retroarena/eventengine/internal/di/providers"
	"github.com/retroarena/eventengine/internal/logger"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/service"
	"github.com/retroarena/eventengine/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideMediaStore)
	do.Provide(injector, providers.ProvideCache)

	// Storage layer
	do.Provide(injector, providers.ProvideBlobStorage)

	// Catalog and search
	do.Provide(injector, providers.ProvideCatalogLoader)
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideRateLimiter)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideRewards)
	do.Provide(injector, providers.ProvideEventService)
	do.Provide(injector, providers.ProvideParticipationService)
	do.Provide(injector, providers.ProvideTeamService)
	do.Provide(injector, providers.ProvideMediaGate)
	do.Provide(injector, providers.ProvideModerationService)
	do.Provide(injector, providers.ProvideLeaderboardService)

	// Workers
	do.Provide(injector, providers.ProvideCatalogWatcher)
	do.Provide(injector, providers.ProvideScheduler)
	do.Provide(injector, providers.ProvideLeaderboardRelay)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services in dependency order. The first failing
// provider aborts startup.
func Bootstrap(injector *do.RootScope) error {
	steps := []struct {
		name   string
		invoke func(do.Injector) error
	}{
		{"config", invoke[*config.Config]},
		{"logger", invoke[*logger.Logger]},
		{"metrics", invoke[*metrics.Metrics]},
		{"auth key", invoke[providers.AuthKey]},
		{"sse", invoke[*providers.SSEManagerHandle]},
		{"store", invoke[*providers.StoreHandle]},
		{"media store", invoke[*providers.MediaStoreHandle]},
		{"cache", invoke[*providers.CacheHandle]},
		{"blob storage", invoke[*providers.BlobStorage]},
		{"catalog", invoke[*catalog.Store]},
		{"search index", invoke[*providers.SearchIndexHandle]},
		{"token service", invoke[*auth.TokenService]},
		{"rate limiter", invoke[*providers.RateLimiterHandle]},
		{"validator", invoke[*validation.Validator]},
		{"rewards", invoke[*providers.RewardsHandle]},

		// Business services
		{"event service", invoke[*service.EventService]},
		{"participation service", invoke[*service.ParticipationService]},
		{"team service", invoke[*service.TeamService]},
		{"media gate", invoke[*service.MediaGate]},
		{"moderation service", invoke[*service.ModerationService]},
		{"leaderboard service", invoke[*service.LeaderboardService]},

		// Workers
		{"catalog watcher", invoke[*providers.CatalogWatcherHandle]},
		{"scheduler", invoke[*providers.SchedulerHandle]},
		{"leaderboard relay", invoke[*providers.LeaderboardRelayHandle]},

		// Server
		{"http server", invoke[*providers.HTTPServerHandle]},
	}

	for _, step := range steps {
		if err := step.invoke(injector); err != nil {
			return fmt.Errorf("init %s: %w", step.name, err)
		}
	}
	return nil
}

func invoke[T any](i do.Injector) error {
	_, err := do.Invoke[T](i)
	return err
}
