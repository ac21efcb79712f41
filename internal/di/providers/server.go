package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/retroarena/eventengine/internal/api"
	"github.com/retroarena/eventengine/internal/auth"
	"github.com/retroarena/eventengine/internal/config"
	"github.com/retroarena/eventengine/internal/logger"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	mediaHandle := do.MustInvoke[*MediaStoreHandle](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	blobStorage := do.MustInvoke[*BlobStorage](i)
	limiter := do.MustInvoke[*RateLimiterHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	services := &api.Services{
		Events:        do.MustInvoke[*service.EventService](i),
		Participation: do.MustInvoke[*service.ParticipationService](i),
		Teams:         do.MustInvoke[*service.TeamService](i),
		Media:         do.MustInvoke[*service.MediaGate](i),
		Moderation:    do.MustInvoke[*service.ModerationService](i),
		Leaderboard:   do.MustInvoke[*service.LeaderboardService](i),
	}

	checks := map[string]api.Pinger{
		"badger": storeHandle.Store,
		"sqlite": mediaHandle.Store,
		"search": searchHandle,
	}
	if cacheHandle.Client != nil {
		checks["redis"] = cacheHandle.Client
	}

	handler := api.NewServer(services, api.Config{
		Tokens:      tokens,
		SSE:         sseHandle.Manager,
		Metrics:     m,
		RateLimiter: limiter.Limiter,
		Checks:      checks,
		DataPath:    cfg.Data.BasePath,
		FilesRoot:   blobStorage.FilesRoot,
		MediaURL:    blobStorage.MediaURL,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, log.Component("api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
