package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"github.com/webitel/valuegraph/config"
	"github.com/webitel/valuegraph/internal/domain/cache"
	"github.com/webitel/valuegraph/internal/graph"
	"github.com/webitel/valuegraph/internal/handler/lp"
	"github.com/webitel/valuegraph/internal/handler/ws"
)

// NewApp wires the demo server: a shared cache over an in-memory store, a
// chi router, and the ws/lp cell-mirror handlers mounted on it.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideRouter,
			ProvideStore,
			ProvideCache,
			ProvideCellRegistry,
			func(reg *CellRegistry) ws.Resolver { return reg.Resolve },
			func(reg *CellRegistry) lp.Resolver { return reg.Resolve },
		),
		ws.Module,
		lp.Module,
		fx.Invoke(RegisterHTTPServer),
	)
}

// ProvideLogger returns the application's structured logger.
func ProvideLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// ProvideWatermillLogger adapts the slog logger for watermill's router and
// pub/sub components.
func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}

// ProvideRouter returns the shared chi router every handler module mounts
// its routes on.
func ProvideRouter() *chi.Mux {
	return chi.NewRouter()
}

// ProvideStore returns the shared-cache backing store.
func ProvideStore(logger watermill.LoggerAdapter) cache.Store {
	return cache.NewMemoryStore(logger)
}

// ProvideCache wires the shared cache over store using cfg's cold-retention
// size and defer-to-parent prefixes.
func ProvideCache(store cache.Store, cfg *config.Config, logger *slog.Logger) *cache.Cache {
	return cache.NewCache(store,
		cache.WithColdRetention(cfg.ColdCacheSize),
		cache.WithDeferToParentPrefixes(cfg.DeferToParentPrefixes()...),
		cache.WithLogger(logger),
	)
}

// ProvideCellRegistry seeds a demo source cell ("clock", a 1-second
// Interval) so the ws/lp endpoints and the inspector have something to show
// out of the box.
func ProvideCellRegistry() *CellRegistry {
	reg := NewCellRegistry()
	reg.Register("clock", graph.Interval(graph.RealClock, time.Second))
	return reg
}

// RegisterHTTPServer starts the HTTP server serving router on cfg.ListenAddr
// and stops it on shutdown.
func RegisterHTTPServer(lc fx.Lifecycle, cfg *config.Config, router *chi.Mux, logger *slog.Logger) {
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("http server error", slog.Any("err", err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
