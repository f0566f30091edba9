package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dice-offline/internal/config"
	"dice-offline/internal/handlers"
	"dice-offline/internal/logger"
	"dice-offline/internal/services"
	"dice-offline/internal/util"
)

const registerRetry = 30 * time.Second

// The offline edge runs next to the player. It serves the app shell from a
// versioned local cache of the origin's assets and answers the dice and
// combat API itself, so the tool keeps working with no network.
func main() {
	if err := godotenv.Load(); err != nil {
		logger.L().Info("No .env file found, using environment variables")
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("Failed to load config", zap.Error(err))
	}

	store, err := services.OpenBackend(cfg, cfg.OfflineDriver, cfg.OfflinePath)
	if err != nil {
		logger.L().Fatal("Failed to open offline store", zap.String("driver", cfg.OfflineDriver), zap.Error(err))
	}
	defer store.Close()

	network, err := services.NewHTTPFetcher(cfg.OfflineOrigin, cfg.OfflineTimeout)
	if err != nil {
		logger.L().Fatal("Invalid origin", zap.String("origin", cfg.OfflineOrigin), zap.Error(err))
	}

	controller := services.NewController(network)
	manager := services.NewCacheManager(cfg.CacheVersion, store, network,
		services.WithExcludedPrefixes("/api/", "/-/"),
	)

	go func() {
		ticker := time.NewTicker(registerRetry)
		defer ticker.Stop()

		for {
			err := controller.Resume(context.Background(), manager)
			if err == nil {
				return
			}
			// Until a version activates requests still go to the origin.
			logger.L().Warn("Offline cache registration failed", zap.String("cache", manager.Name()), zap.Error(err))
			<-ticker.C
		}
	}()

	source, err := services.NewSource()
	if err != nil {
		logger.L().Fatal("Failed to seed dice", zap.Error(err))
	}
	api := handlers.NewAPI(
		services.NewTrayService(store, services.NewDiceEngine(source)),
		services.NewCombatStore(store),
	)
	defer api.Close()

	offline := handlers.NewOfflineHandler(controller, network.Origin())

	router := handlers.NewRouter(cfg.IsProduction())
	api.Register(router)
	router.GET("/-/offline", offline.Status)
	router.NoRoute(offline.Serve)

	srv := &http.Server{
		Addr:    ":" + cfg.OfflinePort,
		Handler: router,
	}

	go func() {
		logger.L().Info("Offline edge starting",
			zap.String("port", cfg.OfflinePort),
			zap.String("origin", network.Origin()),
			zap.String("cache", manager.Name()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("Failed to start offline edge", zap.Error(err))
		}
	}()

	util.WaitForShutdown(func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.L().Warn("Offline edge shutdown", zap.Error(err))
		}
		manager.Wait()
	})
}
