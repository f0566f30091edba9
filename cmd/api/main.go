package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dice-offline/internal/config"
	"dice-offline/internal/handlers"
	"dice-offline/internal/logger"
	"dice-offline/internal/services"
	"dice-offline/internal/util"
	"dice-offline/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.L().Info("No .env file found, using environment variables")
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("Failed to load config", zap.Error(err))
	}

	store, err := services.OpenBackend(cfg, cfg.StoreDriver, cfg.SQLitePath)
	if err != nil {
		logger.L().Fatal("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer store.Close()

	source, err := services.NewSource()
	if err != nil {
		logger.L().Fatal("Failed to seed dice", zap.Error(err))
	}

	diceEngine := services.NewDiceEngine(source)
	trayService := services.NewTrayService(store, diceEngine)
	combatStore := services.NewCombatStore(store)

	api := handlers.NewAPI(trayService, combatStore)
	defer api.Close()

	router := handlers.NewRouter(cfg.IsProduction())
	api.Register(router)
	if err := handlers.NewAssetHandler(web.Assets()).Register(router); err != nil {
		logger.L().Fatal("Failed to mount assets", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.L().Info("Server starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	util.WaitForShutdown(func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.L().Warn("Server shutdown", zap.Error(err))
		}
	})
}
