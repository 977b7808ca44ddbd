package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-costing/internal/api"
	"recipe-costing/internal/core/catalog/cache"
	"recipe-costing/internal/core/importqueue"
	"recipe-costing/internal/infrastructure/config"
	"recipe-costing/internal/infrastructure/persistence"
	"recipe-costing/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含選填的 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(common.LoggerOptions{
		Level:   cfg.LogLevel,
		Mode:    cfg.LogMode,
		File:    cfg.LogFile,
		Service: cfg.App.Name,
	}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("database", cfg.Database.Path),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("redis_password", config.MaskSecret(cfg.Cache.RedisPassword)),
	)

	ctx := context.Background()

	db, err := persistence.Open(ctx, cfg.Database)
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	// 只在快取開啟但初始化失敗時才 Fatal
	productCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}
	if productCache != nil {
		defer productCache.Close()
	}

	store := cache.NewCachedCatalog(persistence.NewCatalogRepository(db), productCache, cfg.Cache.KeyPrefix)

	queue := importqueue.NewManager(cfg.Import, store)
	defer queue.Close()

	router := api.SetupRouter(cfg, api.Dependencies{
		Catalog: store,
		Fiches:  persistence.NewFicheRepository(db),
		Imports: queue,
		DB:      db,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
