package api

import (
	"context"
	"net/http"
	"time"

	"recipe-costing/internal/api/handlers/fiches"
	"recipe-costing/internal/api/handlers/health"
	"recipe-costing/internal/api/handlers/imports"
	"recipe-costing/internal/api/handlers/supplier"
	"recipe-costing/internal/api/middleware"
	"recipe-costing/internal/core/catalog"
	"recipe-costing/internal/core/fiche"
	"recipe-costing/internal/core/reconcile"
	"recipe-costing/internal/infrastructure/config"
	"recipe-costing/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// 未設定寫入超時時的請求超時
const defaultTimeout = 120 * time.Second

// Dependencies 路由所需的服務
type Dependencies struct {
	Catalog catalog.Catalog
	Fiches  fiche.Store
	Imports imports.Runner
	DB      health.Pinger
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	timeout := cfg.Server.WriteTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(requestid.New())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Filename"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Import.MaxUploadBytes))

	// 全局中間件：設置超時和配置
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrGatewayTimeout.Response(false))
		}
	})

	// 健康檢查路由
	var stats health.StatsReporter
	if s, ok := deps.Catalog.(health.StatsReporter); ok {
		stats = s
	}
	health.NewHandler(deps.DB, deps.Imports, stats).RegisterRoutes(router)

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// API 路由組
	v1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	{
		supplier.NewHandler(deps.Catalog).RegisterRoutes(v1)
		fiches.NewHandler(deps.Fiches, deps.Catalog).RegisterRoutes(v1)

		if deps.Imports != nil {
			policy, err := reconcile.ParsePolicy(cfg.Import.DefaultPolicy)
			if err != nil {
				common.LogWarn("無效的預設匯入策略，改用 merge",
					zap.String("policy", cfg.Import.DefaultPolicy), zap.Error(err))
				policy = reconcile.PolicyMerge
			}
			dedup := middleware.NewDeduplicator(cfg.DedupWindow)
			imports.NewHandler(deps.Imports, policy).RegisterRoutes(v1, dedup.Middleware())
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", timeout),
		zap.Int64("max_body_size", cfg.Import.MaxUploadBytes),
	)

	return router
}
