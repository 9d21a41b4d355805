package main

import (
	"context"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richxcame/tender-risk/internal/procurement"
	"github.com/richxcame/tender-risk/internal/riskengine"
	"github.com/richxcame/tender-risk/pkg/common"
	"github.com/richxcame/tender-risk/pkg/config"
	"github.com/richxcame/tender-risk/pkg/database"
	"github.com/richxcame/tender-risk/pkg/logger"
	"github.com/richxcame/tender-risk/pkg/middleware"
)

const serviceName = "riskengine"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)
	logger.Info("connected to PostgreSQL")

	records := procurement.NewRepository(pool)
	runs := riskengine.NewRepository(pool)
	service := riskengine.NewService(records, runs, cfg.Thresholds)
	handler := riskengine.NewHandler(service)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(serviceName))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", common.HealthCheckWithDeps(serviceName, "1.0.0", map[string]func() error{
		"postgres": func() error { return pool.Ping(context.Background()) },
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	addr := ":" + cfg.Server.Port
	logger.Info("risk engine starting",
		zap.String("addr", addr),
		zap.String("default_country", cfg.Thresholds.DefaultCountry),
	)
	if err := router.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
