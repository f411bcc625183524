package server

import (
  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"
  "github.com/profitlens/profitlens-backend/internal/handlers"
  "github.com/profitlens/profitlens-backend/internal/utils"
)

type RouterConfig struct {
  TouchpointHandler *handlers.TouchpointHandler
  OrderHandler      *handlers.OrderHandler
  CostHandler       *handlers.CostHandler
  AnalyticsHandler  *handlers.AnalyticsHandler
  AllowedOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  origins := cfg.AllowedOrigins
  if len(origins) == 0 {
    origins = utils.GetEnvAsList("CORS_ALLOWED_ORIGINS", []string{
      "http://localhost:3000",
      "http://localhost:5173",
    }, nil)
  }
  router.Use(cors.New(cors.Config{
    AllowOrigins:     origins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  router.GET("/healthcheck", handlers.HealthCheck)

  api := router.Group("/api")
  {
    // Ingestion
    api.POST("/track", cfg.TouchpointHandler.Track)
    api.POST("/orders", cfg.OrderHandler.ProcessOrder)
    api.PUT("/products/:productId/cost", cfg.CostHandler.SetProductCost)
    api.POST("/costs", cfg.CostHandler.RecordCost)
    // Analytics
    api.GET("/analytics/attribution", cfg.AnalyticsHandler.GetAttribution)
    api.POST("/analytics/attribution/rebuild", cfg.AnalyticsHandler.RebuildAttribution)
    api.GET("/analytics/pl", cfg.AnalyticsHandler.GetRealtimePL)
    api.GET("/analytics/revenue", cfg.AnalyticsHandler.GetRevenue)
  }

  return router
}
