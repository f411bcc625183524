package main

import (
  "context"
  "fmt"
  "os"
  "time"
  "github.com/profitlens/profitlens-backend/internal/logger"
  "github.com/profitlens/profitlens-backend/internal/utils"
  "github.com/profitlens/profitlens-backend/internal/db"
  "github.com/profitlens/profitlens-backend/internal/repos"
  "github.com/profitlens/profitlens-backend/internal/services"
  "github.com/profitlens/profitlens-backend/internal/handlers"
  "github.com/profitlens/profitlens-backend/internal/server"
  redisclient "github.com/profitlens/profitlens-backend/internal/clients/redis"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  paidChannels := utils.GetEnvAsList("PAID_CHANNELS", services.DefaultPaidChannels, log)
  retentionDays := utils.GetEnvAsInt("TOUCHPOINT_RETENTION_DAYS", 0, log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Error("Postgres auto migration failed", "error", err)
    os.Exit(1)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  touchpointRepo := repos.NewTouchpointRepo(thePG, log)
  attributionRepo := repos.NewAttributionResultRepo(thePG, log)
  productCostRepo := repos.NewProductCostRepo(thePG, log)
  costEventRepo := repos.NewCostEventRepo(thePG, log)
  productPLRepo := repos.NewProductPLRepo(thePG, log)
  snapshotRepo := repos.NewPLSnapshotRepo(thePG, log)
  profileRepo := repos.NewCustomerProfileRepo(thePG, log)

  // Retention (0 disables; touchpoints are primary truth, so the cutoff has
  // to stay behind every window anything still rebuilds from)
  if retentionDays > 0 {
    go func() {
      ticker := time.NewTicker(24 * time.Hour)
      defer ticker.Stop()
      for range ticker.C {
        cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
        deleted, err := touchpointRepo.DeleteOlderThan(context.Background(), nil, cutoff)
        if err != nil {
          log.Warn("Touchpoint retention sweep failed", "error", err)
          continue
        }
        log.Info("Touchpoint retention sweep", "deleted", deleted, "cutoff", cutoff)
      }
    }()
  }

  // Redis PL bus (optional; the pipeline degrades to no realtime fanout)
  var plBus redisclient.PLBus
  plBus, err = redisclient.NewPLBus(log)
  if err != nil {
    log.Warn("Redis PL bus unavailable, realtime fanout disabled", "error", err)
    plBus = nil
  }

  // Services
  log.Info("Setting up Services from main...")
  journeyService := services.NewJourneyService(thePG, log, touchpointRepo)
  attributionService := services.NewAttributionService(thePG, log, touchpointRepo, attributionRepo, journeyService)
  plService := services.NewPLService(thePG, log, touchpointRepo, attributionRepo, productCostRepo, costEventRepo, productPLRepo, snapshotRepo, plBus, paidChannels)
  orderService := services.NewOrderService(thePG, log, attributionService, plService, profileRepo)
  revenueService := services.NewRevenueAnalyticsService(thePG, log, touchpointRepo, profileRepo, productPLRepo, attributionService)

  // Handlers
  log.Info("Setting up handlers from main...")
  touchpointHandler := handlers.NewTouchpointHandler(log, attributionService)
  orderHandler := handlers.NewOrderHandler(log, orderService)
  costHandler := handlers.NewCostHandler(log, plService)
  analyticsHandler := handlers.NewAnalyticsHandler(log, attributionService, plService, revenueService)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    TouchpointHandler: touchpointHandler,
    OrderHandler:      orderHandler,
    CostHandler:       costHandler,
    AnalyticsHandler:  analyticsHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
