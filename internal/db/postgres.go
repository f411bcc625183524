package db

import (
  "fmt"
  "strings"
  "gorm.io/driver/postgres"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  "github.com/profitlens/profitlens-backend/internal/types"
  "github.com/profitlens/profitlens-backend/internal/utils"
  "github.com/profitlens/profitlens-backend/internal/logger"
)

type PostgresService struct {
  db *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  log.Info("Loading environment variables...")
  driver := strings.ToLower(utils.GetEnv("DB_DRIVER", "postgres", log))

  var dialector gorm.Dialector
  if driver == "sqlite" {
    sqlitePath := utils.GetEnv("SQLITE_PATH", "profitlens.db", log)
    dialector = sqlite.Open(sqlitePath)
  } else {
    postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
    postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
    postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
    postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
    postgresName := utils.GetEnv("POSTGRES_NAME", "profitlens", log)
    dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)
    dialector = postgres.Open(dsn)
  }

  log.Info("Connecting to database...", "driver", driver)
  gormDB, err := gorm.Open(dialector, &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    log.Error("Failed to connect to database", "error", err)
    return nil, fmt.Errorf("Failed to connect to database: %w", err)
  }

  return &PostgresService{db: gormDB, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating tables...")
  err := s.db.AutoMigrate(
    &types.Touchpoint{},
    &types.AttributionResult{},
    &types.ProductCost{},
    &types.CostEvent{},
    &types.ProductPL{},
    &types.PLSnapshot{},
    &types.CustomerProfile{},
  )
  if err != nil {
    s.log.Error("Auto migration failed", "error", err)
    return err
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
