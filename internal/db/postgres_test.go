package db

import (
  "path/filepath"
  "testing"
  "time"

  "github.com/google/uuid"

  "github.com/profitlens/profitlens-backend/internal/logger"
  "github.com/profitlens/profitlens-backend/internal/types"
)

// The sqlite driver has no uuid_generate_v4(); ids come from application-side
// hooks so the same schema migrates on both dialects.
func TestSqliteDriverMigratesAndWrites(t *testing.T) {
  t.Setenv("DB_DRIVER", "sqlite")
  t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "profitlens_test.db"))

  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger: %v", err)
  }

  svc, err := NewPostgresService(log)
  if err != nil {
    t.Fatalf("connect: %v", err)
  }
  if err := svc.AutoMigrateAll(); err != nil {
    t.Fatalf("auto migrate on sqlite: %v", err)
  }

  tp := &types.Touchpoint{
    ShopDomain: "shop.example",
    SessionID:  "sess-1",
    Channel:    "email",
    Timestamp:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
  }
  if err := svc.DB().Create(tp).Error; err != nil {
    t.Fatalf("insert touchpoint: %v", err)
  }
  if tp.ID == uuid.Nil {
    t.Fatal("touchpoint id was not assigned on create")
  }
  if tp.CreatedAt.IsZero() {
    t.Fatal("created_at was not assigned on create")
  }

  event := &types.CostEvent{
    ShopDomain:   "shop.example",
    CostType:     "facebook_ads",
    CostCategory: types.CostCategoryAdvertising,
    Amount:       120,
    Timestamp:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
  }
  if err := svc.DB().Create(event).Error; err != nil {
    t.Fatalf("insert cost event: %v", err)
  }
  if event.Currency != "USD" {
    t.Fatalf("cost event currency = %q, want default USD", event.Currency)
  }
}
