package repos

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/profitlens/profitlens-backend/internal/logger"
	"github.com/profitlens/profitlens-backend/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repos_test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.Touchpoint{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testTouchpointRepo(t *testing.T) TouchpointRepo {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewTouchpointRepo(openTestDB(t), log)
}

func seedTouchpoint(t *testing.T, repo TouchpointRepo, customerID *string, sessionID, channel string, ts time.Time, conversionValue float64, orderID string) {
	t.Helper()
	_, err := repo.Create(context.Background(), nil, []*types.Touchpoint{{
		ShopDomain:      "shop.example",
		CustomerID:      customerID,
		SessionID:       sessionID,
		Timestamp:       ts,
		Channel:         channel,
		ConversionValue: conversionValue,
		OrderID:         orderID,
	}})
	if err != nil {
		t.Fatalf("seed touchpoint: %v", err)
	}
}

func journeyConversionValue(tps []*types.Touchpoint) float64 {
	var sum float64
	for _, tp := range tps {
		sum += tp.ConversionValue
	}
	return sum
}

// A returning customer's second order must not inherit the first order's
// conversion touchpoint or anything before it; each journey carries exactly
// its own order's revenue.
func TestGetJourneyScopesToSingleConversion(t *testing.T) {
	repo := testTouchpointRepo(t)
	customer := "cust-1"
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	seedTouchpoint(t, repo, &customer, "sess-1", "email", base, 0, "")
	seedTouchpoint(t, repo, &customer, "sess-1", "direct", base.Add(1*time.Hour), 50, "ord-1")
	seedTouchpoint(t, repo, &customer, "sess-2", "paid_search", base.Add(48*time.Hour), 0, "")
	seedTouchpoint(t, repo, &customer, "sess-2", "direct", base.Add(49*time.Hour), 100, "ord-2")

	first, err := repo.GetJourney(context.Background(), nil, "shop.example", &customer, "sess-1", "ord-1", base.Add(1*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 || first[0].Channel != "email" || first[1].OrderID != "ord-1" {
		t.Fatalf("first journey = %d touchpoints %+v, want [email, ord-1 conversion]", len(first), first)
	}
	if got := journeyConversionValue(first); math.Abs(got-50) > 1e-9 {
		t.Fatalf("first journey conversion value = %v, want 50", got)
	}

	second, err := repo.GetJourney(context.Background(), nil, "shop.example", &customer, "sess-2", "ord-2", base.Add(49*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 2 || second[0].Channel != "paid_search" || second[1].OrderID != "ord-2" {
		t.Fatalf("second journey = %d touchpoints %+v, want [paid_search, ord-2 conversion]", len(second), second)
	}
	if got := journeyConversionValue(second); math.Abs(got-100) > 1e-9 {
		t.Fatalf("second journey conversion value = %v, want 100 (terminal order revenue)", got)
	}
}

func TestGetJourneySessionScopedWhenAnonymous(t *testing.T) {
	repo := testTouchpointRepo(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	seedTouchpoint(t, repo, nil, "sess-a", "social_paid", base, 0, "")
	seedTouchpoint(t, repo, nil, "sess-b", "email", base.Add(10*time.Minute), 0, "")
	seedTouchpoint(t, repo, nil, "sess-a", "direct", base.Add(1*time.Hour), 75, "ord-a")

	journey, err := repo.GetJourney(context.Background(), nil, "shop.example", nil, "sess-a", "ord-a", base.Add(1*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(journey) != 2 || journey[0].Channel != "social_paid" {
		t.Fatalf("journey = %d touchpoints %+v, want sess-a rows only", len(journey), journey)
	}
	if got := journeyConversionValue(journey); math.Abs(got-75) > 1e-9 {
		t.Fatalf("journey conversion value = %v, want 75", got)
	}
}
