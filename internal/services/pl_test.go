package services

import (
	"math"
	"testing"

	"github.com/profitlens/profitlens-backend/internal/types"
)

func TestCalculatePaymentFee(t *testing.T) {
	cases := []struct {
		name    string
		revenue float64
		gateway string
		want    float64
	}{
		{"shopify_payments", 100, "shopify_payments", 3.20},
		{"stripe", 100, "stripe", 3.20},
		{"paypal", 100, "paypal", 3.49},
		{"square", 100, "square", 2.75},
		{"unknown_uses_default", 100, "klarna", 3.20},
		{"empty_uses_default", 50, "", 1.75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculatePaymentFee(tc.revenue, tc.gateway)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("CalculatePaymentFee(%v, %q)=%v, want %v", tc.revenue, tc.gateway, got, tc.want)
			}
		})
	}
}

func TestComputePLMetrics(t *testing.T) {
	costs := map[string]float64{
		types.CostCategoryCOGS:              400,
		types.CostCategoryAdvertising:       120,
		types.CostCategoryShipping:          60,
		types.CostCategoryPaymentProcessing: 32,
		types.CostCategoryFixedCosts:        200,
		types.CostCategoryOther:             18,
	}
	m := ComputePLMetrics(1000, 10, costs)

	if math.Abs(m.GrossProfit-600) > 1e-9 {
		t.Fatalf("gross profit = %v, want 600", m.GrossProfit)
	}
	if math.Abs(m.ContributionMargin-388) > 1e-9 {
		t.Fatalf("contribution margin = %v, want 388", m.ContributionMargin)
	}
	if math.Abs(m.NetProfit-170) > 1e-9 {
		t.Fatalf("net profit = %v, want 170", m.NetProfit)
	}
	if math.Abs(m.GrossMarginPercent-60) > 1e-9 {
		t.Fatalf("gross margin %% = %v, want 60", m.GrossMarginPercent)
	}
	if math.Abs(m.AvgOrderValue-100) > 1e-9 {
		t.Fatalf("AOV = %v, want 100", m.AvgOrderValue)
	}
	if math.Abs(m.CustomerAcquisitionCost-12) > 1e-9 {
		t.Fatalf("CAC = %v, want 12", m.CustomerAcquisitionCost)
	}
	// per-order variable = 61.2, AOV - variable = 38.8, fixed 200 -> ceil(5.15...) = 6
	if m.BreakEvenOrders != 6 {
		t.Fatalf("break-even orders = %d, want 6", m.BreakEvenOrders)
	}
}

func TestComputePLMetricsZeroRevenue(t *testing.T) {
	m := ComputePLMetrics(0, 0, map[string]float64{types.CostCategoryFixedCosts: 500})
	if m.GrossMarginPercent != 0 || m.NetMarginPercent != 0 || m.AvgOrderValue != 0 {
		t.Fatalf("zero-revenue metrics should not divide: %+v", m)
	}
	if math.Abs(m.NetProfit-(-500)) > 1e-9 {
		t.Fatalf("net profit = %v, want -500", m.NetProfit)
	}
}

// The snapshot path reduces the same inputs whether it runs per order or as a
// batch rebuild, so summing category maps first and reducing once must equal
// reducing the running totals.
func TestComputePLMetricsIncrementalMatchesBatch(t *testing.T) {
	orders := []struct {
		revenue float64
		costs   map[string]float64
	}{
		{120, map[string]float64{types.CostCategoryCOGS: 40, types.CostCategoryPaymentProcessing: 3.78}},
		{80, map[string]float64{types.CostCategoryCOGS: 25, types.CostCategoryShipping: 8, types.CostCategoryPaymentProcessing: 2.62}},
		{310.50, map[string]float64{types.CostCategoryCOGS: 110, types.CostCategoryAdvertising: 45.25, types.CostCategoryPaymentProcessing: 9.30}},
	}

	batchCosts := make(map[string]float64)
	var batchRevenue float64
	for _, o := range orders {
		batchRevenue += o.revenue
		for cat, amt := range o.costs {
			batchCosts[cat] += amt
		}
	}
	batch := ComputePLMetrics(batchRevenue, len(orders), batchCosts)

	// Incremental accumulation of the same category totals in a different order.
	incrementalCosts := make(map[string]float64)
	var incrementalRevenue float64
	for i := len(orders) - 1; i >= 0; i-- {
		incrementalRevenue += orders[i].revenue
		for cat, amt := range orders[i].costs {
			incrementalCosts[cat] += amt
		}
	}
	incremental := ComputePLMetrics(incrementalRevenue, len(orders), incrementalCosts)

	if math.Abs(batch.NetProfit-incremental.NetProfit) > 1e-9 ||
		math.Abs(batch.ContributionMargin-incremental.ContributionMargin) > 1e-9 ||
		math.Abs(batch.GrossMarginPercent-incremental.GrossMarginPercent) > 1e-9 {
		t.Fatalf("incremental and batch reductions diverged:\nbatch:       %+v\nincremental: %+v", batch, incremental)
	}
}

func TestGeneratePLAlerts(t *testing.T) {
	cases := []struct {
		name      string
		metrics   PLMetrics
		wantTypes []string
	}{
		{
			name:      "healthy",
			metrics:   PLMetrics{Revenue: 1000, GrossMarginPercent: 55, NetMarginPercent: 20, AvgOrderValue: 100, CustomerAcquisitionCost: 10},
			wantTypes: []string{},
		},
		{
			name:      "thin_gross_margin",
			metrics:   PLMetrics{Revenue: 1000, GrossMarginPercent: 15, NetMarginPercent: 8, AvgOrderValue: 100, CustomerAcquisitionCost: 10},
			wantTypes: []string{"warning"},
		},
		{
			name:      "negative_net",
			metrics:   PLMetrics{Revenue: 1000, GrossMarginPercent: 40, NetMarginPercent: -3, AvgOrderValue: 100, CustomerAcquisitionCost: 10},
			wantTypes: []string{"danger"},
		},
		{
			name:      "expensive_acquisition",
			metrics:   PLMetrics{Revenue: 1000, GrossMarginPercent: 40, NetMarginPercent: 12, AvgOrderValue: 100, CustomerAcquisitionCost: 45},
			wantTypes: []string{"warning"},
		},
		{
			name:      "no_revenue_no_alerts",
			metrics:   PLMetrics{Revenue: 0, GrossMarginPercent: 0, NetMarginPercent: 0},
			wantTypes: []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alerts := generatePLAlerts(tc.metrics)
			if len(alerts) != len(tc.wantTypes) {
				t.Fatalf("got %d alerts %+v, want %d", len(alerts), alerts, len(tc.wantTypes))
			}
			for i, want := range tc.wantTypes {
				if alerts[i].Type != want {
					t.Fatalf("alert[%d].Type = %q, want %q", i, alerts[i].Type, want)
				}
			}
		})
	}
}
