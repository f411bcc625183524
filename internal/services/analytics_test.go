package services

import (
	"math"
	"testing"
	"time"

	"github.com/profitlens/profitlens-backend/internal/types"
)

func TestMovingAverageShrinkingWindow(t *testing.T) {
	data := []float64{10, 20, 30, 40, 50}
	got := movingAverage(data, 3)
	want := []float64{10, 15, 20, 30, 40}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("movingAverage[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMovingAverageWindowLargerThanSeries(t *testing.T) {
	got := movingAverage([]float64{6, 12}, 30)
	if math.Abs(got[0]-6) > 1e-9 || math.Abs(got[1]-9) > 1e-9 {
		t.Fatalf("movingAverage = %v, want [6 9]", got)
	}
}

func TestLinearTrendForecastFollowsSlope(t *testing.T) {
	// Perfect line y = 10x + 100.
	data := make([]float64, 30)
	for i := range data {
		data[i] = 100 + 10*float64(i)
	}
	points := linearTrendForecast(data, 5)
	if len(points) != 5 {
		t.Fatalf("got %d points, want 5", len(points))
	}
	for _, p := range points {
		want := 100 + 10*float64(29+p.Day)
		if math.Abs(p.Predicted-want) > 1e-6 {
			t.Fatalf("day %d predicted %v, want %v", p.Day, p.Predicted, want)
		}
		if p.ConfidenceLow > p.Predicted || p.ConfidenceHigh < p.Predicted {
			t.Fatalf("day %d band [%v, %v] does not bracket %v", p.Day, p.ConfidenceLow, p.ConfidenceHigh, p.Predicted)
		}
	}
}

func TestLinearTrendForecastClampsNegative(t *testing.T) {
	// Steep decline crosses zero within the horizon.
	data := []float64{100, 80, 60, 40, 20, 10, 5}
	points := linearTrendForecast(data, 20)
	for _, p := range points {
		if p.Predicted < 0 || p.ConfidenceLow < 0 {
			t.Fatalf("day %d has negative prediction %v / low %v", p.Day, p.Predicted, p.ConfidenceLow)
		}
	}
}

func TestExponentialSmoothingForecastIsFlat(t *testing.T) {
	data := []float64{50, 70, 60, 80, 65, 75, 90}
	points := exponentialSmoothingForecast(data, 10)
	if len(points) != 10 {
		t.Fatalf("got %d points, want 10", len(points))
	}
	for i := 1; i < len(points); i++ {
		if math.Abs(points[i].Predicted-points[0].Predicted) > 1e-9 {
			t.Fatalf("smoothing forecast is not flat: day %d %v vs day 1 %v", points[i].Day, points[i].Predicted, points[0].Predicted)
		}
	}
}

func TestSeasonalForecastTracksWeekday(t *testing.T) {
	// 8 weeks where one weekday slot always sells 700 and the rest 100.
	data := make([]float64, 56)
	for i := range data {
		if i%7 == 3 {
			data[i] = 700
		} else {
			data[i] = 100
		}
	}
	points := seasonalForecast(data, 14)
	var sawPeak bool
	for _, p := range points {
		slot := (len(data) + p.Day - 1) % 7
		if slot == 3 {
			sawPeak = true
			if math.Abs(p.Predicted-700) > 1e-9 {
				t.Fatalf("peak slot day %d predicted %v, want 700", p.Day, p.Predicted)
			}
		} else if math.Abs(p.Predicted-100) > 1e-9 {
			t.Fatalf("offpeak slot day %d predicted %v, want 100", p.Day, p.Predicted)
		}
	}
	if !sawPeak {
		t.Fatal("forecast horizon never hit the peak slot")
	}
}

func TestCohortKey(t *testing.T) {
	// 2025-06-11 is a Wednesday; its week starts Sunday 2025-06-08.
	ts := time.Date(2025, 6, 11, 15, 30, 0, 0, time.UTC)
	if got := cohortKey(ts, CohortWeekly); got != "2025-06-08" {
		t.Fatalf("weekly cohort key = %q, want 2025-06-08", got)
	}
	if got := cohortKey(ts, CohortMonthly); got != "2025-06" {
		t.Fatalf("monthly cohort key = %q, want 2025-06", got)
	}
}

func profileWithOrders(firstSeen time.Time, orders int, spent float64) *types.CustomerProfile {
	return &types.CustomerProfile{
		CustomerID:  "c",
		FirstSeenAt: firstSeen,
		TotalOrders: orders,
		TotalSpent:  spent,
	}
}

func TestBuildCohortsRetentionMonotone(t *testing.T) {
	june := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	profiles := []*types.CustomerProfile{
		profileWithOrders(june, 1, 50),
		profileWithOrders(june.AddDate(0, 0, 5), 3, 210),
		profileWithOrders(june.AddDate(0, 0, 12), 8, 900),
		profileWithOrders(june.AddDate(0, 0, 20), 2, 95),
	}
	cohorts := buildCohorts(profiles, CohortMonthly)
	if len(cohorts) != 1 {
		t.Fatalf("got %d cohorts, want 1", len(cohorts))
	}
	cohort := cohorts[0]
	if cohort.CohortPeriod != "2025-06" {
		t.Fatalf("cohort period = %q, want 2025-06", cohort.CohortPeriod)
	}
	if cohort.InitialCustomers != 4 {
		t.Fatalf("initial customers = %d, want 4", cohort.InitialCustomers)
	}
	if len(cohort.Periods) != cohortMaxPeriod+1 {
		t.Fatalf("got %d periods, want %d", len(cohort.Periods), cohortMaxPeriod+1)
	}
	for i := 1; i < len(cohort.Periods); i++ {
		if cohort.Periods[i].RetentionRate > cohort.Periods[i-1].RetentionRate {
			t.Fatalf("retention increased from period %d (%v%%) to %d (%v%%)",
				i-1, cohort.Periods[i-1].RetentionRate, i, cohort.Periods[i].RetentionRate)
		}
	}
	// Period 0 counts everyone with at least one order.
	if cohort.Periods[0].Customers != 4 || math.Abs(cohort.Periods[0].RetentionRate-100) > 1e-9 {
		t.Fatalf("period 0 = %+v, want all 4 customers at 100%%", cohort.Periods[0])
	}
	// Period 2 keeps only the 3- and 8-order customers and their lifetime spend.
	p2 := cohort.Periods[2]
	if p2.Customers != 2 || math.Abs(p2.Revenue-1110) > 1e-9 {
		t.Fatalf("period 2 = %+v, want 2 customers carrying 1110", p2)
	}
}

func TestBuildCohortsWeeklyBuckets(t *testing.T) {
	sunday := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	profiles := []*types.CustomerProfile{
		profileWithOrders(sunday, 1, 40),
		profileWithOrders(sunday.AddDate(0, 0, 3), 2, 120),
		profileWithOrders(sunday.AddDate(0, 0, 7), 1, 60),
	}
	cohorts := buildCohorts(profiles, CohortWeekly)
	if len(cohorts) != 2 {
		t.Fatalf("got %d cohorts, want 2", len(cohorts))
	}
	if cohorts[0].CohortPeriod != "2025-06-08" || cohorts[0].InitialCustomers != 2 {
		t.Fatalf("first cohort = %+v", cohorts[0])
	}
	if cohorts[1].CohortPeriod != "2025-06-15" || cohorts[1].InitialCustomers != 1 {
		t.Fatalf("second cohort = %+v", cohorts[1])
	}
}

func TestAggregateByPeriod(t *testing.T) {
	day := func(d int, revenue float64, orders int) DailyRevenuePoint {
		return DailyRevenuePoint{
			Date:    time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC),
			Revenue: revenue,
			Orders:  orders,
		}
	}
	// June 8 2025 is a Sunday, so 6th/7th close the prior week.
	daily := []DailyRevenuePoint{day(6, 100, 2), day(7, 50, 1), day(8, 200, 4), day(9, 25, 1)}

	weekly := aggregateByPeriod(daily, CohortWeekly)
	if len(weekly) != 2 {
		t.Fatalf("got %d weekly buckets, want 2", len(weekly))
	}
	if math.Abs(weekly[0].Revenue-150) > 1e-9 || weekly[0].Orders != 3 {
		t.Fatalf("first week = %+v, want 150 revenue over 3 orders", weekly[0])
	}
	if math.Abs(weekly[1].Revenue-225) > 1e-9 || weekly[1].Orders != 5 {
		t.Fatalf("second week = %+v, want 225 revenue over 5 orders", weekly[1])
	}

	monthly := aggregateByPeriod(daily, CohortMonthly)
	if len(monthly) != 1 || monthly[0].Period != "2025-06" || math.Abs(monthly[0].Revenue-375) > 1e-9 {
		t.Fatalf("monthly = %+v, want one 2025-06 bucket with 375", monthly)
	}
}
