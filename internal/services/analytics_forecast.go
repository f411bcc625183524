package services

import (
	"math"
	"time"

	"github.com/profitlens/profitlens-backend/internal/types"
)

const (
	// forecastMinDays gates all forecasting; below it only the
	// insufficient-history signal is returned.
	forecastMinDays = 7
	// seasonalMinDays gates the weekly-seasonal model.
	seasonalMinDays = 28
	// smoothingAlpha is the single exponential smoothing parameter.
	smoothingAlpha = 0.3
	// seasonLength is the weekly seasonality cycle.
	seasonLength = 7
)

// ForecastPoint is one projected day with its fixed heuristic band. Bands
// are not fitted; error tracking is not this component's concern.
type ForecastPoint struct {
	Day            int     `json:"day"`
	Predicted      float64 `json:"predicted"`
	ConfidenceLow  float64 `json:"confidence_low"`
	ConfidenceHigh float64 `json:"confidence_high"`
}

// movingAverage is a trailing simple mean; the window shrinks at the start
// of the series instead of padding with zeros.
func movingAverage(data []float64, window int) []float64 {
	result := make([]float64, len(data))
	for i := range data {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		for _, v := range data[start : i+1] {
			sum += v
		}
		result[i] = sum / float64(i-start+1)
	}
	return result
}

// linearTrendForecast extrapolates an ordinary least-squares fit forward
// with a fixed +/-20% band.
func linearTrendForecast(data []float64, daysAhead int) []ForecastPoint {
	if len(data) < 2 {
		return nil
	}
	n := float64(len(data))
	var xMean, yMean float64
	for i, v := range data {
		xMean += float64(i)
		yMean += v
	}
	xMean /= n
	yMean /= n

	var numerator, denominator float64
	for i, v := range data {
		dx := float64(i) - xMean
		numerator += dx * (v - yMean)
		denominator += dx * dx
	}
	var slope float64
	if denominator != 0 {
		slope = numerator / denominator
	}
	intercept := yMean - slope*xMean

	forecasts := make([]ForecastPoint, 0, daysAhead)
	for i := 1; i <= daysAhead; i++ {
		predicted := slope*(n-1+float64(i)) + intercept
		forecasts = append(forecasts, ForecastPoint{
			Day:            i,
			Predicted:      math.Max(0, predicted),
			ConfidenceLow:  math.Max(0, predicted*0.8),
			ConfidenceHigh: predicted * 1.2,
		})
	}
	return forecasts
}

// exponentialSmoothingForecast projects the smoothed level flat with a
// fixed +/-15% band.
func exponentialSmoothingForecast(data []float64, daysAhead int) []ForecastPoint {
	if len(data) < 2 {
		return nil
	}
	smoothed := data[0]
	for _, v := range data[1:] {
		smoothed = smoothingAlpha*v + (1-smoothingAlpha)*smoothed
	}

	forecasts := make([]ForecastPoint, 0, daysAhead)
	for i := 1; i <= daysAhead; i++ {
		forecasts = append(forecasts, ForecastPoint{
			Day:            i,
			Predicted:      math.Max(0, smoothed),
			ConfidenceLow:  math.Max(0, smoothed*0.85),
			ConfidenceHigh: smoothed * 1.15,
		})
	}
	return forecasts
}

// seasonalForecast averages same-weekday-offset history with a fixed
// +/-25% band. Callers gate it at seasonalMinDays of history.
func seasonalForecast(data []float64, daysAhead int) []ForecastPoint {
	forecasts := make([]ForecastPoint, 0, daysAhead)
	for i := 1; i <= daysAhead; i++ {
		seasonalIndex := (len(data) + i - 1) % seasonLength
		var sum float64
		var count int
		for j := seasonalIndex; j < len(data); j += seasonLength {
			sum += data[j]
			count++
		}
		var avg float64
		if count > 0 {
			avg = sum / float64(count)
		}
		forecasts = append(forecasts, ForecastPoint{
			Day:            i,
			Predicted:      math.Max(0, avg),
			ConfidenceLow:  math.Max(0, avg*0.75),
			ConfidenceHigh: avg * 1.25,
		})
	}
	return forecasts
}

// Cohort bucket types.
const (
	CohortWeekly  = "weekly"
	CohortMonthly = "monthly"
)

// CohortPeriodMetrics is one retention period within a cohort: customers
// still active past period N and the lifetime revenue they carry.
type CohortPeriodMetrics struct {
	Period        int     `json:"period"`
	Customers     int     `json:"customers"`
	RetentionRate float64 `json:"retention_rate"`
	Revenue       float64 `json:"revenue"`
	AvgRevenue    float64 `json:"avg_revenue"`
}

// CohortRecord groups customers by first-seen period. Fully recomputable
// from customer profiles; carries no independent state.
type CohortRecord struct {
	CohortPeriod     string                `json:"cohort_period"`
	InitialCustomers int                   `json:"initial_customers"`
	Periods          []CohortPeriodMetrics `json:"periods"`
}

const cohortMaxPeriod = 12

// cohortKey buckets a first-seen time: week start for weekly cohorts,
// YYYY-MM for monthly.
func cohortKey(t time.Time, cohortType string) string {
	t = t.UTC()
	if cohortType == CohortWeekly {
		weekStart := t.AddDate(0, 0, -int(t.Weekday()))
		return weekStart.Format("2006-01-02")
	}
	return t.Format("2006-01")
}

// buildCohorts computes retention tables from lifetime customer profiles.
// Period-N retention counts customers with more than N total orders, so the
// rate is non-increasing in N by construction.
func buildCohorts(profiles []*types.CustomerProfile, cohortType string) []CohortRecord {
	grouped := make(map[string][]*types.CustomerProfile)
	keys := make([]string, 0)
	for _, p := range profiles {
		key := cohortKey(p.FirstSeenAt, cohortType)
		if _, ok := grouped[key]; !ok {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], p)
	}

	records := make([]CohortRecord, 0, len(keys))
	for _, key := range keys {
		cohort := grouped[key]
		record := CohortRecord{
			CohortPeriod:     key,
			InitialCustomers: len(cohort),
			Periods:          make([]CohortPeriodMetrics, 0, cohortMaxPeriod+1),
		}
		for period := 0; period <= cohortMaxPeriod; period++ {
			var retained int
			var revenue float64
			for _, p := range cohort {
				if p.TotalOrders > period {
					retained++
					revenue += p.TotalSpent
				}
			}
			metrics := CohortPeriodMetrics{
				Period:        period,
				Customers:     retained,
				RetentionRate: float64(retained) / float64(len(cohort)) * 100,
				Revenue:       revenue,
			}
			if retained > 0 {
				metrics.AvgRevenue = revenue / float64(retained)
			}
			record.Periods = append(record.Periods, metrics)
		}
		records = append(records, record)
	}
	return records
}
