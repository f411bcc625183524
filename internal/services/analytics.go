package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/profitlens/profitlens-backend/internal/logger"
	apperrors "github.com/profitlens/profitlens-backend/internal/pkg/errors"
	"github.com/profitlens/profitlens-backend/internal/repos"
)

// DailyRevenuePoint is one day of the revenue trend with trailing averages.
type DailyRevenuePoint struct {
	Date          time.Time `json:"date"`
	Revenue       float64   `json:"revenue"`
	Orders        int       `json:"orders"`
	AvgOrderValue float64   `json:"avg_order_value"`
	MovingAvg7    float64   `json:"moving_avg_7"`
	MovingAvg30   float64   `json:"moving_avg_30"`
}

// PeriodRevenuePoint is a weekly or monthly aggregation bucket.
type PeriodRevenuePoint struct {
	Period        string  `json:"period"`
	Revenue       float64 `json:"revenue"`
	Orders        int     `json:"orders"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

type RevenueTrends struct {
	Daily   []DailyRevenuePoint  `json:"daily"`
	Weekly  []PeriodRevenuePoint `json:"weekly"`
	Monthly []PeriodRevenuePoint `json:"monthly"`
}

type RevenueOverview struct {
	TotalRevenue          float64 `json:"total_revenue"`
	RevenueGrowth         float64 `json:"revenue_growth"`
	TotalOrders           int     `json:"total_orders"`
	AvgOrderValue         float64 `json:"avg_order_value"`
	UniqueCustomers       int     `json:"unique_customers"`
	NewCustomers          int     `json:"new_customers"`
	ReturningCustomers    int     `json:"returning_customers"`
	AvgRevenuePerCustomer float64 `json:"avg_revenue_per_customer"`
	ActiveDays            int     `json:"active_days"`
	DailyAvgRevenue       float64 `json:"daily_avg_revenue"`
}

// RevenueForecasts bundles the three forecast models. A model absent from
// the bundle had insufficient history; below forecastMinDays only the
// signal is set.
type RevenueForecasts struct {
	DaysOfHistory        int             `json:"days_of_history"`
	InsufficientHistory  bool            `json:"insufficient_history"`
	LinearTrend          []ForecastPoint `json:"linear_trend,omitempty"`
	ExponentialSmoothing []ForecastPoint `json:"exponential_smoothing,omitempty"`
	Seasonal             []ForecastPoint `json:"seasonal,omitempty"`
}

// RevenueAnalytics is the full dashboard bundle.
type RevenueAnalytics struct {
	StartDate   time.Time                `json:"start_date"`
	EndDate     time.Time                `json:"end_date"`
	Overview    RevenueOverview          `json:"overview"`
	Trends      RevenueTrends            `json:"trends"`
	Channels    []ChannelPerformance     `json:"channels"`
	TopProducts []repos.ProductPLSummary `json:"top_products"`
	Cohorts     []CohortRecord           `json:"cohorts,omitempty"`
	Forecasts   *RevenueForecasts        `json:"forecasts,omitempty"`
}

type RevenueAnalyticsService interface {
	GetRevenueAnalytics(ctx context.Context, shop string, start, end time.Time, includeForecasts, includeCohorts bool) (*RevenueAnalytics, error)
	GetForecasts(ctx context.Context, shop string, daysAhead int) (*RevenueForecasts, error)
	GetCohorts(ctx context.Context, shop, cohortType string) ([]CohortRecord, error)
}

type revenueAnalyticsService struct {
	db                 *gorm.DB
	log                *logger.Logger
	touchpointRepo     repos.TouchpointRepo
	profileRepo        repos.CustomerProfileRepo
	productPLRepo      repos.ProductPLRepo
	attributionService AttributionService
}

func NewRevenueAnalyticsService(db *gorm.DB, log *logger.Logger, touchpointRepo repos.TouchpointRepo, profileRepo repos.CustomerProfileRepo, productPLRepo repos.ProductPLRepo, attributionService AttributionService) RevenueAnalyticsService {
	return &revenueAnalyticsService{
		db:                 db,
		log:                log.With("service", "RevenueAnalyticsService"),
		touchpointRepo:     touchpointRepo,
		profileRepo:        profileRepo,
		productPLRepo:      productPLRepo,
		attributionService: attributionService,
	}
}

func (s *revenueAnalyticsService) GetRevenueAnalytics(ctx context.Context, shop string, start, end time.Time, includeForecasts, includeCohorts bool) (*RevenueAnalytics, error) {
	overview, err := s.overview(ctx, shop, start, end)
	if err != nil {
		return nil, err
	}
	trends, err := s.trends(ctx, shop, start, end)
	if err != nil {
		return nil, err
	}

	attribution, err := s.attributionService.GetAttributionAnalytics(ctx, shop, start, end, ModelAIEnhanced)
	if err != nil {
		return nil, err
	}
	topProducts, err := s.productPLRepo.TopProducts(ctx, nil, shop, start, 20)
	if err != nil {
		return nil, err
	}

	analytics := &RevenueAnalytics{
		StartDate:   start,
		EndDate:     end,
		Overview:    overview,
		Trends:      trends,
		Channels:    attribution.PerChannel,
		TopProducts: topProducts,
	}

	if includeCohorts {
		cohorts, err := s.GetCohorts(ctx, shop, CohortMonthly)
		if err != nil {
			return nil, err
		}
		analytics.Cohorts = cohorts
	}
	if includeForecasts {
		// Too little history is a signal in the bundle, not a failure.
		forecasts, err := s.GetForecasts(ctx, shop, 30)
		if err != nil && !errors.Is(err, apperrors.ErrInsufficientHistory) {
			return nil, err
		}
		analytics.Forecasts = forecasts
	}
	return analytics, nil
}

func (s *revenueAnalyticsService) overview(ctx context.Context, shop string, start, end time.Time) (RevenueOverview, error) {
	rows, err := s.touchpointRepo.GetDailyRevenue(ctx, nil, shop, start, end)
	if err != nil {
		return RevenueOverview{}, err
	}

	var overview RevenueOverview
	for _, row := range rows {
		overview.TotalRevenue += row.Revenue
		overview.TotalOrders += row.Orders
	}
	overview.ActiveDays = len(rows)
	if overview.TotalOrders > 0 {
		overview.AvgOrderValue = overview.TotalRevenue / float64(overview.TotalOrders)
	}
	if overview.ActiveDays > 0 {
		overview.DailyAvgRevenue = overview.TotalRevenue / float64(overview.ActiveDays)
	}

	// Previous period of equal length for growth comparison.
	periodLength := end.Sub(start)
	prevRows, err := s.touchpointRepo.GetDailyRevenue(ctx, nil, shop, start.Add(-periodLength), start)
	if err != nil {
		return RevenueOverview{}, err
	}
	var prevRevenue float64
	for _, row := range prevRows {
		prevRevenue += row.Revenue
	}
	if prevRevenue > 0 {
		overview.RevenueGrowth = (overview.TotalRevenue - prevRevenue) / prevRevenue * 100
	}

	profiles, err := s.profileRepo.GetSeenInRange(ctx, nil, shop, start, end)
	if err != nil {
		return RevenueOverview{}, err
	}
	overview.UniqueCustomers = len(profiles)
	for _, p := range profiles {
		if p.TotalOrders == 1 {
			overview.NewCustomers++
		} else if p.TotalOrders > 1 {
			overview.ReturningCustomers++
		}
	}
	if overview.UniqueCustomers > 0 {
		overview.AvgRevenuePerCustomer = overview.TotalRevenue / float64(overview.UniqueCustomers)
	}
	return overview, nil
}

func (s *revenueAnalyticsService) trends(ctx context.Context, shop string, start, end time.Time) (RevenueTrends, error) {
	rows, err := s.touchpointRepo.GetDailyRevenue(ctx, nil, shop, start, end)
	if err != nil {
		return RevenueTrends{}, err
	}

	revenues := make([]float64, len(rows))
	for i, row := range rows {
		revenues[i] = row.Revenue
	}
	ma7 := movingAverage(revenues, 7)
	ma30 := movingAverage(revenues, 30)

	daily := make([]DailyRevenuePoint, 0, len(rows))
	for i, row := range rows {
		point := DailyRevenuePoint{
			Date:        row.Date,
			Revenue:     row.Revenue,
			Orders:      row.Orders,
			MovingAvg7:  ma7[i],
			MovingAvg30: ma30[i],
		}
		if row.Orders > 0 {
			point.AvgOrderValue = row.Revenue / float64(row.Orders)
		}
		daily = append(daily, point)
	}

	return RevenueTrends{
		Daily:   daily,
		Weekly:  aggregateByPeriod(daily, CohortWeekly),
		Monthly: aggregateByPeriod(daily, CohortMonthly),
	}, nil
}

// aggregateByPeriod folds daily points into week-start or month buckets.
func aggregateByPeriod(daily []DailyRevenuePoint, periodType string) []PeriodRevenuePoint {
	buckets := make(map[string]*PeriodRevenuePoint)
	order := make([]string, 0)
	for _, day := range daily {
		key := cohortKey(day.Date, periodType)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &PeriodRevenuePoint{Period: key}
			buckets[key] = bucket
			order = append(order, key)
		}
		bucket.Revenue += day.Revenue
		bucket.Orders += day.Orders
	}

	points := make([]PeriodRevenuePoint, 0, len(order))
	for _, key := range order {
		bucket := buckets[key]
		if bucket.Orders > 0 {
			bucket.AvgOrderValue = bucket.Revenue / float64(bucket.Orders)
		}
		points = append(points, *bucket)
	}
	return points
}

// GetForecasts projects daily revenue forward from the trailing 90 days.
// Fewer than 7 days of history yields only the insufficient-history signal;
// the seasonal model additionally requires 28 days.
func (s *revenueAnalyticsService) GetForecasts(ctx context.Context, shop string, daysAhead int) (*RevenueForecasts, error) {
	if daysAhead <= 0 {
		daysAhead = 30
	}
	now := time.Now().UTC()
	rows, err := s.touchpointRepo.GetDailyRevenue(ctx, nil, shop, now.AddDate(0, 0, -90), now)
	if err != nil {
		return nil, err
	}

	revenues := make([]float64, len(rows))
	for i, row := range rows {
		revenues[i] = row.Revenue
	}

	forecasts := &RevenueForecasts{DaysOfHistory: len(revenues)}
	if len(revenues) < forecastMinDays {
		forecasts.InsufficientHistory = true
		return forecasts, fmt.Errorf("%d days of history, need %d: %w", len(revenues), forecastMinDays, apperrors.ErrInsufficientHistory)
	}

	forecasts.LinearTrend = linearTrendForecast(revenues, daysAhead)
	forecasts.ExponentialSmoothing = exponentialSmoothingForecast(revenues, daysAhead)
	if len(revenues) >= seasonalMinDays {
		forecasts.Seasonal = seasonalForecast(revenues, daysAhead)
	}
	return forecasts, nil
}

func (s *revenueAnalyticsService) GetCohorts(ctx context.Context, shop, cohortType string) ([]CohortRecord, error) {
	if cohortType == "" {
		cohortType = CohortMonthly
	}
	if cohortType != CohortWeekly && cohortType != CohortMonthly {
		return nil, fmt.Errorf("cohort type %q: %w", cohortType, apperrors.ErrInvalidArgument)
	}
	profiles, err := s.profileRepo.GetByShop(ctx, nil, shop)
	if err != nil {
		return nil, err
	}
	return buildCohorts(profiles, cohortType), nil
}
