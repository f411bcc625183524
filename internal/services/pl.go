package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	redisclient "github.com/profitlens/profitlens-backend/internal/clients/redis"
	"github.com/profitlens/profitlens-backend/internal/logger"
	apperrors "github.com/profitlens/profitlens-backend/internal/pkg/errors"
	"github.com/profitlens/profitlens-backend/internal/repos"
	"github.com/profitlens/profitlens-backend/internal/types"
)

// gatewayFee is a payment gateway's fee structure: rate on revenue plus a
// fixed per-transaction component.
type gatewayFee struct {
	Rate  float64
	Fixed float64
}

var gatewayFees = map[string]gatewayFee{
	"shopify_payments": {Rate: 0.029, Fixed: 0.30},
	"stripe":           {Rate: 0.029, Fixed: 0.30},
	"paypal":           {Rate: 0.0319, Fixed: 0.30},
	"square":           {Rate: 0.0265, Fixed: 0.10},
}

var defaultGatewayFee = gatewayFee{Rate: 0.029, Fixed: 0.30}

// DefaultPaidChannels are matched (substring) against attributed channels to
// derive per-order ad spend.
var DefaultPaidChannels = []string{"paid_search", "social_paid", "display", "shopping"}

// CalculatePaymentFee returns the processing fee for an order on the given
// gateway. Unknown gateways use the default 2.9% + $0.30.
func CalculatePaymentFee(revenue float64, gateway string) float64 {
	fee, ok := gatewayFees[gateway]
	if !ok {
		fee = defaultGatewayFee
	}
	return revenue*fee.Rate + fee.Fixed
}

// PLDelta is the profit impact of a single order.
type PLDelta struct {
	OrderID            string    `json:"order_id"`
	ShopDomain         string    `json:"shop_domain"`
	Timestamp          time.Time `json:"timestamp"`
	Revenue            float64   `json:"revenue"`
	COGS               float64   `json:"cogs"`
	GrossProfit        float64   `json:"gross_profit"`
	GrossMarginPercent float64   `json:"gross_margin_percent"`
	PaymentFee         float64   `json:"payment_fee"`
	ShippingCost       float64   `json:"shipping_cost"`
	AttributedAdSpend  float64   `json:"attributed_ad_spend"`
	ContributionProfit float64   `json:"contribution_profit"`
	CostMissing        bool      `json:"cost_missing"`
}

// PLMetrics is the full metric set for a period, shared by snapshots and the
// realtime view.
type PLMetrics struct {
	Revenue                   float64 `json:"revenue"`
	COGS                      float64 `json:"cogs"`
	GrossProfit               float64 `json:"gross_profit"`
	GrossMarginPercent        float64 `json:"gross_margin_percent"`
	AdSpend                   float64 `json:"ad_spend"`
	ShippingCost              float64 `json:"shipping_cost"`
	PaymentFees               float64 `json:"payment_fees"`
	FixedCosts                float64 `json:"fixed_costs"`
	OtherCosts                float64 `json:"other_costs"`
	ContributionMargin        float64 `json:"contribution_margin"`
	ContributionMarginPercent float64 `json:"contribution_margin_percent"`
	NetProfit                 float64 `json:"net_profit"`
	NetMarginPercent          float64 `json:"net_margin_percent"`
	OrderCount                int     `json:"order_count"`
	AvgOrderValue             float64 `json:"avg_order_value"`
	CustomerAcquisitionCost   float64 `json:"customer_acquisition_cost"`
	BreakEvenOrders           int     `json:"break_even_orders"`
}

// PLAlert flags a profitability concern for the dashboard.
type PLAlert struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// RealtimePL is the dashboard bundle for a trailing timeframe.
type RealtimePL struct {
	Timeframe   string                   `json:"timeframe"`
	PeriodStart time.Time                `json:"period_start"`
	PeriodEnd   time.Time                `json:"period_end"`
	Current     PLMetrics                `json:"current"`
	TopProducts []repos.ProductPLSummary `json:"top_products"`
	Trends      []*types.PLSnapshot      `json:"trends"`
	Alerts      []PLAlert                `json:"alerts"`
}

type PLService interface {
	ProcessOrder(ctx context.Context, order *types.Order) (*PLDelta, error)
	Snapshot(ctx context.Context, shop string, periodStart, periodEnd time.Time) (*types.PLSnapshot, error)
	SetProductCost(ctx context.Context, cost *types.ProductCost) error
	RecordCost(ctx context.Context, event *types.CostEvent) error
	GetRealtimePL(ctx context.Context, shop, timeframe string) (*RealtimePL, error)
}

type plService struct {
	db              *gorm.DB
	log             *logger.Logger
	touchpointRepo  repos.TouchpointRepo
	attributionRepo repos.AttributionResultRepo
	productCostRepo repos.ProductCostRepo
	costEventRepo   repos.CostEventRepo
	productPLRepo   repos.ProductPLRepo
	snapshotRepo    repos.PLSnapshotRepo
	plBus           redisclient.PLBus
	paidChannels    []string
}

func NewPLService(
	db *gorm.DB,
	log *logger.Logger,
	touchpointRepo repos.TouchpointRepo,
	attributionRepo repos.AttributionResultRepo,
	productCostRepo repos.ProductCostRepo,
	costEventRepo repos.CostEventRepo,
	productPLRepo repos.ProductPLRepo,
	snapshotRepo repos.PLSnapshotRepo,
	plBus redisclient.PLBus,
	paidChannels []string,
) PLService {
	if len(paidChannels) == 0 {
		paidChannels = DefaultPaidChannels
	}
	return &plService{
		db:              db,
		log:             log.With("service", "PLService"),
		touchpointRepo:  touchpointRepo,
		attributionRepo: attributionRepo,
		productCostRepo: productCostRepo,
		costEventRepo:   costEventRepo,
		productPLRepo:   productPLRepo,
		snapshotRepo:    snapshotRepo,
		plBus:           plBus,
		paidChannels:    paidChannels,
	}
}

// ProcessOrder computes the order's profit delta, records the cost events
// that snapshots reduce over, accumulates product-day P&L and publishes the
// delta for realtime consumers.
func (s *plService) ProcessOrder(ctx context.Context, order *types.Order) (*PLDelta, error) {
	if order == nil || order.OrderID == "" || order.ShopDomain == "" {
		return nil, fmt.Errorf("order_id and shop_domain are required: %w", apperrors.ErrInvalidArgument)
	}
	if order.Timestamp.IsZero() {
		order.Timestamp = time.Now().UTC()
	}
	shop := order.ShopDomain

	// Per-line-item COGS with the fallback rule. A missing cost is a
	// data-quality gap, never an error.
	var totalCOGS float64
	costMissing := false
	type lineItemPL struct {
		productID string
		quantity  int
		revenue   float64
		cogs      float64
	}
	linePLs := make([]lineItemPL, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		cost, err := s.productCostRepo.Resolve(ctx, nil, shop, item.ProductID, item.VariantID)
		var unitCost float64
		switch {
		case err == nil:
			unitCost = cost.UnitCost()
		case errors.Is(err, apperrors.ErrDataMissing):
			costMissing = true
			s.log.Warn("Product cost not configured, using zero", "shop", shop, "product_id", item.ProductID, "variant_id", item.VariantID)
		default:
			return nil, fmt.Errorf("resolve product cost: %w", err)
		}
		itemCOGS := unitCost * float64(item.Quantity)
		totalCOGS += itemCOGS
		linePLs = append(linePLs, lineItemPL{
			productID: item.ProductID,
			quantity:  item.Quantity,
			revenue:   item.Price * float64(item.Quantity),
			cogs:      itemCOGS,
		})
	}

	paymentFee := CalculatePaymentFee(order.TotalRevenue, order.PaymentGateway)
	attributedAdSpend, err := s.attributedAdSpend(ctx, shop, order.OrderID)
	if err != nil {
		return nil, err
	}

	events := []*types.CostEvent{
		{
			ShopDomain:   shop,
			CostType:     "order_cogs",
			CostCategory: types.CostCategoryCOGS,
			Amount:       totalCOGS,
			OrderID:      order.OrderID,
			Description:  fmt.Sprintf("COGS for order %s", order.OrderID),
			Timestamp:    order.Timestamp,
		},
		{
			ShopDomain:   shop,
			CostType:     "payment_processing",
			CostCategory: types.CostCategoryPaymentProcessing,
			Amount:       paymentFee,
			OrderID:      order.OrderID,
			Description:  fmt.Sprintf("Payment processing fee for order %s", order.OrderID),
			Timestamp:    order.Timestamp,
		},
	}
	if order.ShippingCost > 0 {
		events = append(events, &types.CostEvent{
			ShopDomain:   shop,
			CostType:     "shipping",
			CostCategory: types.CostCategoryShipping,
			Amount:       order.ShippingCost,
			OrderID:      order.OrderID,
			Description:  fmt.Sprintf("Shipping cost for order %s", order.OrderID),
			Timestamp:    order.Timestamp,
		})
	}
	if _, err := s.costEventRepo.Create(ctx, nil, events); err != nil {
		return nil, fmt.Errorf("record cost events: %w", err)
	}

	// Product-day P&L with revenue-proportional ad spend allocation.
	var lineRevenueTotal float64
	for _, lp := range linePLs {
		lineRevenueTotal += lp.revenue
	}
	orderDate := order.Timestamp.UTC().Truncate(24 * time.Hour)
	for _, lp := range linePLs {
		adShare := attributedAdSpend
		if len(linePLs) > 1 && lineRevenueTotal > 0 {
			adShare = attributedAdSpend * lp.revenue / lineRevenueTotal
		}
		grossProfit := lp.revenue - lp.cogs
		contributionProfit := grossProfit - adShare
		row := &types.ProductPL{
			ShopDomain:         shop,
			ProductID:          lp.productID,
			Date:               orderDate,
			UnitsSold:          lp.quantity,
			TotalRevenue:       lp.revenue,
			TotalCOGS:          lp.cogs,
			AllocatedAdSpend:   adShare,
			GrossProfit:        grossProfit,
			ContributionProfit: contributionProfit,
			UpdatedAt:          time.Now().UTC(),
		}
		if lp.revenue > 0 {
			row.GrossMarginPercent = grossProfit / lp.revenue * 100
			row.ContributionMarginPercent = contributionProfit / lp.revenue * 100
		}
		if err := s.productPLRepo.Accumulate(ctx, nil, row); err != nil {
			return nil, fmt.Errorf("accumulate product P&L: %w", err)
		}
	}

	grossProfit := order.TotalRevenue - totalCOGS
	delta := &PLDelta{
		OrderID:            order.OrderID,
		ShopDomain:         shop,
		Timestamp:          order.Timestamp,
		Revenue:            order.TotalRevenue,
		COGS:               totalCOGS,
		GrossProfit:        grossProfit,
		PaymentFee:         paymentFee,
		ShippingCost:       order.ShippingCost,
		AttributedAdSpend:  attributedAdSpend,
		ContributionProfit: grossProfit - paymentFee - order.ShippingCost - attributedAdSpend,
		CostMissing:        costMissing,
	}
	if order.TotalRevenue > 0 {
		delta.GrossMarginPercent = grossProfit / order.TotalRevenue * 100
	}

	s.publishDelta(ctx, delta)

	// Refresh today's snapshot. The snapshot is a pure reduction, so the
	// incremental path and a later batch rebuild land on the same row.
	dayStart := orderDate
	if _, err := s.Snapshot(ctx, shop, dayStart, dayStart.Add(24*time.Hour)); err != nil {
		s.log.Warn("Snapshot refresh failed", "shop", shop, "error", err)
	}

	return delta, nil
}

// attributedAdSpend sums AI-enhanced credit on paid channels for the order.
// No attribution result yet means zero spend, not an error.
func (s *plService) attributedAdSpend(ctx context.Context, shop, orderID string) (float64, error) {
	result, err := s.attributionRepo.GetByOrderAndModel(ctx, nil, shop, orderID, ModelAIEnhanced)
	if errors.Is(err, apperrors.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	credits, err := decodeChannelCredits(result.ChannelAttribution)
	if err != nil {
		s.log.Warn("Unreadable channel attribution", "order_id", orderID, "error", err)
		return 0, nil
	}

	var adSpend float64
	for channel, credit := range credits {
		for _, paid := range s.paidChannels {
			if strings.Contains(channel, paid) {
				adSpend += credit.Revenue
				break
			}
		}
	}
	return adSpend, nil
}

func (s *plService) publishDelta(ctx context.Context, delta *PLDelta) {
	if s.plBus == nil {
		return
	}
	update := redisclient.PLUpdate{
		ShopDomain:         delta.ShopDomain,
		OrderID:            delta.OrderID,
		Timestamp:          delta.Timestamp,
		Revenue:            delta.Revenue,
		COGS:               delta.COGS,
		GrossProfit:        delta.GrossProfit,
		PaymentFee:         delta.PaymentFee,
		ShippingCost:       delta.ShippingCost,
		AttributedAdSpend:  delta.AttributedAdSpend,
		ContributionProfit: delta.ContributionProfit,
		CostMissing:        delta.CostMissing,
	}
	if err := s.plBus.Publish(ctx, update); err != nil {
		s.log.Warn("Failed to publish PL update", "order_id", delta.OrderID, "error", err)
	}
}

// ComputePLMetrics reduces period revenue and per-category costs into the
// full metric set. Pure, so the incremental and batch snapshot paths cannot
// diverge.
func ComputePLMetrics(revenue float64, orderCount int, costs map[string]float64) PLMetrics {
	m := PLMetrics{
		Revenue:      revenue,
		COGS:         costs[types.CostCategoryCOGS],
		AdSpend:      costs[types.CostCategoryAdvertising],
		ShippingCost: costs[types.CostCategoryShipping],
		PaymentFees:  costs[types.CostCategoryPaymentProcessing],
		FixedCosts:   costs[types.CostCategoryFixedCosts],
		OrderCount:   orderCount,
	}
	for category, amount := range costs {
		switch category {
		case types.CostCategoryCOGS, types.CostCategoryAdvertising, types.CostCategoryShipping,
			types.CostCategoryPaymentProcessing, types.CostCategoryFixedCosts:
		default:
			m.OtherCosts += amount
		}
	}

	m.GrossProfit = revenue - m.COGS
	variableCosts := m.COGS + m.AdSpend + m.ShippingCost + m.PaymentFees
	m.ContributionMargin = revenue - variableCosts
	totalCosts := variableCosts + m.FixedCosts + m.OtherCosts
	m.NetProfit = revenue - totalCosts

	if revenue > 0 {
		m.GrossMarginPercent = m.GrossProfit / revenue * 100
		m.ContributionMarginPercent = m.ContributionMargin / revenue * 100
		m.NetMarginPercent = m.NetProfit / revenue * 100
	}
	if orderCount > 0 {
		m.AvgOrderValue = revenue / float64(orderCount)
		m.CustomerAcquisitionCost = m.AdSpend / float64(orderCount)
	}
	if m.AvgOrderValue > 0 {
		perOrderVariable := variableCosts / math.Max(1, float64(orderCount))
		denominator := m.AvgOrderValue - perOrderVariable
		if denominator > 0 {
			m.BreakEvenOrders = int(math.Ceil(m.FixedCosts / denominator))
		}
	}
	return m
}

// periodMetrics reduces conversion touchpoints and cost events for a window.
func (s *plService) periodMetrics(ctx context.Context, shop string, start, end time.Time) (PLMetrics, error) {
	conversions, err := s.touchpointRepo.GetConversionsInRange(ctx, nil, shop, start, end)
	if err != nil {
		return PLMetrics{}, err
	}
	var revenue float64
	orders := make(map[string]bool)
	for _, tp := range conversions {
		revenue += tp.ConversionValue
		orders[tp.OrderID] = true
	}

	costs, err := s.costEventRepo.SumByCategory(ctx, nil, shop, start, end)
	if err != nil {
		return PLMetrics{}, err
	}
	return ComputePLMetrics(revenue, len(orders), costs), nil
}

// Snapshot recomputes and stores the rollup for [periodStart, periodEnd). A
// snapshot taken mid-ingestion may exclude an in-flight order; the next
// recompute corrects it.
func (s *plService) Snapshot(ctx context.Context, shop string, periodStart, periodEnd time.Time) (*types.PLSnapshot, error) {
	metrics, err := s.periodMetrics(ctx, shop, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	snapshot := &types.PLSnapshot{
		ShopDomain:                shop,
		PeriodStart:               periodStart,
		PeriodEnd:                 periodEnd,
		TotalRevenue:              metrics.Revenue,
		TotalCOGS:                 metrics.COGS,
		GrossProfit:               metrics.GrossProfit,
		GrossMarginPercent:        metrics.GrossMarginPercent,
		TotalAdvertisingCost:      metrics.AdSpend,
		TotalShippingCost:         metrics.ShippingCost,
		TotalPaymentFees:          metrics.PaymentFees,
		TotalFixedCosts:           metrics.FixedCosts,
		ContributionMargin:        metrics.ContributionMargin,
		ContributionMarginPercent: metrics.ContributionMarginPercent,
		NetProfit:                 metrics.NetProfit,
		NetMarginPercent:          metrics.NetMarginPercent,
		OrderCount:                metrics.OrderCount,
		AvgOrderValue:             metrics.AvgOrderValue,
		CustomerAcquisitionCost:   metrics.CustomerAcquisitionCost,
		BreakEvenOrders:           metrics.BreakEvenOrders,
		UpdatedAt:                 time.Now().UTC(),
	}
	if err := s.snapshotRepo.Upsert(ctx, nil, snapshot); err != nil {
		return nil, fmt.Errorf("upsert snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *plService) SetProductCost(ctx context.Context, cost *types.ProductCost) error {
	if cost == nil || cost.ShopDomain == "" || cost.ProductID == "" {
		return fmt.Errorf("shop_domain and product_id are required: %w", apperrors.ErrInvalidArgument)
	}
	cost.UpdatedAt = time.Now().UTC()
	return s.productCostRepo.Upsert(ctx, nil, cost)
}

func (s *plService) RecordCost(ctx context.Context, event *types.CostEvent) error {
	if event == nil || event.ShopDomain == "" || event.CostCategory == "" {
		return fmt.Errorf("shop_domain and cost_category are required: %w", apperrors.ErrInvalidArgument)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.costEventRepo.Create(ctx, nil, []*types.CostEvent{event})
	return err
}

var realtimeWindows = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

func (s *plService) GetRealtimePL(ctx context.Context, shop, timeframe string) (*RealtimePL, error) {
	window, ok := realtimeWindows[timeframe]
	if !ok {
		timeframe = "24h"
		window = realtimeWindows[timeframe]
	}
	now := time.Now().UTC()
	start := now.Add(-window)

	metrics, err := s.periodMetrics(ctx, shop, start, now)
	if err != nil {
		return nil, err
	}
	topProducts, err := s.productPLRepo.TopProducts(ctx, nil, shop, start.Truncate(24*time.Hour), 10)
	if err != nil {
		return nil, err
	}
	trends, err := s.snapshotRepo.GetSeries(ctx, nil, shop, start.Truncate(24*time.Hour))
	if err != nil {
		return nil, err
	}

	return &RealtimePL{
		Timeframe:   timeframe,
		PeriodStart: start,
		PeriodEnd:   now,
		Current:     metrics,
		TopProducts: topProducts,
		Trends:      trends,
		Alerts:      generatePLAlerts(metrics),
	}, nil
}

// generatePLAlerts flags thin margins and expensive acquisition.
func generatePLAlerts(metrics PLMetrics) []PLAlert {
	alerts := []PLAlert{}
	if metrics.Revenue <= 0 {
		return alerts
	}
	if metrics.GrossMarginPercent < 20 {
		alerts = append(alerts, PLAlert{
			Type:    "warning",
			Message: fmt.Sprintf("Gross margin is low at %.1f%%", metrics.GrossMarginPercent),
			Action:  "Review product costs and pricing",
		})
	}
	if metrics.NetMarginPercent < 5 {
		alerts = append(alerts, PLAlert{
			Type:    "danger",
			Message: fmt.Sprintf("Net margin is very low at %.1f%%", metrics.NetMarginPercent),
			Action:  "Urgent cost optimization needed",
		})
	}
	if metrics.CustomerAcquisitionCost > metrics.AvgOrderValue*0.3 {
		alerts = append(alerts, PLAlert{
			Type:    "warning",
			Message: "Customer acquisition cost is high relative to AOV",
			Action:  "Optimize ad campaigns or increase AOV",
		})
	}
	return alerts
}
