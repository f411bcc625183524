package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/profitlens/profitlens-backend/internal/logger"
	apperrors "github.com/profitlens/profitlens-backend/internal/pkg/errors"
	"github.com/profitlens/profitlens-backend/internal/repos"
	"github.com/profitlens/profitlens-backend/internal/types"
)

// ChannelPerformance is one channel's aggregated attribution over a range.
type ChannelPerformance struct {
	Channel     string  `json:"channel"`
	Revenue     float64 `json:"revenue"`
	Orders      int     `json:"orders"`
	Touchpoints int     `json:"touchpoints"`
}

type AttributionSummary struct {
	TotalOrders            int     `json:"total_orders"`
	TotalRevenue           float64 `json:"total_revenue"`
	AvgTouchpoints         float64 `json:"avg_touchpoints"`
	AvgConversionTimeHours float64 `json:"avg_conversion_time_hours"`
}

type AttributionAnalytics struct {
	StartDate  time.Time            `json:"start_date"`
	EndDate    time.Time            `json:"end_date"`
	Model      string               `json:"model"`
	PerChannel []ChannelPerformance `json:"per_channel"`
	Summary    AttributionSummary   `json:"summary"`
}

type AttributionService interface {
	TrackTouchpoint(ctx context.Context, tp *types.Touchpoint) error
	ProcessAttribution(ctx context.Context, shop, orderID string) error
	RebuildRange(ctx context.Context, shop string, start, end time.Time) (int, error)
	GetAttributionAnalytics(ctx context.Context, shop string, start, end time.Time, modelType string) (*AttributionAnalytics, error)
}

type attributionService struct {
	db              *gorm.DB
	log             *logger.Logger
	touchpointRepo  repos.TouchpointRepo
	attributionRepo repos.AttributionResultRepo
	journeyService  JourneyService
}

func NewAttributionService(db *gorm.DB, log *logger.Logger, touchpointRepo repos.TouchpointRepo, attributionRepo repos.AttributionResultRepo, journeyService JourneyService) AttributionService {
	return &attributionService{
		db:              db,
		log:             log.With("service", "AttributionService"),
		touchpointRepo:  touchpointRepo,
		attributionRepo: attributionRepo,
		journeyService:  journeyService,
	}
}

// TrackTouchpoint records one customer interaction. A touchpoint that closes
// an order (conversion_value > 0) must carry the order id; it triggers
// attribution for that order across all registered models.
func (s *attributionService) TrackTouchpoint(ctx context.Context, tp *types.Touchpoint) error {
	if tp == nil || tp.ShopDomain == "" || tp.SessionID == "" || tp.Channel == "" {
		return fmt.Errorf("shop_domain, session_id and channel are required: %w", apperrors.ErrInvalidArgument)
	}
	if tp.ConversionValue > 0 && tp.OrderID == "" {
		return fmt.Errorf("conversion touchpoint without order_id: %w", apperrors.ErrInvalidArgument)
	}
	if tp.Timestamp.IsZero() {
		tp.Timestamp = time.Now().UTC()
	}

	if _, err := s.touchpointRepo.Create(ctx, nil, []*types.Touchpoint{tp}); err != nil {
		return fmt.Errorf("create touchpoint: %w", err)
	}

	if tp.ConversionValue > 0 {
		if err := s.ProcessAttribution(ctx, tp.ShopDomain, tp.OrderID); err != nil {
			return fmt.Errorf("process attribution for order %s: %w", tp.OrderID, err)
		}
	}
	return nil
}

// ProcessAttribution recomputes every registered model for one order. Safe
// to call concurrently for the same order: each recompute is a pure function
// of the same touchpoint rows, so racing writers overwrite with identical
// bytes.
func (s *attributionService) ProcessAttribution(ctx context.Context, shop, orderID string) error {
	orderTps, err := s.touchpointRepo.GetByOrderID(ctx, nil, shop, orderID)
	if err != nil {
		return err
	}

	var conversion *types.Touchpoint
	for _, tp := range orderTps {
		if tp.ConversionValue > 0 {
			conversion = tp
			break
		}
	}
	if conversion == nil {
		return fmt.Errorf("no conversion touchpoint for order %s: %w", orderID, apperrors.ErrNotFound)
	}
	totalRevenue := conversion.ConversionValue

	journey, err := s.journeyService.Assemble(ctx, shop, conversion.CustomerID, conversion.SessionID, conversion.OrderID, conversion.Timestamp)
	if errors.Is(err, apperrors.ErrEmptyJourney) {
		// Degrade to a single direct touchpoint; the assembler itself never
		// fabricates rows.
		s.log.Info("Empty journey, attributing as direct", "shop", shop, "order_id", orderID)
		direct := *conversion
		direct.Channel = "direct"
		journey = &Journey{Touchpoints: []*types.Touchpoint{&direct}}
	} else if err != nil {
		return err
	}

	journeyJSON, err := json.Marshal(journeySteps(journey))
	if err != nil {
		return err
	}
	attributionDate := conversion.Timestamp.UTC().Truncate(24 * time.Hour)

	for _, modelType := range RegisteredModels {
		credits, err := CalculateAttribution(journey, totalRevenue, modelType)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvariantViolation) {
				// A defective credit map is never persisted.
				s.log.Error("Attribution invariant violated, rejecting write",
					"shop", shop, "order_id", orderID, "model", modelType, "error", err)
			}
			return err
		}

		creditsJSON, err := json.Marshal(credits)
		if err != nil {
			return err
		}

		result := &types.AttributionResult{
			ShopDomain:          shop,
			OrderID:             orderID,
			ModelType:           modelType,
			ChannelAttribution:  creditsJSON,
			TotalRevenue:        totalRevenue,
			AttributionDate:     attributionDate,
			CustomerJourney:     journeyJSON,
			TouchpointCount:     len(journey.Touchpoints),
			ConversionTimeHours: journey.ConversionTimeHours(),
			UpdatedAt:           time.Now().UTC(),
		}
		if err := s.attributionRepo.Upsert(ctx, nil, result); err != nil {
			return fmt.Errorf("upsert attribution result (%s/%s): %w", orderID, modelType, err)
		}
	}
	return nil
}

// RebuildRange throws away nothing and recomputes attribution for every
// conversion in [start, end) directly from touchpoints. Exercises the
// replayability property after model or data fixes.
func (s *attributionService) RebuildRange(ctx context.Context, shop string, start, end time.Time) (int, error) {
	conversions, err := s.touchpointRepo.GetConversionsInRange(ctx, nil, shop, start, end)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(conversions))
	orderIDs := make([]string, 0, len(conversions))
	for _, tp := range conversions {
		if tp.OrderID != "" && !seen[tp.OrderID] {
			seen[tp.OrderID] = true
			orderIDs = append(orderIDs, tp.OrderID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, orderID := range orderIDs {
		g.Go(func() error {
			return s.ProcessAttribution(gctx, shop, orderID)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	s.log.Info("Rebuilt attribution results", "shop", shop, "orders", len(orderIDs))
	return len(orderIDs), nil
}

// GetAttributionAnalytics rolls stored results for one model into a
// per-channel view with summary totals.
func (s *attributionService) GetAttributionAnalytics(ctx context.Context, shop string, start, end time.Time, modelType string) (*AttributionAnalytics, error) {
	if modelType == "" {
		modelType = ModelAIEnhanced
	}
	if !isRegisteredModel(modelType) {
		return nil, fmt.Errorf("model %q: %w", modelType, apperrors.ErrModelUnknown)
	}

	results, err := s.attributionRepo.GetByShopAndRange(ctx, nil, shop, modelType, start, end)
	if err != nil {
		return nil, err
	}

	perChannel := make(map[string]*ChannelPerformance)
	summary := AttributionSummary{TotalOrders: len(results)}
	var touchpointSum, conversionHoursSum float64

	for _, result := range results {
		credits, err := decodeChannelCredits(result.ChannelAttribution)
		if err != nil {
			s.log.Warn("Skipping unreadable channel attribution", "order_id", result.OrderID, "error", err)
			continue
		}
		summary.TotalRevenue += result.TotalRevenue
		touchpointSum += float64(result.TouchpointCount)
		conversionHoursSum += result.ConversionTimeHours

		for channel, credit := range credits {
			perf, ok := perChannel[channel]
			if !ok {
				perf = &ChannelPerformance{Channel: channel}
				perChannel[channel] = perf
			}
			perf.Revenue += credit.Revenue
			perf.Orders++
			perf.Touchpoints += credit.Touchpoints
		}
	}

	if len(results) > 0 {
		summary.AvgTouchpoints = touchpointSum / float64(len(results))
		summary.AvgConversionTimeHours = conversionHoursSum / float64(len(results))
	}

	channels := make([]ChannelPerformance, 0, len(perChannel))
	for _, perf := range perChannel {
		channels = append(channels, *perf)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Revenue > channels[j].Revenue })

	return &AttributionAnalytics{
		StartDate:  start,
		EndDate:    end,
		Model:      modelType,
		PerChannel: channels,
		Summary:    summary,
	}, nil
}

func isRegisteredModel(modelType string) bool {
	for _, m := range RegisteredModels {
		if m == modelType {
			return true
		}
	}
	return false
}

func decodeChannelCredits(raw []byte) (map[string]*types.ChannelCredit, error) {
	var credits map[string]*types.ChannelCredit
	if err := json.Unmarshal(raw, &credits); err != nil {
		return nil, err
	}
	return credits, nil
}

func journeySteps(journey *Journey) []types.JourneyStep {
	steps := make([]types.JourneyStep, 0, len(journey.Touchpoints))
	for _, tp := range journey.Touchpoints {
		steps = append(steps, types.JourneyStep{
			Timestamp: tp.Timestamp,
			Channel:   tp.Channel,
			Source:    tp.Source,
			Campaign:  tp.Campaign,
		})
	}
	return steps
}
