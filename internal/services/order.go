package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/profitlens/profitlens-backend/internal/logger"
	apperrors "github.com/profitlens/profitlens-backend/internal/pkg/errors"
	"github.com/profitlens/profitlens-backend/internal/repos"
	"github.com/profitlens/profitlens-backend/internal/types"
)

// OrderService is the order-stream intake: it writes the terminal conversion
// touchpoint (which triggers attribution for all models), folds the order
// into the customer profile and runs the P&L pass.
type OrderService interface {
	ProcessOrder(ctx context.Context, order *types.Order) (*PLDelta, error)
}

type orderService struct {
	db                 *gorm.DB
	log                *logger.Logger
	attributionService AttributionService
	plService          PLService
	profileRepo        repos.CustomerProfileRepo
}

func NewOrderService(db *gorm.DB, log *logger.Logger, attributionService AttributionService, plService PLService, profileRepo repos.CustomerProfileRepo) OrderService {
	return &orderService{
		db:                 db,
		log:                log.With("service", "OrderService"),
		attributionService: attributionService,
		plService:          plService,
		profileRepo:        profileRepo,
	}
}

func (s *orderService) ProcessOrder(ctx context.Context, order *types.Order) (*PLDelta, error) {
	if order == nil || order.OrderID == "" || order.ShopDomain == "" {
		return nil, fmt.Errorf("order_id and shop_domain are required: %w", apperrors.ErrInvalidArgument)
	}
	if order.TotalRevenue <= 0 {
		return nil, fmt.Errorf("order %s has non-positive revenue: %w", order.OrderID, apperrors.ErrInvalidArgument)
	}
	sessionID := order.SessionID
	if sessionID == "" {
		sessionID = "order-" + order.OrderID
	}

	// Terminal conversion touchpoint. Its channel is "direct"; any earlier
	// touches in the same session/customer journey carry their own channels.
	conversion := &types.Touchpoint{
		ShopDomain:      order.ShopDomain,
		CustomerID:      order.CustomerID,
		SessionID:       sessionID,
		Timestamp:       order.Timestamp,
		Channel:         "direct",
		ConversionValue: order.TotalRevenue,
		OrderID:         order.OrderID,
	}
	if err := s.attributionService.TrackTouchpoint(ctx, conversion); err != nil {
		return nil, fmt.Errorf("track conversion: %w", err)
	}

	if order.CustomerID != nil && *order.CustomerID != "" {
		if err := s.profileRepo.RecordOrder(ctx, nil, order.ShopDomain, *order.CustomerID, conversion.Timestamp, order.TotalRevenue); err != nil {
			return nil, fmt.Errorf("record customer order: %w", err)
		}
	}

	delta, err := s.plService.ProcessOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	s.log.Info("Processed order",
		"shop", order.ShopDomain,
		"order_id", order.OrderID,
		"revenue", order.TotalRevenue,
		"contribution_profit", delta.ContributionProfit)
	return delta, nil
}
