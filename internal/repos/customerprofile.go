package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/profitlens/profitlens-backend/internal/logger"
	"github.com/profitlens/profitlens-backend/internal/types"
)

type CustomerProfileRepo interface {
	RecordOrder(ctx context.Context, tx *gorm.DB, shop, customerID string, orderTime time.Time, revenue float64) error
	GetByShop(ctx context.Context, tx *gorm.DB, shop string) ([]*types.CustomerProfile, error)
	GetSeenInRange(ctx context.Context, tx *gorm.DB, shop string, start, end time.Time) ([]*types.CustomerProfile, error)
}

type customerProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomerProfileRepo(db *gorm.DB, baseLog *logger.Logger) CustomerProfileRepo {
	repoLog := baseLog.With("repo", "CustomerProfileRepo")
	return &customerProfileRepo{db: db, log: repoLog}
}

// RecordOrder folds one conversion into the lifetime profile. FirstSeenAt
// keeps the earliest timestamp so cohort membership never drifts on replay.
func (r *customerProfileRepo) RecordOrder(ctx context.Context, tx *gorm.DB, shop, customerID string, orderTime time.Time, revenue float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	profile := &types.CustomerProfile{
		ShopDomain:  shop,
		CustomerID:  customerID,
		FirstSeenAt: orderTime,
		LastSeenAt:  orderTime,
		TotalOrders: 1,
		TotalSpent:  revenue,
	}
	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_domain"}, {Name: "customer_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"first_seen_at": gorm.Expr("CASE WHEN excluded.first_seen_at < customer_profile.first_seen_at THEN excluded.first_seen_at ELSE customer_profile.first_seen_at END"),
			"last_seen_at":  gorm.Expr("CASE WHEN excluded.last_seen_at > customer_profile.last_seen_at THEN excluded.last_seen_at ELSE customer_profile.last_seen_at END"),
			"total_orders":  gorm.Expr("customer_profile.total_orders + 1"),
			"total_spent":   gorm.Expr("customer_profile.total_spent + excluded.total_spent"),
			"updated_at":    gorm.Expr("excluded.updated_at"),
		}),
	}).Create(profile).Error
}

func (r *customerProfileRepo) GetByShop(ctx context.Context, tx *gorm.DB, shop string) ([]*types.CustomerProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CustomerProfile
	if err := transaction.WithContext(ctx).
		Where("shop_domain = ?", shop).
		Order("first_seen_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *customerProfileRepo) GetSeenInRange(ctx context.Context, tx *gorm.DB, shop string, start, end time.Time) ([]*types.CustomerProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CustomerProfile
	if err := transaction.WithContext(ctx).
		Where("shop_domain = ? AND last_seen_at >= ? AND last_seen_at < ?", shop, start, end).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
