package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/profitlens/profitlens-backend/internal/logger"
	"github.com/profitlens/profitlens-backend/internal/types"
)

type PLSnapshotRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, snapshot *types.PLSnapshot) error
	GetSeries(ctx context.Context, tx *gorm.DB, shop string, since time.Time) ([]*types.PLSnapshot, error)
}

type plSnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPLSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) PLSnapshotRepo {
	repoLog := baseLog.With("repo", "PLSnapshotRepo")
	return &plSnapshotRepo{db: db, log: repoLog}
}

func (r *plSnapshotRepo) Upsert(ctx context.Context, tx *gorm.DB, snapshot *types.PLSnapshot) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_domain"}, {Name: "period_start"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"period_end",
			"total_revenue",
			"total_cogs",
			"gross_profit",
			"gross_margin_percent",
			"total_advertising_cost",
			"total_shipping_cost",
			"total_payment_fees",
			"total_fixed_costs",
			"contribution_margin",
			"contribution_margin_percent",
			"net_profit",
			"net_margin_percent",
			"order_count",
			"avg_order_value",
			"customer_acquisition_cost",
			"break_even_orders",
			"updated_at",
		}),
	}).Create(snapshot).Error
}

func (r *plSnapshotRepo) GetSeries(ctx context.Context, tx *gorm.DB, shop string, since time.Time) ([]*types.PLSnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PLSnapshot
	if err := transaction.WithContext(ctx).
		Where("shop_domain = ? AND period_start >= ?", shop, since).
		Order("period_start ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
