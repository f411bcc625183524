package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/profitlens/profitlens-backend/internal/logger"
	apperrors "github.com/profitlens/profitlens-backend/internal/pkg/errors"
	"github.com/profitlens/profitlens-backend/internal/types"
)

type AttributionResultRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, result *types.AttributionResult) error
	GetByOrderAndModel(ctx context.Context, tx *gorm.DB, shop, orderID, modelType string) (*types.AttributionResult, error)
	GetByShopAndRange(ctx context.Context, tx *gorm.DB, shop, modelType string, start, end time.Time) ([]*types.AttributionResult, error)
}

type attributionResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttributionResultRepo(db *gorm.DB, baseLog *logger.Logger) AttributionResultRepo {
	repoLog := baseLog.With("repo", "AttributionResultRepo")
	return &attributionResultRepo{db: db, log: repoLog}
}

// Upsert replaces the stored result for (shop, order, model). Recomputation
// is idempotent, so a racing writer simply overwrites with identical bytes.
func (r *attributionResultRepo) Upsert(ctx context.Context, tx *gorm.DB, result *types.AttributionResult) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_domain"}, {Name: "order_id"}, {Name: "model_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"channel_attribution",
			"total_revenue",
			"attribution_date",
			"customer_journey",
			"touchpoint_count",
			"conversion_time_hours",
			"updated_at",
		}),
	}).Create(result).Error
}

func (r *attributionResultRepo) GetByOrderAndModel(ctx context.Context, tx *gorm.DB, shop, orderID, modelType string) (*types.AttributionResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.AttributionResult
	err := transaction.WithContext(ctx).
		Where("shop_domain = ? AND order_id = ? AND model_type = ?", shop, orderID, modelType).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *attributionResultRepo) GetByShopAndRange(ctx context.Context, tx *gorm.DB, shop, modelType string, start, end time.Time) ([]*types.AttributionResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AttributionResult
	if err := transaction.WithContext(ctx).
		Where("shop_domain = ? AND model_type = ? AND attribution_date >= ? AND attribution_date < ?", shop, modelType, start, end).
		Order("attribution_date ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
