package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/profitlens/profitlens-backend/internal/logger"
	apperrors "github.com/profitlens/profitlens-backend/internal/pkg/errors"
	"github.com/profitlens/profitlens-backend/internal/types"
)

type ProductCostRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, cost *types.ProductCost) error
	Resolve(ctx context.Context, tx *gorm.DB, shop, productID, variantID string) (*types.ProductCost, error)
}

type productCostRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductCostRepo(db *gorm.DB, baseLog *logger.Logger) ProductCostRepo {
	repoLog := baseLog.With("repo", "ProductCostRepo")
	return &productCostRepo{db: db, log: repoLog}
}

func (r *productCostRepo) Upsert(ctx context.Context, tx *gorm.DB, cost *types.ProductCost) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_domain"}, {Name: "product_id"}, {Name: "variant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cost_of_goods",
			"supplier_cost",
			"manufacturing_cost",
			"packaging_cost",
			"labor_cost_per_unit",
			"overhead_allocation",
			"updated_at",
		}),
	}).Create(cost).Error
}

// Resolve looks up the unit cost with fallback: variant-specific first, then
// the product-level row. A miss returns ErrDataMissing so callers can apply
// the zero-cost default and flag the gap instead of failing the order.
func (r *productCostRepo) Resolve(ctx context.Context, tx *gorm.DB, shop, productID, variantID string) (*types.ProductCost, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var cost types.ProductCost
	if variantID != "" {
		err := transaction.WithContext(ctx).
			Where("shop_domain = ? AND product_id = ? AND variant_id = ?", shop, productID, variantID).
			First(&cost).Error
		if err == nil {
			return &cost, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	err := transaction.WithContext(ctx).
		Where("shop_domain = ? AND product_id = ? AND (variant_id = '' OR variant_id IS NULL)", shop, productID).
		First(&cost).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDataMissing
		}
		return nil, err
	}
	return &cost, nil
}
