package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/profitlens/profitlens-backend/internal/logger"
	"github.com/profitlens/profitlens-backend/internal/types"
)

// ProductPLSummary is the aggregated per-product view used by dashboards.
type ProductPLSummary struct {
	ProductID                 string  `gorm:"column:product_id" json:"product_id"`
	Revenue                   float64 `gorm:"column:revenue" json:"revenue"`
	GrossProfit               float64 `gorm:"column:gross_profit" json:"gross_profit"`
	ContributionProfit        float64 `gorm:"column:contribution_profit" json:"contribution_profit"`
	GrossMarginPercent        float64 `gorm:"column:gross_margin_percent" json:"gross_margin_percent"`
	ContributionMarginPercent float64 `gorm:"column:contribution_margin_percent" json:"contribution_margin_percent"`
	UnitsSold                 int     `gorm:"column:units_sold" json:"units_sold"`
}

type ProductPLRepo interface {
	Accumulate(ctx context.Context, tx *gorm.DB, row *types.ProductPL) error
	TopProducts(ctx context.Context, tx *gorm.DB, shop string, since time.Time, limit int) ([]ProductPLSummary, error)
}

type productPLRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductPLRepo(db *gorm.DB, baseLog *logger.Logger) ProductPLRepo {
	repoLog := baseLog.With("repo", "ProductPLRepo")
	return &productPLRepo{db: db, log: repoLog}
}

// Accumulate folds one order's line-item P&L into the (shop, product, day)
// row. The conflict path adds deltas and re-derives profits and margins from
// the accumulated totals, so per-order and batch paths land on the same row.
func (r *productPLRepo) Accumulate(ctx context.Context, tx *gorm.DB, row *types.ProductPL) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_domain"}, {Name: "product_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"units_sold":         gorm.Expr("product_pl.units_sold + excluded.units_sold"),
			"total_revenue":      gorm.Expr("product_pl.total_revenue + excluded.total_revenue"),
			"total_cogs":         gorm.Expr("product_pl.total_cogs + excluded.total_cogs"),
			"allocated_ad_spend": gorm.Expr("product_pl.allocated_ad_spend + excluded.allocated_ad_spend"),
			"gross_profit":       gorm.Expr("(product_pl.total_revenue + excluded.total_revenue) - (product_pl.total_cogs + excluded.total_cogs)"),
			"contribution_profit": gorm.Expr(
				"(product_pl.total_revenue + excluded.total_revenue) - (product_pl.total_cogs + excluded.total_cogs) - (product_pl.allocated_ad_spend + excluded.allocated_ad_spend)"),
			"gross_margin_percent": gorm.Expr(
				"CASE WHEN (product_pl.total_revenue + excluded.total_revenue) > 0 THEN ((product_pl.total_revenue + excluded.total_revenue) - (product_pl.total_cogs + excluded.total_cogs)) / (product_pl.total_revenue + excluded.total_revenue) * 100 ELSE 0 END"),
			"contribution_margin_percent": gorm.Expr(
				"CASE WHEN (product_pl.total_revenue + excluded.total_revenue) > 0 THEN ((product_pl.total_revenue + excluded.total_revenue) - (product_pl.total_cogs + excluded.total_cogs) - (product_pl.allocated_ad_spend + excluded.allocated_ad_spend)) / (product_pl.total_revenue + excluded.total_revenue) * 100 ELSE 0 END"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(row).Error
}

func (r *productPLRepo) TopProducts(ctx context.Context, tx *gorm.DB, shop string, since time.Time, limit int) ([]ProductPLSummary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if limit <= 0 {
		limit = 10
	}

	var rows []ProductPLSummary
	if err := transaction.WithContext(ctx).
		Model(&types.ProductPL{}).
		Select("product_id, SUM(total_revenue) AS revenue, SUM(gross_profit) AS gross_profit, SUM(contribution_profit) AS contribution_profit, AVG(gross_margin_percent) AS gross_margin_percent, AVG(contribution_margin_percent) AS contribution_margin_percent, SUM(units_sold) AS units_sold").
		Where("shop_domain = ? AND date >= ?", shop, since).
		Group("product_id").
		Order("revenue DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
