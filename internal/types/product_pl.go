package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductPL accumulates per-product, per-day profitability. Ad spend is
// allocated proportionally to each line item's share of order revenue.
type ProductPL struct {
	ID                        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ShopDomain                string    `gorm:"not null;uniqueIndex:uq_product_pl,priority:1;index:idx_product_pl_shop_date,priority:1" json:"shop_domain"`
	ProductID                 string    `gorm:"not null;uniqueIndex:uq_product_pl,priority:2" json:"product_id"`
	Date                      time.Time `gorm:"type:date;not null;uniqueIndex:uq_product_pl,priority:3;index:idx_product_pl_shop_date,priority:2" json:"date"`
	UnitsSold                 int       `gorm:"not null" json:"units_sold"`
	TotalRevenue              float64   `gorm:"not null" json:"total_revenue"`
	TotalCOGS                 float64   `gorm:"not null" json:"total_cogs"`
	AllocatedAdSpend          float64   `gorm:"not null;default:0" json:"allocated_ad_spend"`
	GrossProfit               float64   `gorm:"not null" json:"gross_profit"`
	ContributionProfit        float64   `gorm:"not null" json:"contribution_profit"`
	GrossMarginPercent        float64   `gorm:"not null;default:0" json:"gross_margin_percent"`
	ContributionMarginPercent float64   `gorm:"not null;default:0" json:"contribution_margin_percent"`
	CreatedAt                 time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt                 time.Time `gorm:"not null" json:"updated_at"`
}

func (ProductPL) TableName() string { return "product_pl" }

// BeforeCreate assigns the row id application-side so every supported
// dialect gets the same schema.
func (p *ProductPL) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
