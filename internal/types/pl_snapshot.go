package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PLSnapshot is a periodic rollup of shop profitability. Derived only: it can
// be discarded and rebuilt from touchpoints, cost events and product costs at
// any time, and is never hand-edited.
type PLSnapshot struct {
	ID                        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ShopDomain                string    `gorm:"not null;uniqueIndex:uq_pl_snapshot,priority:1" json:"shop_domain"`
	PeriodStart               time.Time `gorm:"not null;uniqueIndex:uq_pl_snapshot,priority:2" json:"period_start"`
	PeriodEnd                 time.Time `gorm:"not null" json:"period_end"`
	TotalRevenue              float64   `gorm:"not null" json:"total_revenue"`
	TotalCOGS                 float64   `gorm:"not null" json:"total_cogs"`
	GrossProfit               float64   `gorm:"not null" json:"gross_profit"`
	GrossMarginPercent        float64   `gorm:"not null;default:0" json:"gross_margin_percent"`
	TotalAdvertisingCost      float64   `gorm:"not null;default:0" json:"total_advertising_cost"`
	TotalShippingCost         float64   `gorm:"not null;default:0" json:"total_shipping_cost"`
	TotalPaymentFees          float64   `gorm:"not null;default:0" json:"total_payment_fees"`
	TotalFixedCosts           float64   `gorm:"not null;default:0" json:"total_fixed_costs"`
	ContributionMargin        float64   `gorm:"not null" json:"contribution_margin"`
	ContributionMarginPercent float64   `gorm:"not null;default:0" json:"contribution_margin_percent"`
	NetProfit                 float64   `gorm:"not null" json:"net_profit"`
	NetMarginPercent          float64   `gorm:"not null;default:0" json:"net_margin_percent"`
	OrderCount                int       `gorm:"not null" json:"order_count"`
	AvgOrderValue             float64   `gorm:"not null;default:0" json:"avg_order_value"`
	CustomerAcquisitionCost   float64   `gorm:"not null;default:0" json:"customer_acquisition_cost"`
	BreakEvenOrders           int       `gorm:"not null;default:0" json:"break_even_orders"`
	CreatedAt                 time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt                 time.Time `gorm:"not null" json:"updated_at"`
}

func (PLSnapshot) TableName() string { return "pl_snapshot" }

// BeforeCreate assigns the row id application-side so every supported
// dialect gets the same schema.
func (s *PLSnapshot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
