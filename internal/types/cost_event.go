package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cost categories for recorded cost events.
const (
	CostCategoryCOGS              = "cost_of_goods_sold"
	CostCategoryAdvertising       = "advertising"
	CostCategoryShipping          = "shipping"
	CostCategoryPaymentProcessing = "payment_processing"
	CostCategoryFixedCosts        = "fixed_costs"
	CostCategoryOther             = "other"
)

// CostEvent is an append-only recorded cost. Snapshots are pure reductions
// over these rows plus conversion touchpoints.
type CostEvent struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ShopDomain   string    `gorm:"not null;index:idx_cost_event_shop_time,priority:1" json:"shop_domain"`
	CostType     string    `gorm:"not null" json:"cost_type"`
	CostCategory string    `gorm:"not null;index" json:"cost_category"`
	Amount       float64   `gorm:"not null" json:"amount"`
	Currency     string    `gorm:"not null" json:"currency"`
	OrderID      string    `json:"order_id,omitempty"`
	ProductID    string    `json:"product_id,omitempty"`
	CampaignID   string    `json:"campaign_id,omitempty"`
	Description  string    `json:"description,omitempty"`
	Timestamp    time.Time `gorm:"not null;index:idx_cost_event_shop_time,priority:2" json:"timestamp"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (CostEvent) TableName() string { return "cost_event" }

// BeforeCreate assigns the row id and currency default application-side so
// every supported dialect gets the same schema.
func (e *CostEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Currency == "" {
		e.Currency = "USD"
	}
	return nil
}
