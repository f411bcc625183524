package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChannelCredit is one channel's share of an order inside an attribution
// result. Revenue across the whole map sums to the order total.
type ChannelCredit struct {
	Revenue     float64 `json:"revenue"`
	Touchpoints int     `json:"touchpoints"`
	Weight      float64 `json:"weight"`
}

// JourneyStep is the compact journey snapshot stored alongside a result so
// dashboards can render the path without re-querying touchpoints.
type JourneyStep struct {
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Source    string    `json:"source,omitempty"`
	Campaign  string    `json:"campaign,omitempty"`
}

// AttributionResult is a materialized view over touchpoints: one row per
// (shop, order, model), replaced wholesale on every recompute.
type AttributionResult struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ShopDomain          string         `gorm:"not null;uniqueIndex:uq_attribution_order_model,priority:1;index:idx_attribution_shop_date,priority:1" json:"shop_domain"`
	OrderID             string         `gorm:"not null;uniqueIndex:uq_attribution_order_model,priority:2" json:"order_id"`
	ModelType           string         `gorm:"not null;uniqueIndex:uq_attribution_order_model,priority:3" json:"model_type"`
	ChannelAttribution  datatypes.JSON `gorm:"type:jsonb" json:"channel_attribution"`
	TotalRevenue        float64        `gorm:"not null" json:"total_revenue"`
	AttributionDate     time.Time      `gorm:"type:date;not null;index:idx_attribution_shop_date,priority:2" json:"attribution_date"`
	CustomerJourney     datatypes.JSON `gorm:"type:jsonb" json:"customer_journey,omitempty"`
	TouchpointCount     int            `gorm:"not null" json:"touchpoint_count"`
	ConversionTimeHours float64        `gorm:"not null;default:0" json:"conversion_time_hours"`
	CreatedAt           time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
}

func (AttributionResult) TableName() string { return "attribution_result" }

// BeforeCreate assigns the row id application-side so every supported
// dialect gets the same schema.
func (r *AttributionResult) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
