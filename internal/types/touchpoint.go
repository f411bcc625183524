package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Touchpoint is a single recorded customer interaction. Rows are write-once:
// the ingestion boundary creates them and nothing mutates them afterwards.
// Ordering within a customer/session is by Timestamp, ties broken by Seq.
type Touchpoint struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Seq             int64     `gorm:"autoIncrement;uniqueIndex" json:"seq"`
	ShopDomain      string    `gorm:"not null;index:idx_touchpoint_shop_customer_time,priority:1;index:idx_touchpoint_shop_session,priority:1" json:"shop_domain"`
	CustomerID      *string   `gorm:"index:idx_touchpoint_shop_customer_time,priority:2" json:"customer_id,omitempty"`
	SessionID       string    `gorm:"not null;index:idx_touchpoint_shop_session,priority:2" json:"session_id"`
	Timestamp       time.Time `gorm:"not null;index:idx_touchpoint_shop_customer_time,priority:3" json:"timestamp"`
	Channel         string    `gorm:"not null" json:"channel"`
	Campaign        string    `json:"campaign,omitempty"`
	Source          string    `json:"source,omitempty"`
	Medium          string    `json:"medium,omitempty"`
	DeviceType      string    `json:"device_type,omitempty"`
	PageURL         string    `json:"page_url,omitempty"`
	Referrer        string    `json:"referrer,omitempty"`
	ConversionValue float64   `gorm:"not null;default:0" json:"conversion_value"`
	OrderID         string    `gorm:"index" json:"order_id,omitempty"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
}

func (Touchpoint) TableName() string { return "touchpoint" }

// BeforeCreate assigns the row id application-side so every supported
// dialect gets the same schema.
func (t *Touchpoint) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
