package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerProfile tracks a customer's lifetime order activity. First-seen
// timestamps key cohort membership; totals feed retention and LTV.
type CustomerProfile struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ShopDomain  string    `gorm:"not null;uniqueIndex:uq_customer_profile,priority:1" json:"shop_domain"`
	CustomerID  string    `gorm:"not null;uniqueIndex:uq_customer_profile,priority:2" json:"customer_id"`
	FirstSeenAt time.Time `gorm:"not null" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"not null" json:"last_seen_at"`
	TotalOrders int       `gorm:"not null;default:0" json:"total_orders"`
	TotalSpent  float64   `gorm:"not null;default:0" json:"total_spent"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (CustomerProfile) TableName() string { return "customer_profile" }

// BeforeCreate assigns the row id application-side so every supported
// dialect gets the same schema.
func (p *CustomerProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
