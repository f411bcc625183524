package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductCost holds operator-supplied unit cost components. Lookups fall back
// from variant-specific to product-level to a zero-cost default.
type ProductCost struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ShopDomain         string    `gorm:"not null;uniqueIndex:uq_product_cost,priority:1" json:"shop_domain"`
	ProductID          string    `gorm:"not null;uniqueIndex:uq_product_cost,priority:2" json:"product_id"`
	VariantID          string    `gorm:"uniqueIndex:uq_product_cost,priority:3" json:"variant_id,omitempty"`
	CostOfGoods        float64   `gorm:"not null" json:"cost_of_goods"`
	SupplierCost       float64   `gorm:"not null;default:0" json:"supplier_cost"`
	ManufacturingCost  float64   `gorm:"not null;default:0" json:"manufacturing_cost"`
	PackagingCost      float64   `gorm:"not null;default:0" json:"packaging_cost"`
	LaborCostPerUnit   float64   `gorm:"not null;default:0" json:"labor_cost_per_unit"`
	OverheadAllocation float64   `gorm:"not null;default:0" json:"overhead_allocation"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

func (ProductCost) TableName() string { return "product_cost" }

// UnitCost is the full per-unit cost across all components.
func (pc *ProductCost) UnitCost() float64 {
	return pc.CostOfGoods + pc.SupplierCost + pc.ManufacturingCost +
		pc.PackagingCost + pc.LaborCostPerUnit + pc.OverheadAllocation
}

// BeforeCreate assigns the row id application-side so every supported
// dialect gets the same schema.
func (pc *ProductCost) BeforeCreate(*gorm.DB) error {
	if pc.ID == uuid.Nil {
		pc.ID = uuid.New()
	}
	return nil
}
