package types

import "time"

// LineItem is one purchased product within an incoming order.
type LineItem struct {
	ProductID string  `json:"product_id"`
	VariantID string  `json:"variant_id,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is the inbound order-stream shape. Orders are not persisted as a
// table: the terminal conversion touchpoint plus cost events carry the
// durable state, which keeps every downstream view rebuildable.
type Order struct {
	OrderID        string     `json:"order_id"`
	ShopDomain     string     `json:"shop_domain"`
	CustomerID     *string    `json:"customer_id,omitempty"`
	SessionID      string     `json:"session_id,omitempty"`
	TotalRevenue   float64    `json:"total_revenue"`
	LineItems      []LineItem `json:"line_items"`
	ShippingCost   float64    `json:"shipping_cost"`
	PaymentGateway string     `json:"payment_gateway"`
	Timestamp      time.Time  `json:"timestamp"`
}
