package handlers

import (
  "net/http"
  "time"
  "github.com/gin-gonic/gin"
  "github.com/profitlens/profitlens-backend/internal/logger"
  "github.com/profitlens/profitlens-backend/internal/services"
  "github.com/profitlens/profitlens-backend/internal/types"
)

type CostHandler struct {
  log   *logger.Logger
  plSvc services.PLService
}

func NewCostHandler(log *logger.Logger, psvc services.PLService) *CostHandler {
  return &CostHandler{
    log:   log.With("handler", "CostHandler"),
    plSvc: psvc,
  }
}

type productCostRequest struct {
  ShopDomain         string  `json:"shop_domain"`
  VariantID          string  `json:"variant_id"`
  CostOfGoods        float64 `json:"cost_of_goods"`
  SupplierCost       float64 `json:"supplier_cost"`
  ManufacturingCost  float64 `json:"manufacturing_cost"`
  PackagingCost      float64 `json:"packaging_cost"`
  LaborCostPerUnit   float64 `json:"labor_cost_per_unit"`
  OverheadAllocation float64 `json:"overhead_allocation"`
}

// PUT /api/products/:productId/cost
func (h *CostHandler) SetProductCost(c *gin.Context) {
  var req productCostRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  cost := &types.ProductCost{
    ShopDomain:         req.ShopDomain,
    ProductID:          c.Param("productId"),
    VariantID:          req.VariantID,
    CostOfGoods:        req.CostOfGoods,
    SupplierCost:       req.SupplierCost,
    ManufacturingCost:  req.ManufacturingCost,
    PackagingCost:      req.PackagingCost,
    LaborCostPerUnit:   req.LaborCostPerUnit,
    OverheadAllocation: req.OverheadAllocation,
  }
  if err := h.plSvc.SetProductCost(c.Request.Context(), cost); err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"product_id": cost.ProductID, "unit_cost": cost.UnitCost()})
}

type costEventRequest struct {
  ShopDomain   string    `json:"shop_domain"`
  CostType     string    `json:"cost_type"`
  CostCategory string    `json:"cost_category"`
  Amount       float64   `json:"amount"`
  OrderID      string    `json:"order_id"`
  ProductID    string    `json:"product_id"`
  CampaignID   string    `json:"campaign_id"`
  Description  string    `json:"description"`
  Timestamp    time.Time `json:"timestamp"`
}

// POST /api/costs
// Ad spend, fixed costs and other events recorded outside the order stream.
func (h *CostHandler) RecordCost(c *gin.Context) {
  var req costEventRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  event := &types.CostEvent{
    ShopDomain:   req.ShopDomain,
    CostType:     req.CostType,
    CostCategory: req.CostCategory,
    Amount:       req.Amount,
    OrderID:      req.OrderID,
    ProductID:    req.ProductID,
    CampaignID:   req.CampaignID,
    Description:  req.Description,
    Timestamp:    req.Timestamp,
  }
  if err := h.plSvc.RecordCost(c.Request.Context(), event); err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusCreated, gin.H{"cost_event_id": event.ID})
}
