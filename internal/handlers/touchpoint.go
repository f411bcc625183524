package handlers

import (
  "net/http"
  "time"
  "github.com/gin-gonic/gin"
  "github.com/profitlens/profitlens-backend/internal/logger"
  "github.com/profitlens/profitlens-backend/internal/services"
  "github.com/profitlens/profitlens-backend/internal/types"
)

type TouchpointHandler struct {
  log            *logger.Logger
  attributionSvc services.AttributionService
}

func NewTouchpointHandler(log *logger.Logger, asvc services.AttributionService) *TouchpointHandler {
  return &TouchpointHandler{
    log:            log.With("handler", "TouchpointHandler"),
    attributionSvc: asvc,
  }
}

type trackRequest struct {
  ShopDomain      string    `json:"shop_domain"`
  CustomerID      *string   `json:"customer_id"`
  SessionID       string    `json:"session_id"`
  Timestamp       time.Time `json:"timestamp"`
  Channel         string    `json:"channel"`
  Campaign        string    `json:"campaign"`
  Source          string    `json:"source"`
  Medium          string    `json:"medium"`
  DeviceType      string    `json:"device_type"`
  PageURL         string    `json:"page_url"`
  Referrer        string    `json:"referrer"`
  ConversionValue float64   `json:"conversion_value"`
  OrderID         string    `json:"order_id"`
}

// POST /api/track
// A touchpoint with conversion_value > 0 must carry order_id and triggers
// attribution for that order.
func (h *TouchpointHandler) Track(c *gin.Context) {
  var req trackRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  tp := &types.Touchpoint{
    ShopDomain:      req.ShopDomain,
    CustomerID:      req.CustomerID,
    SessionID:       req.SessionID,
    Timestamp:       req.Timestamp,
    Channel:         req.Channel,
    Campaign:        req.Campaign,
    Source:          req.Source,
    Medium:          req.Medium,
    DeviceType:      req.DeviceType,
    PageURL:         req.PageURL,
    Referrer:        req.Referrer,
    ConversionValue: req.ConversionValue,
    OrderID:         req.OrderID,
  }
  if err := h.attributionSvc.TrackTouchpoint(c.Request.Context(), tp); err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusCreated, gin.H{"touchpoint_id": tp.ID, "tracked": true})
}
