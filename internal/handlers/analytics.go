package handlers

import (
  "fmt"
  "net/http"
  "time"
  "github.com/gin-gonic/gin"
  "github.com/profitlens/profitlens-backend/internal/logger"
  "github.com/profitlens/profitlens-backend/internal/services"
)

type AnalyticsHandler struct {
  log            *logger.Logger
  attributionSvc services.AttributionService
  plSvc          services.PLService
  revenueSvc     services.RevenueAnalyticsService
}

func NewAnalyticsHandler(log *logger.Logger, asvc services.AttributionService, psvc services.PLService, rsvc services.RevenueAnalyticsService) *AnalyticsHandler {
  return &AnalyticsHandler{
    log:            log.With("handler", "AnalyticsHandler"),
    attributionSvc: asvc,
    plSvc:          psvc,
    revenueSvc:     rsvc,
  }
}

// dateRange parses start_date/end_date (YYYY-MM-DD) query params, defaulting
// to the trailing 30 days. end_date is exclusive after the +24h bump so the
// named day is included.
func dateRange(c *gin.Context) (time.Time, time.Time, error) {
  now := time.Now().UTC()
  start := now.AddDate(0, 0, -30)
  end := now
  if raw := c.Query("start_date"); raw != "" {
    parsed, err := time.Parse("2006-01-02", raw)
    if err != nil {
      return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q", raw)
    }
    start = parsed
  }
  if raw := c.Query("end_date"); raw != "" {
    parsed, err := time.Parse("2006-01-02", raw)
    if err != nil {
      return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q", raw)
    }
    end = parsed.Add(24 * time.Hour)
  }
  return start, end, nil
}

func requireShop(c *gin.Context) (string, bool) {
  shop := c.Query("shop_domain")
  if shop == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "shop_domain is required"})
    return "", false
  }
  return shop, true
}

// GET /api/analytics/attribution?shop_domain=&start_date=&end_date=&model=
func (h *AnalyticsHandler) GetAttribution(c *gin.Context) {
  shop, ok := requireShop(c)
  if !ok {
    return
  }
  start, end, err := dateRange(c)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  analytics, err := h.attributionSvc.GetAttributionAnalytics(c.Request.Context(), shop, start, end, c.Query("model"))
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, analytics)
}

// POST /api/analytics/attribution/rebuild?shop_domain=&start_date=&end_date=
// Recomputes every model for every conversion in the range from touchpoints.
func (h *AnalyticsHandler) RebuildAttribution(c *gin.Context) {
  shop, ok := requireShop(c)
  if !ok {
    return
  }
  start, end, err := dateRange(c)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  rebuilt, err := h.attributionSvc.RebuildRange(c.Request.Context(), shop, start, end)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"orders_rebuilt": rebuilt})
}

// GET /api/analytics/pl?shop_domain=&timeframe=1h|6h|24h|7d
func (h *AnalyticsHandler) GetRealtimePL(c *gin.Context) {
  shop, ok := requireShop(c)
  if !ok {
    return
  }
  pl, err := h.plSvc.GetRealtimePL(c.Request.Context(), shop, c.Query("timeframe"))
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, pl)
}

// GET /api/analytics/revenue?shop_domain=&start_date=&end_date=&include_forecasts=&include_cohorts=
func (h *AnalyticsHandler) GetRevenue(c *gin.Context) {
  shop, ok := requireShop(c)
  if !ok {
    return
  }
  start, end, err := dateRange(c)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  includeForecasts := c.Query("include_forecasts") == "true"
  includeCohorts := c.Query("include_cohorts") == "true"
  analytics, err := h.revenueSvc.GetRevenueAnalytics(c.Request.Context(), shop, start, end, includeForecasts, includeCohorts)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, analytics)
}
