package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/profitlens/profitlens-backend/internal/logger"
  "github.com/profitlens/profitlens-backend/internal/services"
  "github.com/profitlens/profitlens-backend/internal/types"
)

type OrderHandler struct {
  log      *logger.Logger
  orderSvc services.OrderService
}

func NewOrderHandler(log *logger.Logger, osvc services.OrderService) *OrderHandler {
  return &OrderHandler{
    log:      log.With("handler", "OrderHandler"),
    orderSvc: osvc,
  }
}

// POST /api/orders
// One pass: conversion touchpoint, attribution across all models, customer
// profile, P&L delta.
func (h *OrderHandler) ProcessOrder(c *gin.Context) {
  var order types.Order
  if err := c.ShouldBindJSON(&order); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  delta, err := h.orderSvc.ProcessOrder(c.Request.Context(), &order)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusCreated, gin.H{"order_id": order.OrderID, "pl_delta": delta})
}
