package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  apperrors "github.com/profitlens/profitlens-backend/internal/pkg/errors"
)

// respondError maps the service sentinels onto HTTP statuses; anything
// unrecognized is a 500.
func respondError(c *gin.Context, err error) {
  status := http.StatusInternalServerError
  switch {
  case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrModelUnknown):
    status = http.StatusBadRequest
  case errors.Is(err, apperrors.ErrNotFound):
    status = http.StatusNotFound
  }
  c.JSON(status, gin.H{"error": err.Error()})
}
