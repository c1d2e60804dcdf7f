package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certify-api/internal/service"
	"github.com/noah-isme/certify-api/pkg/response"
)

// AuditHandler exposes validation statistics and anomaly views.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ValidationStats godoc
// @Summary Validation statistics
// @Tags Audit
// @Produce json
// @Param days query int false "Window size in days"
// @Success 200 {object} response.Envelope
// @Router /audit/validation-stats [get]
func (h *AuditHandler) ValidationStats(c *gin.Context) {
	var window time.Duration
	if days, err := strconv.Atoi(c.Query("days")); err == nil && days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}
	if c.Query("refresh") == "true" {
		h.audit.InvalidateCached(c.Request.Context())
	}

	stats, err := h.audit.ValidationStats(c.Request.Context(), window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Anomalies godoc
// @Summary Suspicious validation activity
// @Tags Audit
// @Produce json
// @Param hours query int false "Window size in hours"
// @Success 200 {object} response.Envelope
// @Router /audit/anomalies [get]
func (h *AuditHandler) Anomalies(c *gin.Context) {
	var window time.Duration
	if hours, err := strconv.Atoi(c.Query("hours")); err == nil && hours > 0 {
		window = time.Duration(hours) * time.Hour
	}
	if c.Query("refresh") == "true" {
		h.audit.InvalidateCached(c.Request.Context())
	}

	report, err := h.audit.DetectAnomalies(c.Request.Context(), window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
