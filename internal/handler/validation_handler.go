package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certify-api/internal/models"
	"github.com/noah-isme/certify-api/internal/service"
	appErrors "github.com/noah-isme/certify-api/pkg/errors"
	"github.com/noah-isme/certify-api/pkg/response"
)

// ValidationHandler exposes certificate validation endpoints.
type ValidationHandler struct {
	validations *service.ValidationService
}

// NewValidationHandler constructs ValidationHandler.
func NewValidationHandler(validations *service.ValidationService) *ValidationHandler {
	return &ValidationHandler{validations: validations}
}

// ValidatePublic godoc
// @Summary Validate a certificate code
// @Description Public validity check, no authentication required
// @Tags Validation
// @Produce json
// @Param code path string true "Certificate code"
// @Param source query string false "Channel: public or qr_scan"
// @Success 200 {object} response.Envelope
// @Router /validate/{code} [get]
func (h *ValidationHandler) ValidatePublic(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "certificate code required"))
		return
	}

	source := models.SourcePublic
	if c.Query("source") == string(models.SourceQRScan) {
		source = models.SourceQRScan
	}

	result, err := h.validations.Validate(c.Request.Context(), code, service.ValidationRequest{
		Source:    source,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ValidateAdmin godoc
// @Summary Validate a certificate code as an authenticated operator
// @Tags Validation
// @Produce json
// @Param code path string true "Certificate code"
// @Success 200 {object} response.Envelope
// @Router /certificates/code/{code}/validate [get]
func (h *ValidationHandler) ValidateAdmin(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "certificate code required"))
		return
	}

	result, err := h.validations.Validate(c.Request.Context(), code, service.ValidationRequest{
		Source:    models.SourceAdmin,
		Actor:     actorFromContext(c),
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
