package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/certify-api/internal/models"
	"github.com/noah-isme/certify-api/internal/service"
	appErrors "github.com/noah-isme/certify-api/pkg/errors"
	"github.com/noah-isme/certify-api/pkg/response"
)

// BulkHandler exposes bulk certificate upload endpoints.
type BulkHandler struct {
	bulk            *service.BulkService
	reportsBasePath string
	logger          *zap.Logger
}

// NewBulkHandler constructs BulkHandler. reportsBasePath is the public route
// prefix download tokens are appended to.
func NewBulkHandler(bulk *service.BulkService, reportsBasePath string, logger *zap.Logger) *BulkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkHandler{bulk: bulk, reportsBasePath: reportsBasePath, logger: logger}
}

type bulkUploadResponse struct {
	Result  *models.BulkResult      `json:"result"`
	Reports *models.BulkReportLinks `json:"reports,omitempty"`
}

// Upload godoc
// @Summary Bulk upload certificates from CSV
// @Tags Bulk
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file with certificate rows"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /certificates/bulk [post]
func (h *BulkHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBulkInput, "csv file upload required under field \"file\""))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBulkInput.Code, appErrors.ErrBulkInput.Status, "unable to read uploaded file"))
		return
	}
	defer file.Close()

	rows, err := h.bulk.ParseCSV(file)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.bulk.Ingest(c.Request.Context(), rows, actorFromContext(c), nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := bulkUploadResponse{Result: result}
	reports, err := h.bulk.GenerateReports(result, h.reportsBasePath)
	if err != nil {
		h.logger.Warn("bulk report generation failed", zap.Error(err))
	} else {
		payload.Reports = reports
	}

	response.JSON(c, http.StatusOK, payload, nil)
}

// DownloadReport godoc
// @Summary Download a bulk ingestion report
// @Tags Bulk
// @Produce text/csv
// @Param token path string true "Signed report token"
// @Success 200 {file} binary
// @Router /certificates/bulk/reports/{token} [get]
func (h *BulkHandler) DownloadReport(c *gin.Context) {
	file, name, err := h.bulk.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
