package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certify-api/internal/models"
	"github.com/noah-isme/certify-api/internal/service"
	appErrors "github.com/noah-isme/certify-api/pkg/errors"
	"github.com/noah-isme/certify-api/pkg/response"
)

const completionDateLayout = "2006-01-02"

// CertificateHandler exposes certificate lifecycle endpoints.
type CertificateHandler struct {
	certificates *service.CertificateService
}

// NewCertificateHandler constructs CertificateHandler.
func NewCertificateHandler(certificates *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

type createCertificateRequest struct {
	StudentName     string   `json:"student_name" binding:"required"`
	CourseName      string   `json:"course_name" binding:"required"`
	CompletionDate  string   `json:"completion_date" binding:"required"`
	CertificateType string   `json:"certificate_type"`
	Grade           *float64 `json:"grade"`
	InstructorName  string   `json:"instructor_name"`
	CourseDuration  string   `json:"course_duration"`
	IssuerEmail     string   `json:"issuer_email"`
	IssuerName      string   `json:"issuer_name"`
}

type revokeCertificateRequest struct {
	Reason string `json:"reason"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Create godoc
// @Summary Issue a certificate
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body createCertificateRequest true "Certificate payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /certificates [post]
func (h *CertificateHandler) Create(c *gin.Context) {
	var req createCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	completionDate, err := time.Parse(completionDateLayout, req.CompletionDate)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("completion_date %q is not a valid date (expected YYYY-MM-DD)", req.CompletionDate)))
		return
	}

	input := service.IssueCertificateInput{
		StudentName:     strings.TrimSpace(req.StudentName),
		CourseName:      strings.TrimSpace(req.CourseName),
		CompletionDate:  completionDate,
		CertificateType: models.CertificateType(strings.ToLower(req.CertificateType)),
		Grade:           req.Grade,
		InstructorName:  strings.TrimSpace(req.InstructorName),
		CourseDuration:  strings.TrimSpace(req.CourseDuration),
		IssuerEmail:     strings.TrimSpace(req.IssuerEmail),
		IssuerName:      strings.TrimSpace(req.IssuerName),
	}

	cert, err := h.certificates.Create(c.Request.Context(), input, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cert)
}

// List godoc
// @Summary List certificates
// @Tags Certificates
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search by student, course or code"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	var filter models.CertificateFilter
	filter.Status = models.CertificateStatus(c.Query("status"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	certs, total, err := h.certificates.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certs, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get certificate detail
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Router /certificates/{id} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	cert, err := h.certificates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cert, nil)
}

// Revoke godoc
// @Summary Revoke a certificate
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Certificate ID"
// @Param payload body revokeCertificateRequest false "Revocation reason"
// @Success 200 {object} response.Envelope
// @Router /certificates/{id}/revoke [post]
func (h *CertificateHandler) Revoke(c *gin.Context) {
	var req revokeCertificateRequest
	_ = c.ShouldBindJSON(&req)

	cert, err := h.certificates.Revoke(c.Request.Context(), c.Param("id"), req.Reason, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cert, nil)
}

// UpdateStatus godoc
// @Summary Update certificate status
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Certificate ID"
// @Param payload body updateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /certificates/{id}/status [patch]
func (h *CertificateHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	cert, err := h.certificates.UpdateStatus(c.Request.Context(), c.Param("id"), models.CertificateStatus(strings.ToLower(req.Status)), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cert, nil)
}

// Delete godoc
// @Summary Delete a certificate
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 204
// @Router /certificates/{id} [delete]
func (h *CertificateHandler) Delete(c *gin.Context) {
	if err := h.certificates.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary Audit trail for a certificate
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Router /certificates/{id}/history [get]
func (h *CertificateHandler) History(c *gin.Context) {
	entries, err := h.certificates.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// DownloadPDF godoc
// @Summary Download the printable certificate
// @Tags Certificates
// @Produce application/pdf
// @Param code path string true "Certificate code"
// @Success 200 {file} binary
// @Router /certificates/code/{code}/pdf [get]
func (h *CertificateHandler) DownloadPDF(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	pdfBytes, err := h.certificates.RenderPDF(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", code))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
