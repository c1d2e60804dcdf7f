package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/certify-api/internal/models"
	"github.com/noah-isme/certify-api/pkg/config"
	appErrors "github.com/noah-isme/certify-api/pkg/errors"
	"github.com/noah-isme/certify-api/pkg/export"
)

// CertificateStore describes the persistence layer required by
// CertificateService.
type CertificateStore interface {
	Create(ctx context.Context, cert *models.Certificate) error
	FindByCode(ctx context.Context, code string) (*models.Certificate, error)
	FindByID(ctx context.Context, id string) (*models.Certificate, error)
	UpdateStatus(ctx context.Context, id string, status models.CertificateStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error)
}

// QREncoder renders validation URLs into QR rasters.
type QREncoder interface {
	EncodePNG(payload string) ([]byte, error)
	EncodeDataURI(payload string) (string, error)
}

// IssueCertificateInput carries the fields needed to issue one certificate.
type IssueCertificateInput struct {
	StudentName     string                 `json:"student_name" validate:"required"`
	CourseName      string                 `json:"course_name" validate:"required"`
	CompletionDate  time.Time              `json:"completion_date" validate:"required"`
	CertificateType models.CertificateType `json:"certificate_type"`
	Grade           *float64               `json:"grade" validate:"omitempty,gte=0,lte=100"`
	InstructorName  string                 `json:"instructor_name"`
	CourseDuration  string                 `json:"course_duration"`
	IssuerEmail     string                 `json:"issuer_email" validate:"omitempty,email"`
	IssuerName      string                 `json:"issuer_name"`
}

// CertificateService owns the certificate lifecycle: issuance with sealing and
// QR generation, status transitions, lookups and printable rendering.
type CertificateService struct {
	store    CertificateStore
	codes    *CodeGenerator
	hasher   *IntegrityHasher
	qr       QREncoder
	audit    *AuditService
	metrics  *MetricsService
	pdf      *export.PDFExporter
	cfg      config.CertificatesConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCertificateService constructs a CertificateService.
func NewCertificateService(
	store CertificateStore,
	codes *CodeGenerator,
	hasher *IntegrityHasher,
	qr QREncoder,
	audit *AuditService,
	metrics *MetricsService,
	pdf *export.PDFExporter,
	cfg config.CertificatesConfig,
	logger *zap.Logger,
) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		store:    store,
		codes:    codes,
		hasher:   hasher,
		qr:       qr,
		audit:    audit,
		metrics:  metrics,
		pdf:      pdf,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}
}

// Issue validates the input, generates a code, seals the record and persists
// it. A QR encoding failure aborts the issuance before anything is written.
func (s *CertificateService) Issue(ctx context.Context, input IssueCertificateInput) (*models.Certificate, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if input.CertificateType == "" {
		input.CertificateType = models.TypeCompletion
	}
	if !models.ValidCertificateType(input.CertificateType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown certificate type %q", input.CertificateType))
	}

	now := time.Now().UTC()
	code := s.codes.Generate(input.CourseName, input.StudentName)
	hash := s.hasher.Compute(input.StudentName, input.CourseName, code, input.CompletionDate)
	validationURL := s.cfg.ValidationBaseURL + "/" + code

	qrDataURI, err := s.qr.EncodeDataURI(validationURL)
	if err != nil {
		s.logger.Error("qr encoding failed", zap.String("certificate_code", code), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrQREncoding.Code, appErrors.ErrQREncoding.Status, appErrors.ErrQREncoding.Message)
	}

	issuerEmail := input.IssuerEmail
	if issuerEmail == "" {
		issuerEmail = s.cfg.IssuerFallbackEmail
	}

	cert := &models.Certificate{
		StudentName:      input.StudentName,
		CourseName:       input.CourseName,
		CompletionDate:   input.CompletionDate,
		CertificateCode:  code,
		VerificationHash: hash,
		IssuedDate:       now,
		Grade:            input.Grade,
		InstitutionName:  s.cfg.InstitutionName,
		CertificateType:  input.CertificateType,
		Status:           models.StatusActive,
		QRCodeDataURI:    qrDataURI,
		Metadata: models.CertificateMetadata{
			IssuerEmail:      issuerEmail,
			IssuerName:       input.IssuerName,
			ValidationURL:    validationURL,
			SecurityFeatures: models.SecurityFeatures,
		},
	}
	if input.InstructorName != "" {
		cert.InstructorName = &input.InstructorName
	}
	if input.CourseDuration != "" {
		cert.CourseDuration = &input.CourseDuration
	}

	if err := s.store.Create(ctx, cert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist certificate")
	}

	if s.metrics != nil {
		s.metrics.RecordIssued()
	}
	s.logger.Info("certificate issued",
		zap.String("certificate_code", cert.CertificateCode),
		zap.String("course_name", cert.CourseName))
	return cert, nil
}

// Create issues a certificate on behalf of an authenticated actor and records
// the action in the audit trail.
func (s *CertificateService) Create(ctx context.Context, input IssueCertificateInput, actor string) (*models.Certificate, error) {
	cert, err := s.Issue(ctx, input)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &models.CertificateAuditEntry{
		CertificateID:   &cert.ID,
		CertificateCode: cert.CertificateCode,
		Action:          models.AuditActionCreated,
		PerformedBy:     actor,
		Source:          models.SourceAdmin,
	})
	return cert, nil
}

// Get fetches a certificate by id.
func (s *CertificateService) Get(ctx context.Context, id string) (*models.Certificate, error) {
	cert, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return cert, nil
}

// GetByCode fetches a certificate by its public code.
func (s *CertificateService) GetByCode(ctx context.Context, code string) (*models.Certificate, error) {
	cert, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return cert, nil
}

// List returns certificates matching the filter plus the total count.
func (s *CertificateService) List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error) {
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", filter.Status))
	}
	certs, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	return certs, total, nil
}

// Revoke marks a certificate as revoked and records who did it.
func (s *CertificateService) Revoke(ctx context.Context, id, reason, actor string) (*models.Certificate, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, id, models.StatusRevoked); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke certificate")
	}
	previous := cert.Status
	cert.Status = models.StatusRevoked

	details, _ := detailsJSON(map[string]string{
		"from":   string(previous),
		"to":     string(models.StatusRevoked),
		"reason": reason,
	})
	s.audit.Record(ctx, &models.CertificateAuditEntry{
		CertificateID:   &cert.ID,
		CertificateCode: cert.CertificateCode,
		Action:          models.AuditActionRevoked,
		PerformedBy:     actor,
		Source:          models.SourceAdmin,
		Details:         details,
	})
	return cert, nil
}

// UpdateStatus applies an explicit lifecycle transition, such as marking a
// certificate expired. Only active certificates can transition: revoked and
// expired are terminal here, a revoked or expired certificate must be
// reissued, never reinstated.
func (s *CertificateService) UpdateStatus(ctx context.Context, id string, status models.CertificateStatus, actor string) (*models.Certificate, error) {
	if !models.ValidStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
	}
	cert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cert.Status == status {
		return cert, nil
	}
	if cert.Status != models.StatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot change status of a %s certificate", cert.Status))
	}
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update certificate status")
	}
	previous := cert.Status
	cert.Status = status

	details, _ := detailsJSON(map[string]string{"from": string(previous), "to": string(status)})
	s.audit.Record(ctx, &models.CertificateAuditEntry{
		CertificateID:   &cert.ID,
		CertificateCode: cert.CertificateCode,
		Action:          models.AuditActionUpdated,
		PerformedBy:     actor,
		Source:          models.SourceAdmin,
		Details:         details,
	})
	return cert, nil
}

// Delete removes a certificate permanently. The audit trail keeps the record
// of its existence.
func (s *CertificateService) Delete(ctx context.Context, id, actor string) error {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete certificate")
	}
	s.audit.Record(ctx, &models.CertificateAuditEntry{
		CertificateCode: cert.CertificateCode,
		Action:          models.AuditActionDeleted,
		PerformedBy:     actor,
		Source:          models.SourceAdmin,
	})
	return nil
}

// History returns the audit trail for a certificate, newest first.
func (s *CertificateService) History(ctx context.Context, id string) ([]models.CertificateAuditEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.audit.History(ctx, id)
}

// RenderPDF produces the printable certificate for the given public code.
func (s *CertificateService) RenderPDF(ctx context.Context, code string) ([]byte, error) {
	cert, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	qrPNG, err := s.qr.EncodePNG(cert.Metadata.ValidationURL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrQREncoding.Code, appErrors.ErrQREncoding.Status, appErrors.ErrQREncoding.Message)
	}

	doc := export.CertificateDocument{
		StudentName:     cert.StudentName,
		CourseName:      cert.CourseName,
		InstitutionName: cert.InstitutionName,
		CompletionDate:  cert.CompletionDate.Format("2006-01-02"),
		Code:            cert.CertificateCode,
		QRPNG:           qrPNG,
	}
	if cert.InstructorName != nil {
		doc.InstructorName = *cert.InstructorName
	}
	if cert.Grade != nil {
		doc.Grade = strconv.FormatFloat(*cert.Grade, 'f', -1, 64)
	}

	pdfBytes, err := s.pdf.RenderCertificate(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate pdf")
	}
	return pdfBytes, nil
}

func detailsJSON(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}
