package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/certify-api/internal/models"
	appErrors "github.com/noah-isme/certify-api/pkg/errors"
)

// ValidationRequest carries the channel context of one validation attempt.
type ValidationRequest struct {
	Source    models.ValidationSource
	Actor     string
	IPAddress string
	UserAgent string
}

// ValidationService answers whether a certificate code is genuine. Every
// attempt is audited, successful or not, so the anomaly views see the full
// picture.
type ValidationService struct {
	store   CertificateStore
	hasher  *IntegrityHasher
	audit   *AuditService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewValidationService constructs a ValidationService.
func NewValidationService(store CertificateStore, hasher *IntegrityHasher, audit *AuditService, metrics *MetricsService, logger *zap.Logger) *ValidationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationService{store: store, hasher: hasher, audit: audit, metrics: metrics, logger: logger}
}

// Validate checks a certificate code and classifies the outcome. Checks run in
// a fixed order: existence, integrity, then lifecycle status. Validation is
// read-only with respect to the certificate itself and may be repeated freely.
func (s *ValidationService) Validate(ctx context.Context, code string, req ValidationRequest) (*models.ValidationResult, error) {
	if req.Source == "" {
		req.Source = models.SourcePublic
	}
	if req.Actor == "" {
		req.Actor = models.AnonymousActor
	}
	now := time.Now().UTC()

	cert, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			result := &models.ValidationResult{
				Valid:     false,
				Code:      models.ValidationNotFound,
				Reason:    "no certificate exists for this code",
				CheckedAt: now,
			}
			s.recordAttempt(ctx, nil, code, result, req)
			return result, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}

	result := s.classify(cert, now)
	s.recordAttempt(ctx, cert, code, result, req)
	return result, nil
}

func (s *ValidationService) classify(cert *models.Certificate, now time.Time) *models.ValidationResult {
	result := &models.ValidationResult{CheckedAt: now}

	switch {
	case !s.hasher.Verify(cert):
		result.Code = models.ValidationCompromised
		result.Reason = "stored data does not match its verification hash"
	case cert.Status == models.StatusRevoked:
		result.Code = models.ValidationRevoked
		result.Reason = "certificate has been revoked by the institution"
		result.Certificate = cert
	case cert.Status == models.StatusExpired:
		result.Code = models.ValidationExpired
		result.Reason = "certificate has expired"
		result.Certificate = cert
	default:
		result.Valid = true
		result.Code = models.ValidationValid
		result.Certificate = cert
	}
	return result
}

func (s *ValidationService) recordAttempt(ctx context.Context, cert *models.Certificate, code string, result *models.ValidationResult, req ValidationRequest) {
	action := models.AuditActionValidationFailed
	if result.Valid {
		action = models.AuditActionValidated
	}

	entry := &models.CertificateAuditEntry{
		CertificateCode: code,
		Action:          action,
		PerformedBy:     req.Actor,
		IPAddress:       req.IPAddress,
		UserAgent:       req.UserAgent,
		Source:          req.Source,
	}
	if cert != nil {
		entry.CertificateID = &cert.ID
	}
	if details, err := detailsJSON(map[string]string{"result": string(result.Code)}); err == nil {
		entry.Details = details
	}
	s.audit.Record(ctx, entry)

	if s.metrics != nil {
		s.metrics.RecordValidation(string(result.Code), string(req.Source))
	}
}
