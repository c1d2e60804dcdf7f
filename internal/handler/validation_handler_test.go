package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/certify-api/internal/models"
	"github.com/noah-isme/certify-api/internal/service"
	"github.com/noah-isme/certify-api/pkg/config"
)

type stubCertificateStore struct {
	cert *models.Certificate
}

func (s *stubCertificateStore) Create(ctx context.Context, cert *models.Certificate) error {
	s.cert = cert
	if cert.ID == "" {
		cert.ID = "cert-1"
	}
	return nil
}

func (s *stubCertificateStore) FindByCode(ctx context.Context, code string) (*models.Certificate, error) {
	if s.cert == nil || s.cert.CertificateCode != code {
		return nil, sql.ErrNoRows
	}
	return s.cert, nil
}

func (s *stubCertificateStore) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	if s.cert == nil || s.cert.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.cert, nil
}

func (s *stubCertificateStore) UpdateStatus(ctx context.Context, id string, status models.CertificateStatus) error {
	if s.cert != nil && s.cert.ID == id {
		s.cert.Status = status
	}
	return nil
}

func (s *stubCertificateStore) Delete(ctx context.Context, id string) error {
	s.cert = nil
	return nil
}

func (s *stubCertificateStore) List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error) {
	if s.cert == nil {
		return nil, 0, nil
	}
	return []models.Certificate{*s.cert}, 1, nil
}

type stubAuditRepo struct {
	entries []models.CertificateAuditEntry
}

func (s *stubAuditRepo) Append(ctx context.Context, entry *models.CertificateAuditEntry) error {
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubAuditRepo) ListByCertificateID(ctx context.Context, certificateID string) ([]models.CertificateAuditEntry, error) {
	return s.entries, nil
}

func (s *stubAuditRepo) ListValidationsSince(ctx context.Context, since time.Time) ([]models.CertificateAuditEntry, error) {
	return s.entries, nil
}

func sealedStubStore(hasher *service.IntegrityHasher, status models.CertificateStatus) *stubCertificateStore {
	cert := &models.Certificate{
		ID:              "cert-1",
		StudentName:     "Ana Pérez",
		CourseName:      "Programación en Go",
		CertificateCode: "PREN1ABCDE2345",
		CompletionDate:  time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Status:          status,
	}
	cert.VerificationHash = hasher.Compute(cert.StudentName, cert.CourseName, cert.CertificateCode, cert.CompletionDate)
	return &stubCertificateStore{cert: cert}
}

func newValidationTestHandler(store *stubCertificateStore, auditRepo *stubAuditRepo) *ValidationHandler {
	audit := service.NewAuditService(auditRepo, nil, config.AuditConfig{}, zap.NewNop())
	validations := service.NewValidationService(store, service.NewIntegrityHasher("test-secret"), audit, nil, zap.NewNop())
	return NewValidationHandler(validations)
}

func TestValidationHandlerValid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hasher := service.NewIntegrityHasher("test-secret")
	auditRepo := &stubAuditRepo{}
	handler := newValidationTestHandler(sealedStubStore(hasher, models.StatusActive), auditRepo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/validate/PREN1ABCDE2345", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "code", Value: "PREN1ABCDE2345"}}

	handler.ValidatePublic(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Valid)
	assert.Equal(t, models.ValidationValid, envelope.Data.Code)
	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, models.AuditActionValidated, auditRepo.entries[0].Action)
}

func TestValidationHandlerNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newValidationTestHandler(&stubCertificateStore{}, &stubAuditRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/validate/UNKNOWN123", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "code", Value: "UNKNOWN123"}}

	handler.ValidatePublic(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.Valid)
	assert.Equal(t, models.ValidationNotFound, envelope.Data.Code)
}

func TestValidationHandlerQRSource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hasher := service.NewIntegrityHasher("test-secret")
	auditRepo := &stubAuditRepo{}
	handler := newValidationTestHandler(sealedStubStore(hasher, models.StatusActive), auditRepo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/validate/PREN1ABCDE2345?source=qr_scan", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "code", Value: "PREN1ABCDE2345"}}

	handler.ValidatePublic(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, models.SourceQRScan, auditRepo.entries[0].Source)
}

func TestValidationHandlerMissingCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newValidationTestHandler(&stubCertificateStore{}, &stubAuditRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/validate/", nil)
	c.Request = req

	handler.ValidatePublic(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
