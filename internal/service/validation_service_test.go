package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/certify-api/internal/models"
	"github.com/noah-isme/certify-api/pkg/config"
)

func newTestValidationService(store CertificateStore, auditRepo *mockAuditRepo) *ValidationService {
	audit := NewAuditService(auditRepo, nil, config.AuditConfig{}, zap.NewNop())
	return NewValidationService(store, NewIntegrityHasher("test-secret"), audit, nil, zap.NewNop())
}

func storedCertificate(t *testing.T, store *mockCertificateStore, status models.CertificateStatus) *models.Certificate {
	t.Helper()
	hasher := NewIntegrityHasher("test-secret")
	cert := &models.Certificate{
		StudentName:     "Ana Pérez",
		CourseName:      "Programación en Go",
		CertificateCode: "PREN1ABCDE2345",
		CompletionDate:  time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Status:          status,
	}
	cert.VerificationHash = hasher.Compute(cert.StudentName, cert.CourseName, cert.CertificateCode, cert.CompletionDate)
	require.NoError(t, store.Create(context.Background(), cert))
	return cert
}

func TestValidationServiceValid(t *testing.T) {
	store := newMockCertificateStore()
	cert := storedCertificate(t, store, models.StatusActive)
	auditRepo := &mockAuditRepo{}
	svc := newTestValidationService(store, auditRepo)

	result, err := svc.Validate(context.Background(), cert.CertificateCode, ValidationRequest{
		Source:    models.SourcePublic,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Equal(t, models.ValidationValid, result.Code)
	require.NotNil(t, result.Certificate)
	assert.Equal(t, cert.CertificateCode, result.Certificate.CertificateCode)

	require.Len(t, auditRepo.entries, 1)
	entry := auditRepo.entries[0]
	assert.Equal(t, models.AuditActionValidated, entry.Action)
	assert.Equal(t, models.AnonymousActor, entry.PerformedBy)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
	assert.Equal(t, models.SourcePublic, entry.Source)
}

func TestValidationServiceNotFound(t *testing.T) {
	auditRepo := &mockAuditRepo{}
	svc := newTestValidationService(newMockCertificateStore(), auditRepo)

	result, err := svc.Validate(context.Background(), "UNKNOWN123", ValidationRequest{})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, models.ValidationNotFound, result.Code)
	assert.Nil(t, result.Certificate)

	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, models.AuditActionValidationFailed, auditRepo.entries[0].Action)
	assert.Equal(t, "UNKNOWN123", auditRepo.entries[0].CertificateCode)
}

func TestValidationServiceCompromised(t *testing.T) {
	store := newMockCertificateStore()
	cert := storedCertificate(t, store, models.StatusActive)
	store.byID[cert.ID].StudentName = "Eve Mallory"
	auditRepo := &mockAuditRepo{}
	svc := newTestValidationService(store, auditRepo)

	result, err := svc.Validate(context.Background(), cert.CertificateCode, ValidationRequest{})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, models.ValidationCompromised, result.Code)
	assert.Nil(t, result.Certificate)
	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, models.AuditActionValidationFailed, auditRepo.entries[0].Action)
}

func TestValidationServiceRevokedBeatsStatus(t *testing.T) {
	store := newMockCertificateStore()
	cert := storedCertificate(t, store, models.StatusRevoked)
	auditRepo := &mockAuditRepo{}
	svc := newTestValidationService(store, auditRepo)

	result, err := svc.Validate(context.Background(), cert.CertificateCode, ValidationRequest{})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, models.ValidationRevoked, result.Code)
	require.NotNil(t, result.Certificate)
}

func TestValidationServiceExpired(t *testing.T) {
	store := newMockCertificateStore()
	cert := storedCertificate(t, store, models.StatusExpired)
	svc := newTestValidationService(store, &mockAuditRepo{})

	result, err := svc.Validate(context.Background(), cert.CertificateCode, ValidationRequest{})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, models.ValidationExpired, result.Code)
}

func TestValidationServiceIntegrityBeatsRevocation(t *testing.T) {
	store := newMockCertificateStore()
	cert := storedCertificate(t, store, models.StatusRevoked)
	store.byID[cert.ID].CourseName = "Another Course"
	svc := newTestValidationService(store, &mockAuditRepo{})

	result, err := svc.Validate(context.Background(), cert.CertificateCode, ValidationRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.ValidationCompromised, result.Code)
}

func TestValidationServiceIdempotent(t *testing.T) {
	store := newMockCertificateStore()
	cert := storedCertificate(t, store, models.StatusActive)
	auditRepo := &mockAuditRepo{}
	svc := newTestValidationService(store, auditRepo)

	first, err := svc.Validate(context.Background(), cert.CertificateCode, ValidationRequest{})
	require.NoError(t, err)
	second, err := svc.Validate(context.Background(), cert.CertificateCode, ValidationRequest{})
	require.NoError(t, err)

	assert.Equal(t, first.Code, second.Code)
	assert.Len(t, auditRepo.entries, 2)
	assert.Equal(t, models.StatusActive, store.byID[cert.ID].Status)
}
