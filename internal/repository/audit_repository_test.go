package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/certify-api/internal/models"
)

func newAuditMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAuditRepositoryAppendDefaults(t *testing.T) {
	db, mock, cleanup := newAuditMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO certificate_audit_logs").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.CertificateAuditEntry{
		CertificateCode: "PREN1ABCDE2345",
		Action:          models.AuditActionValidated,
		PerformedBy:     models.AnonymousActor,
	}
	err := repo.Append(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.PerformedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListValidationsSince(t *testing.T) {
	db, mock, cleanup := newAuditMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	since := time.Now().Add(-24 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "certificate_id", "certificate_code", "action", "performed_by", "performed_at",
		"ip_address", "user_agent", "source", "details",
	}).AddRow("log-1", nil, "PREN1ABCDE2345", models.AuditActionValidationFailed, "anonymous", time.Now(),
		"10.0.0.1", "curl/8.0", "public", nil)

	mock.ExpectQuery("SELECT (.+) FROM certificate_audit_logs WHERE action IN (.+) AND performed_at >=").
		WithArgs(models.AuditActionValidated, models.AuditActionValidationFailed, since).
		WillReturnRows(rows)

	entries, err := repo.ListValidationsSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionValidationFailed, entries[0].Action)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListByCertificateID(t *testing.T) {
	db, mock, cleanup := newAuditMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	certID := "cert-1"
	rows := sqlmock.NewRows([]string{
		"id", "certificate_id", "certificate_code", "action", "performed_by", "performed_at",
		"ip_address", "user_agent", "source", "details",
	}).AddRow("log-2", certID, "PREN1ABCDE2345", models.AuditActionCreated, "admin@academia.example", time.Now(),
		"", "", "admin", nil)

	mock.ExpectQuery("SELECT (.+) FROM certificate_audit_logs WHERE certificate_id").
		WithArgs(certID).
		WillReturnRows(rows)

	entries, err := repo.ListByCertificateID(context.Background(), certID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionCreated, entries[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}
