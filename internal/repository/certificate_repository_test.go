package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/certify-api/internal/models"
)

func newCertificateMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func certificateRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_name", "course_name", "completion_date", "certificate_code", "verification_hash",
		"issued_date", "grade", "instructor_name", "course_duration", "institution_name",
		"certificate_type", "status", "qr_code_data_uri", "metadata",
	}).AddRow(
		"cert-1", "Ana Pérez", "Programación en Go", time.Now(), "PREN1ABCDE2345", "abc123",
		time.Now(), nil, nil, nil, "Academia Digital",
		"completion", "active", "data:image/png;base64,xxx", []byte(`{"issuer_email":"a@b.c","validation_url":"https://x/y","security_features":[]}`),
	)
}

func TestCertificateRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newCertificateMock(t)
	defer cleanup()
	repo := NewCertificateRepository(db)

	mock.ExpectExec("INSERT INTO certificates").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	cert := &models.Certificate{
		StudentName:     "Ana Pérez",
		CourseName:      "Programación en Go",
		CompletionDate:  time.Now(),
		CertificateCode: "PREN1ABCDE2345",
		Status:          models.StatusActive,
		CertificateType: models.TypeCompletion,
	}
	err := repo.Create(context.Background(), cert)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepositoryFindByCode(t *testing.T) {
	db, mock, cleanup := newCertificateMock(t)
	defer cleanup()
	repo := NewCertificateRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM certificates WHERE certificate_code").
		WithArgs("PREN1ABCDE2345").
		WillReturnRows(certificateRows())

	cert, err := repo.FindByCode(context.Background(), "PREN1ABCDE2345")
	require.NoError(t, err)
	assert.Equal(t, "Ana Pérez", cert.StudentName)
	assert.Equal(t, models.StatusActive, cert.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepositoryFindByCodeMissing(t *testing.T) {
	db, mock, cleanup := newCertificateMock(t)
	defer cleanup()
	repo := NewCertificateRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM certificates WHERE certificate_code").
		WithArgs("MISSING").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCode(context.Background(), "MISSING")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newCertificateMock(t)
	defer cleanup()
	repo := NewCertificateRepository(db)

	mock.ExpectExec("UPDATE certificates SET status").
		WithArgs("cert-1", models.StatusRevoked).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "cert-1", models.StatusRevoked)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateRepositoryList(t *testing.T) {
	db, mock, cleanup := newCertificateMock(t)
	defer cleanup()
	repo := NewCertificateRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM certificates WHERE 1=1 AND status = (.+) ORDER BY issued_date DESC").
		WithArgs(models.StatusActive).
		WillReturnRows(certificateRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM certificates WHERE 1=1 AND status =`).
		WithArgs(models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	certs, total, err := repo.List(context.Background(), models.CertificateFilter{Status: models.StatusActive})
	require.NoError(t, err)
	assert.Len(t, certs, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
