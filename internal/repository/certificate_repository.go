package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/certify-api/internal/models"
)

// CertificateRepository manages persistence for certificate records.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs a CertificateRepository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Create inserts a new certificate record and assigns its id.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	const query = `INSERT INTO certificates
        (id, student_name, course_name, completion_date, certificate_code, verification_hash,
         issued_date, grade, instructor_name, course_duration, institution_name,
         certificate_type, status, qr_code_data_uri, metadata)
        VALUES (:id, :student_name, :course_name, :completion_date, :certificate_code, :verification_hash,
         :issued_date, :grade, :instructor_name, :course_duration, :institution_name,
         :certificate_type, :status, :qr_code_data_uri, :metadata)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// FindByCode fetches a certificate by its public code.
func (r *CertificateRepository) FindByCode(ctx context.Context, code string) (*models.Certificate, error) {
	const query = `SELECT id, student_name, course_name, completion_date, certificate_code, verification_hash,
        issued_date, grade, instructor_name, course_duration, institution_name,
        certificate_type, status, qr_code_data_uri, metadata
        FROM certificates WHERE certificate_code = $1`
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, code); err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindByID fetches a certificate by its store-assigned id.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	const query = `SELECT id, student_name, course_name, completion_date, certificate_code, verification_hash,
        issued_date, grade, instructor_name, course_duration, institution_name,
        certificate_type, status, qr_code_data_uri, metadata
        FROM certificates WHERE id = $1`
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		return nil, err
	}
	return &cert, nil
}

// UpdateStatus sets the lifecycle status of a certificate.
func (r *CertificateRepository) UpdateStatus(ctx context.Context, id string, status models.CertificateStatus) error {
	const query = `UPDATE certificates SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update certificate status: %w", err)
	}
	return nil
}

// Delete removes a certificate permanently. History survives only in the
// audit trail.
func (r *CertificateRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM certificates WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	return nil
}

// List returns certificates ordered by issuance date, newest first.
func (r *CertificateRepository) List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error) {
	base := "FROM certificates"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(student_name) LIKE $%d OR LOWER(course_name) LIKE $%d OR certificate_code = $%d)",
			len(args)+1, len(args)+1, len(args)+2))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%", strings.ToUpper(filter.Search))
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, student_name, course_name, completion_date, certificate_code, verification_hash,
        issued_date, grade, instructor_name, course_duration, institution_name,
        certificate_type, status, qr_code_data_uri, metadata
        %s ORDER BY issued_date DESC LIMIT %d OFFSET %d`, base, size, offset)

	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}
	return certs, total, nil
}
