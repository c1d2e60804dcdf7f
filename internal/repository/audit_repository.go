package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/certify-api/internal/models"
)

// AuditRepository persists the append-only certificate audit trail. Entries
// are never updated or deleted by normal operation.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *models.CertificateAuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = time.Now().UTC()
	}
	const query = `INSERT INTO certificate_audit_logs
        (id, certificate_id, certificate_code, action, performed_by, performed_at,
         ip_address, user_agent, source, details)
        VALUES (:id, :certificate_id, :certificate_code, :action, :performed_by, :performed_at,
         :ip_address, :user_agent, :source, :details)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByCertificateID returns the full history for a certificate, newest first.
func (r *AuditRepository) ListByCertificateID(ctx context.Context, certificateID string) ([]models.CertificateAuditEntry, error) {
	const query = `SELECT id, certificate_id, certificate_code, action, performed_by, performed_at,
        ip_address, user_agent, source, details
        FROM certificate_audit_logs WHERE certificate_id = $1 ORDER BY performed_at DESC`
	var entries []models.CertificateAuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, certificateID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// ListValidationsSince returns validation attempts recorded after the cutoff,
// oldest first. Both successful and failed attempts are included.
func (r *AuditRepository) ListValidationsSince(ctx context.Context, since time.Time) ([]models.CertificateAuditEntry, error) {
	const query = `SELECT id, certificate_id, certificate_code, action, performed_by, performed_at,
        ip_address, user_agent, source, details
        FROM certificate_audit_logs
        WHERE action IN ($1, $2) AND performed_at >= $3
        ORDER BY performed_at ASC`
	var entries []models.CertificateAuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, models.AuditActionValidated, models.AuditActionValidationFailed, since); err != nil {
		return nil, fmt.Errorf("list validation entries: %w", err)
	}
	return entries, nil
}
