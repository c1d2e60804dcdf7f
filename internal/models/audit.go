package models

import "time"

// AuditAction constants represent certificate lifecycle actions to be logged.
const (
	AuditActionCreated          = "created"
	AuditActionUpdated          = "updated"
	AuditActionDeleted          = "deleted"
	AuditActionRevoked          = "revoked"
	AuditActionValidated        = "validated"
	AuditActionValidationFailed = "validation_failed"
)

// ValidationSource identifies the channel a validation request arrived from.
type ValidationSource string

const (
	SourceAdmin  ValidationSource = "admin"
	SourcePublic ValidationSource = "public"
	SourceQRScan ValidationSource = "qr_scan"
)

// AnonymousActor is recorded for unauthenticated public validators.
const AnonymousActor = "anonymous"

// CertificateAuditEntry is one append-only audit trail record.
type CertificateAuditEntry struct {
	ID              string           `db:"id" json:"id"`
	CertificateID   *string          `db:"certificate_id" json:"certificate_id,omitempty"`
	CertificateCode string           `db:"certificate_code" json:"certificate_code"`
	Action          string           `db:"action" json:"action"`
	PerformedBy     string           `db:"performed_by" json:"performed_by"`
	PerformedAt     time.Time        `db:"performed_at" json:"performed_at"`
	IPAddress       string           `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent       string           `db:"user_agent" json:"user_agent,omitempty"`
	Source          ValidationSource `db:"source" json:"source,omitempty"`
	Details         []byte           `db:"details" json:"details,omitempty"`
}

// ValidationStats aggregates validation activity over a trailing window.
type ValidationStats struct {
	From          time.Time                `json:"from"`
	To            time.Time                `json:"to"`
	Total         int                      `json:"total"`
	Successful    int                      `json:"successful"`
	Failed        int                      `json:"failed"`
	DistinctCodes []string                 `json:"distinct_codes"`
	BySource      map[ValidationSource]int `json:"by_source"`
}

// IPActivity summarises validation attempts from a single IP address.
type IPActivity struct {
	IP           string  `json:"ip"`
	Attempts     int     `json:"attempts"`
	Failures     int     `json:"failures"`
	FailureRatio float64 `json:"failure_ratio"`
}

// AnomalyReport flags suspicious validation activity per source IP.
type AnomalyReport struct {
	From          time.Time    `json:"from"`
	To            time.Time    `json:"to"`
	SuspiciousIPs []string     `json:"suspicious_ips"`
	HighFrequency []IPActivity `json:"high_frequency"`
	HighFailure   []IPActivity `json:"high_failure"`
	GeneratedAt   time.Time    `json:"generated_at"`
}
