package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CertificateStatus is the lifecycle state of an issued certificate.
type CertificateStatus string

const (
	StatusActive  CertificateStatus = "active"
	StatusRevoked CertificateStatus = "revoked"
	StatusExpired CertificateStatus = "expired"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s CertificateStatus) bool {
	switch s {
	case StatusActive, StatusRevoked, StatusExpired:
		return true
	}
	return false
}

// CertificateType classifies what the certificate attests.
type CertificateType string

const (
	TypeCompletion    CertificateType = "completion"
	TypeAchievement   CertificateType = "achievement"
	TypeParticipation CertificateType = "participation"
)

// ValidCertificateType reports whether t is a known certificate type.
func ValidCertificateType(t CertificateType) bool {
	switch t {
	case TypeCompletion, TypeAchievement, TypeParticipation:
		return true
	}
	return false
}

// SecurityFeatures lists the protections active on every issued certificate.
var SecurityFeatures = []string{
	"hash_verification",
	"qr_validation",
	"timestamp_verification",
	"unique_code",
}

// CertificateMetadata holds issuance context stored alongside the record.
type CertificateMetadata struct {
	IssuerEmail      string   `json:"issuer_email"`
	IssuerName       string   `json:"issuer_name,omitempty"`
	ValidationURL    string   `json:"validation_url"`
	SecurityFeatures []string `json:"security_features"`
}

// Value implements driver.Valuer so the metadata persists as JSONB.
func (m CertificateMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *CertificateMetadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = CertificateMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("unsupported metadata source %T", src)
}

// Certificate represents one issued, sealed certificate record.
type Certificate struct {
	ID               string              `db:"id" json:"id"`
	StudentName      string              `db:"student_name" json:"student_name"`
	CourseName       string              `db:"course_name" json:"course_name"`
	CompletionDate   time.Time           `db:"completion_date" json:"completion_date"`
	CertificateCode  string              `db:"certificate_code" json:"certificate_code"`
	VerificationHash string              `db:"verification_hash" json:"verification_hash"`
	IssuedDate       time.Time           `db:"issued_date" json:"issued_date"`
	Grade            *float64            `db:"grade" json:"grade,omitempty"`
	InstructorName   *string             `db:"instructor_name" json:"instructor_name,omitempty"`
	CourseDuration   *string             `db:"course_duration" json:"course_duration,omitempty"`
	InstitutionName  string              `db:"institution_name" json:"institution_name"`
	CertificateType  CertificateType     `db:"certificate_type" json:"certificate_type"`
	Status           CertificateStatus   `db:"status" json:"status"`
	QRCodeDataURI    string              `db:"qr_code_data_uri" json:"qr_code_data_uri"`
	Metadata         CertificateMetadata `db:"metadata" json:"metadata"`
}

// CertificateFilter captures listing criteria.
type CertificateFilter struct {
	Status   CertificateStatus
	Search   string
	Page     int
	PageSize int
}

// ValidationResultCode classifies a validation outcome.
type ValidationResultCode string

const (
	ValidationValid       ValidationResultCode = "valid"
	ValidationNotFound    ValidationResultCode = "not_found"
	ValidationCompromised ValidationResultCode = "compromised"
	ValidationRevoked     ValidationResultCode = "revoked"
	ValidationExpired     ValidationResultCode = "expired"
)

// ValidationResult is the public validity report for a certificate code.
type ValidationResult struct {
	Valid       bool                 `json:"valid"`
	Code        ValidationResultCode `json:"code"`
	Reason      string               `json:"reason,omitempty"`
	Certificate *Certificate         `json:"certificate,omitempty"`
	CheckedAt   time.Time            `json:"checked_at"`
}
