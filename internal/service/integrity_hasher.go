package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/certify-api/internal/models"
)

const hashFieldDelimiter = "|"

// IntegrityHasher seals certificates with a canonical SHA-256 digest over the
// core fields plus a deployment secret. The secret is the sole barrier
// against forging valid hashes and must be injected from configuration.
type IntegrityHasher struct {
	secret string
}

// NewIntegrityHasher constructs an IntegrityHasher with the given secret.
func NewIntegrityHasher(secret string) *IntegrityHasher {
	return &IntegrityHasher{secret: secret}
}

// Compute returns the lowercase hex digest binding the core fields. The
// completion date enters the canonical string as epoch milliseconds.
func (h *IntegrityHasher) Compute(studentName, courseName, certificateCode string, completionDate time.Time) string {
	canonical := strings.Join([]string{
		studentName,
		courseName,
		certificateCode,
		strconv.FormatInt(completionDate.UnixMilli(), 10),
		h.secret,
	}, hashFieldDelimiter)

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the stored verification hash matches the recomputed
// digest. A mismatch marks the record as compromised regardless of status.
func (h *IntegrityHasher) Verify(cert *models.Certificate) bool {
	if cert == nil {
		return false
	}
	expected := h.Compute(cert.StudentName, cert.CourseName, cert.CertificateCode, cert.CompletionDate)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(cert.VerificationHash)) == 1
}
