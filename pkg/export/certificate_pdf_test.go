package export

import (
	"strings"
	"testing"

	qr "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCertificate(t *testing.T) {
	exporter := NewPDFExporter()
	png, err := qr.Encode("https://certs.example.com/validate/PREN1ABCDE2345", qr.Medium, 256)
	require.NoError(t, err)

	out, err := exporter.RenderCertificate(CertificateDocument{
		StudentName:     "Ana Pérez",
		CourseName:      "Programación en Go",
		InstitutionName: "Academia Digital",
		CompletionDate:  "2026-03-14",
		Code:            "PREN1ABCDE2345",
		Grade:           "95",
		QRPNG:           png,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestRenderCertificateIncomplete(t *testing.T) {
	exporter := NewPDFExporter()

	_, err := exporter.RenderCertificate(CertificateDocument{StudentName: "Ana"})
	assert.Error(t, err)
}

func TestRenderCertificateWithoutQR(t *testing.T) {
	exporter := NewPDFExporter()

	out, err := exporter.RenderCertificate(CertificateDocument{
		StudentName:     "Ana Pérez",
		CourseName:      "Programación en Go",
		InstitutionName: "Academia Digital",
		CompletionDate:  "2026-03-14",
		Code:            "PREN1ABCDE2345",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}
