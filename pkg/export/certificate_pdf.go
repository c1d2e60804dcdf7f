package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders printable certificate documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// CertificateDocument carries the fields rendered onto a printable certificate.
type CertificateDocument struct {
	StudentName     string
	CourseName      string
	InstitutionName string
	InstructorName  string
	CompletionDate  string
	Code            string
	Grade           string
	QRPNG           []byte
}

// RenderCertificate produces a landscape A4 certificate with the validation QR
// in the lower right corner.
func (e *PDFExporter) RenderCertificate(doc CertificateDocument) ([]byte, error) {
	if doc.StudentName == "" || doc.CourseName == "" || doc.Code == "" {
		return nil, fmt.Errorf("certificate document incomplete")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 26)
	pdf.CellFormat(0, 18, doc.InstitutionName, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 8, "certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 12, doc.StudentName, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 8, "has completed the course", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, doc.CourseName, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 7, fmt.Sprintf("Completion date: %s", doc.CompletionDate), "", 1, "C", false, 0, "")
	if doc.Grade != "" {
		pdf.CellFormat(0, 7, fmt.Sprintf("Grade: %s", doc.Grade), "", 1, "C", false, 0, "")
	}
	if doc.InstructorName != "" {
		pdf.CellFormat(0, 7, fmt.Sprintf("Instructor: %s", doc.InstructorName), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Certificate code: %s", doc.Code), "", 1, "C", false, 0, "")

	if len(doc.QRPNG) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("validation-qr", opts, bytes.NewReader(doc.QRPNG))
		pageW, pageH := pdf.GetPageSize()
		pdf.ImageOptions("validation-qr", pageW-55, pageH-55, 35, 35, false, opts, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
