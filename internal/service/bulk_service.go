package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/certify-api/internal/models"
	"github.com/noah-isme/certify-api/pkg/config"
	appErrors "github.com/noah-isme/certify-api/pkg/errors"
	"github.com/noah-isme/certify-api/pkg/export"
	"github.com/noah-isme/certify-api/pkg/storage"
)

const bulkDateLayout = "2006-01-02"

var bulkRequiredColumns = []string{"student_name", "course_name", "completion_date"}

// BulkService ingests CSV uploads of certificate rows. Rows are processed
// strictly in input order and each failure is isolated to its own row.
type BulkService struct {
	issuer   *CertificateService
	audit    *AuditService
	metrics  *MetricsService
	csv      *export.CSVExporter
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	cfg      config.BulkConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewBulkService constructs a BulkService.
func NewBulkService(
	issuer *CertificateService,
	audit *AuditService,
	metrics *MetricsService,
	csvExporter *export.CSVExporter,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	cfg config.BulkConfig,
	logger *zap.Logger,
) *BulkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	return &BulkService{
		issuer:   issuer,
		audit:    audit,
		metrics:  metrics,
		csv:      csvExporter,
		store:    store,
		signer:   signer,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}
}

// ParseCSV reads the upload into loosely-typed rows. The header row is
// mandatory and matched by column name, so column order is free. Row numbers
// are 1-based over the data rows.
func (s *BulkService) ParseCSV(r io.Reader) ([]models.BulkRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBulkInput.Code, appErrors.ErrBulkInput.Status, "missing or unreadable header row")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		index[key] = i
	}
	for _, required := range bulkRequiredColumns {
		if _, ok := index[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrBulkInput, fmt.Sprintf("missing required column %q", required))
		}
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []models.BulkRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrBulkInput.Code, appErrors.ErrBulkInput.Status, fmt.Sprintf("unreadable csv near row %d", len(rows)+1))
		}
		rows = append(rows, models.BulkRow{
			RowNumber:       len(rows) + 1,
			StudentName:     field(record, "student_name"),
			CourseName:      field(record, "course_name"),
			CompletionDate:  field(record, "completion_date"),
			CertificateType: field(record, "certificate_type"),
			InstructorName:  field(record, "instructor_name"),
			CourseDuration:  field(record, "course_duration"),
			Grade:           field(record, "grade"),
			IssuerEmail:     field(record, "issuer_email"),
		})
		if len(rows) > s.cfg.MaxRows {
			return nil, appErrors.Clone(appErrors.ErrBulkInput, fmt.Sprintf("upload exceeds the limit of %d rows", s.cfg.MaxRows))
		}
	}

	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrBulkInput, "upload contains no data rows")
	}
	return rows, nil
}

// Ingest issues certificates for the parsed rows, one at a time, in input
// order. A failed row never stops the run; its error is collected under the
// original row number. One summary entry lands in the audit trail per run.
func (s *BulkService) Ingest(ctx context.Context, rows []models.BulkRow, actor string, progress models.BulkProgressFunc) (*models.BulkResult, error) {
	result := &models.BulkResult{
		Errors:    []models.BulkRowError{},
		Successes: []models.BulkRowSuccess{},
	}
	total := len(rows)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bulk ingestion cancelled")
		}

		result.TotalProcessed++
		input, err := s.buildInput(row)
		var cert *models.Certificate
		if err == nil {
			cert, err = s.issuer.Issue(ctx, input)
		}

		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, models.BulkRowError{
				Row:         row.RowNumber,
				StudentName: row.StudentName,
				Error:       err.Error(),
			})
			if s.metrics != nil {
				s.metrics.RecordBulkRow("failed")
			}
		} else {
			result.Successful++
			result.Successes = append(result.Successes, models.BulkRowSuccess{
				Row:         row.RowNumber,
				StudentName: cert.StudentName,
				Code:        cert.CertificateCode,
			})
			if s.metrics != nil {
				s.metrics.RecordBulkRow("success")
			}
		}

		emitProgress(progress, i+1, total, "processing", fmt.Sprintf("processed row %d of %d (%s)", i+1, total, row.StudentName))

		if s.cfg.RowDelay > 0 && i < total-1 {
			time.Sleep(s.cfg.RowDelay)
		}
	}

	emitProgress(progress, total, total, "completed",
		fmt.Sprintf("%d issued, %d failed", result.Successful, result.Failed))

	details, _ := detailsJSON(map[string]int{
		"total_processed": result.TotalProcessed,
		"successful":      result.Successful,
		"failed":          result.Failed,
	})
	s.audit.Record(ctx, &models.CertificateAuditEntry{
		Action:      models.AuditActionCreated,
		PerformedBy: actor,
		Source:      models.SourceAdmin,
		Details:     details,
	})

	s.logger.Info("bulk ingestion finished",
		zap.Int("total", result.TotalProcessed),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed))
	return result, nil
}

// buildInput validates one loose row and converts it into a typed issuance
// input.
func (s *BulkService) buildInput(row models.BulkRow) (IssueCertificateInput, error) {
	var input IssueCertificateInput

	if row.StudentName == "" {
		return input, fmt.Errorf("student_name is required")
	}
	if row.CourseName == "" {
		return input, fmt.Errorf("course_name is required")
	}
	if row.CompletionDate == "" {
		return input, fmt.Errorf("completion_date is required")
	}

	completionDate, err := time.Parse(bulkDateLayout, row.CompletionDate)
	if err != nil {
		return input, fmt.Errorf("completion_date %q is not a valid date (expected YYYY-MM-DD)", row.CompletionDate)
	}

	certType := models.CertificateType(strings.ToLower(row.CertificateType))
	if certType == "" {
		certType = models.TypeCompletion
	}
	if !models.ValidCertificateType(certType) {
		return input, fmt.Errorf("certificate_type %q is not supported", row.CertificateType)
	}

	var grade *float64
	if row.Grade != "" {
		value, err := strconv.ParseFloat(row.Grade, 64)
		if err != nil {
			return input, fmt.Errorf("grade %q is not a number", row.Grade)
		}
		if value < 0 || value > 100 {
			return input, fmt.Errorf("grade %v is outside the range 0-100", value)
		}
		grade = &value
	}

	if row.IssuerEmail != "" {
		if err := s.validate.Var(row.IssuerEmail, "email"); err != nil {
			return input, fmt.Errorf("issuer_email %q is not a valid email", row.IssuerEmail)
		}
	}

	input = IssueCertificateInput{
		StudentName:     row.StudentName,
		CourseName:      row.CourseName,
		CompletionDate:  completionDate,
		CertificateType: certType,
		Grade:           grade,
		InstructorName:  row.InstructorName,
		CourseDuration:  row.CourseDuration,
		IssuerEmail:     row.IssuerEmail,
	}
	return input, nil
}

// GenerateReports renders the success and error reports as CSV, stores them
// and returns signed download links. Either report is skipped when it would
// be empty.
func (s *BulkService) GenerateReports(result *models.BulkResult, basePath string) (*models.BulkReportLinks, error) {
	if result == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bulk result required")
	}
	links := &models.BulkReportLinks{}
	runID := uuid.NewString()

	if len(result.Successes) > 0 {
		rows := make([]map[string]string, 0, len(result.Successes))
		for _, success := range result.Successes {
			rows = append(rows, map[string]string{
				"row":              strconv.Itoa(success.Row),
				"student_name":     success.StudentName,
				"status":           "issued",
				"certificate_code": success.Code,
			})
		}
		token, err := s.storeReport(runID, "success", export.Dataset{
			Headers: []string{"row", "student_name", "status", "certificate_code"},
			Rows:    rows,
			Summary: [][2]string{
				{"successful", strconv.Itoa(result.Successful)},
				{"generated_at", time.Now().UTC().Format(time.RFC3339)},
			},
		})
		if err != nil {
			return nil, err
		}
		links.SuccessReportURL = basePath + "/" + token
	}

	if len(result.Errors) > 0 {
		rows := make([]map[string]string, 0, len(result.Errors))
		for _, rowErr := range result.Errors {
			rows = append(rows, map[string]string{
				"row":          strconv.Itoa(rowErr.Row),
				"student_name": rowErr.StudentName,
				"error":        rowErr.Error,
			})
		}
		token, err := s.storeReport(runID, "errors", export.Dataset{
			Headers: []string{"row", "student_name", "error"},
			Rows:    rows,
			Summary: [][2]string{
				{"failed", strconv.Itoa(result.Failed)},
				{"generated_at", time.Now().UTC().Format(time.RFC3339)},
			},
		})
		if err != nil {
			return nil, err
		}
		links.ErrorReportURL = basePath + "/" + token
	}

	return links, nil
}

// ResolveDownload validates a signed report token and opens the underlying
// file.
func (s *BulkService) ResolveDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired report token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report no longer available")
	}
	return file, path.Base(relPath), nil
}

func (s *BulkService) storeReport(runID, kind string, data export.Dataset) (string, error) {
	payload, err := s.csv.Render(data)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render bulk report")
	}
	relPath := fmt.Sprintf("bulk/%s/%s.csv", runID, kind)
	if _, err := s.store.Save(relPath, payload); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store bulk report")
	}
	token, _, err := s.signer.Generate(runID, relPath)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign bulk report link")
	}
	return token, nil
}

func emitProgress(progress models.BulkProgressFunc, current, total int, status, message string) {
	if progress == nil {
		return
	}
	percent := 0.0
	if total > 0 {
		percent = float64(current) / float64(total) * 100
	}
	progress(models.BulkProgress{
		Current: current,
		Total:   total,
		Percent: percent,
		Status:  status,
		Message: message,
	})
}
