package models

// BulkRow is one loosely-typed data row from a bulk upload. RowNumber is
// 1-based over the data rows, the header row excluded.
type BulkRow struct {
	RowNumber       int    `json:"row_number"`
	StudentName     string `json:"student_name"`
	CourseName      string `json:"course_name"`
	CompletionDate  string `json:"completion_date"`
	CertificateType string `json:"certificate_type,omitempty"`
	InstructorName  string `json:"instructor_name,omitempty"`
	CourseDuration  string `json:"course_duration,omitempty"`
	Grade           string `json:"grade,omitempty"`
	IssuerEmail     string `json:"issuer_email,omitempty"`
}

// BulkRowError records one failed row, indexed back to the input order.
type BulkRowError struct {
	Row         int    `json:"row"`
	StudentName string `json:"student_name"`
	Error       string `json:"error"`
}

// BulkRowSuccess records one issued row with the resulting certificate code.
type BulkRowSuccess struct {
	Row         int    `json:"row"`
	StudentName string `json:"student_name"`
	Code        string `json:"code"`
}

// BulkResult aggregates per-row outcomes of one ingestion run.
type BulkResult struct {
	TotalProcessed int              `json:"total_processed"`
	Successful     int              `json:"successful"`
	Failed         int              `json:"failed"`
	Errors         []BulkRowError   `json:"errors"`
	Successes      []BulkRowSuccess `json:"successes"`
}

// BulkProgress is emitted after every processed row.
type BulkProgress struct {
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Status  string  `json:"status"`
	Message string  `json:"message"`
}

// BulkProgressFunc receives progress updates during ingestion.
type BulkProgressFunc func(BulkProgress)

// BulkReportLinks points at the downloadable success/error reports.
type BulkReportLinks struct {
	SuccessReportURL string `json:"success_report_url,omitempty"`
	ErrorReportURL   string `json:"error_report_url,omitempty"`
}
