package report

import (
	"net/url"
	"strings"
	"time"

	"github.com/zombor/expense-reports/internal/apperr"
)

// Status is the lifecycle state of a report request. pending is the only
// non-terminal state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Format is the export format requested for a report
type Format string

const (
	FormatCSV   Format = "csv"
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
)

var formats = []Format{FormatCSV, FormatPDF, FormatExcel}

// ParseFormat validates a requested format. Empty means csv.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatCSV, nil
	}
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", apperr.Validationf("unknown report format %q, expected csv, pdf or excel", s)
}

// FormatFromFileName maps an artifact file name (report.csv, report.pdf,
// report.excel) back to its format.
func FormatFromFileName(name string) (Format, error) {
	for _, f := range formats {
		if name == f.FileName() {
			return f, nil
		}
	}
	return "", apperr.Validationf("invalid report file %q", name)
}

// FileName is the artifact file name for the format
func (f Format) FileName() string {
	return "report." + string(f)
}

// Report is a request for a date-ranged expense report and the state of
// the background job rendering it.
type Report struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	Format        Format     `json:"format"`
	Status        Status     `json:"status"`
	URL           *string    `json:"url"` // set only once completed
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// OwnedBy returns the owning user's ID
func (r *Report) OwnedBy() string {
	return r.OwnerID
}

// DownloadName is the attachment file name offered for the CSV artifact
func (r *Report) DownloadName() string {
	return "expense-report-" + r.StartDate.Format(time.DateOnly) + "-to-" + r.EndDate.Format(time.DateOnly) + ".csv"
}

// artifactKey is where the rendered CSV lives in the blob store
func artifactKey(owner, id string) string {
	return "reports/" + owner + "/" + id + "/" + FormatCSV.FileName()
}

// artifactURL is the retrieval path recorded on a completed report
func artifactURL(owner, id string, format Format) string {
	return "/api/reports/" + url.PathEscape(owner) + "/" + url.PathEscape(id) + "/" + format.FileName()
}
