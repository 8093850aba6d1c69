package report

import (
	"bytes"
	"strings"
	"time"

	"github.com/zombor/expense-reports/internal/receipt"
)

const csvHeader = "Date,Amount,Category,Notes"

// Render writes receipts as CSV in the order given. Rows are separated by
// "\n" with no trailing newline after the last row, so identical input
// always yields identical bytes. A missing amount renders as 0; category
// and notes are always quoted.
func Render(receipts []*receipt.Receipt) []byte {
	var buf bytes.Buffer
	buf.WriteString(csvHeader)
	buf.WriteByte('\n')

	for i, r := range receipts {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(r.Date.Format(time.DateOnly))
		buf.WriteByte(',')
		if r.Amount != nil {
			buf.WriteString(r.Amount.String())
		} else {
			buf.WriteByte('0')
		}
		buf.WriteByte(',')
		buf.WriteString(quote(r.Category))
		buf.WriteByte(',')
		buf.WriteString(quote(r.Notes))
	}

	return buf.Bytes()
}

// quote wraps s in double quotes, doubling embedded quotes. nil is "".
func quote(s *string) string {
	if s == nil {
		return `""`
	}
	return `"` + strings.ReplaceAll(*s, `"`, `""`) + `"`
}
