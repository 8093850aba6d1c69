package report

import (
	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expense-reports/internal/apperr"
)

var _ = ginkgo.Describe("Format", func() {
	ginkgo.DescribeTable("ParseFormat",
		func(in string, want Format) {
			f, err := ParseFormat(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(f).To(Equal(want))
		},
		ginkgo.Entry("empty defaults to csv", "", FormatCSV),
		ginkgo.Entry("csv", "csv", FormatCSV),
		ginkgo.Entry("upper case pdf", "PDF", FormatPDF),
		ginkgo.Entry("excel", "excel", FormatExcel),
	)

	ginkgo.It("rejects unknown formats", func() {
		_, err := ParseFormat("xlsx")
		Expect(err).To(MatchError(apperr.ErrValidation))
	})

	ginkgo.It("maps artifact file names back to formats", func() {
		f, err := FormatFromFileName("report.excel")
		Expect(err).NotTo(HaveOccurred())
		Expect(f).To(Equal(FormatExcel))

		_, err = FormatFromFileName("report.txt")
		Expect(err).To(MatchError(apperr.ErrValidation))
	})
})

var _ = ginkgo.Describe("Report", func() {
	ginkgo.It("names the download after its date range", func() {
		r := &Report{StartDate: day("2024-01-01"), EndDate: day("2024-01-31")}
		Expect(r.DownloadName()).To(Equal("expense-report-2024-01-01-to-2024-01-31.csv"))
	})

	ginkgo.It("builds artifact URLs under the owner", func() {
		Expect(artifactURL("user-a", "r1", FormatPDF)).To(Equal("/api/reports/user-a/r1/report.pdf"))
		Expect(artifactKey("user-a", "r1")).To(Equal("reports/user-a/r1/report.csv"))
	})
})
