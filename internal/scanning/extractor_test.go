package scanning

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expense-reports/internal/apperr"
)

// fakeScanner returns canned model text
type fakeScanner struct {
	text        string
	err         error
	calls       int
	contentType string
}

func (f *fakeScanner) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (string, error) {
	f.calls++
	f.contentType = contentType
	return f.text, f.err
}

func (f *fakeScanner) Close() error {
	return nil
}

var _ = Describe("Extractor", func() {
	var (
		scanner   *fakeScanner
		extractor *Extractor
		fields    *Fields
		err       error
	)

	BeforeEach(func() {
		scanner = &fakeScanner{}
		extractor = NewExtractor(scanner)
	})

	JustBeforeEach(func() {
		fields, err = extractor.Extract(context.Background(), []byte("image"), "image/jpeg")
	})

	When("the model returns JSON", func() {
		BeforeEach(func() {
			scanner.text = `{"total": 42.99, "category": "food", "notes": "Lunch", "date": "2024-02-20"}`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the canonical fields", func() {
			Expect(fields.Amount.String()).To(Equal("42.99"))
			Expect(*fields.Notes).To(Equal("Lunch"))
		})

		It("passes the content type to the scanner", func() {
			Expect(scanner.contentType).To(Equal("image/jpeg"))
		})
	})

	When("the model returns prose only", func() {
		BeforeEach(func() {
			scanner.text = "Sorry, the image is too blurry."
		})

		It("returns an extraction failure carrying the raw text", func() {
			Expect(err).To(MatchError(apperr.ErrExtraction))
			var extractionErr *ExtractionError
			Expect(errors.As(err, &extractionErr)).To(BeTrue())
			Expect(extractionErr.Raw).To(Equal("Sorry, the image is too blurry."))
		})
	})

	When("the scanner fails", func() {
		var setupErr error

		BeforeEach(func() {
			setupErr = errors.New("model unavailable")
			scanner.err = setupErr
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(setupErr))
		})

		It("is not reported as an extraction failure", func() {
			Expect(errors.Is(err, apperr.ErrExtraction)).To(BeFalse())
		})
	})
})
