package scanning

import "context"

// Scanner sends a receipt image to a vision model and returns the model's
// unstructured reply. Implementations never interpret the reply; that is
// the Extractor's job.
type Scanner interface {
	// ScanReceipt sends the image with the extraction prompt and returns the raw model text
	ScanReceipt(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close releases any client resources
	Close() error
}
