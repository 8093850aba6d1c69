package scanning

import (
	"context"
	"fmt"
	"log/slog"
)

// Extractor turns a receipt image into canonical Fields. The Scanner is
// built once at startup and injected, so tests substitute a fake.
type Extractor struct {
	scanner Scanner
}

// NewExtractor creates an Extractor backed by scanner
func NewExtractor(scanner Scanner) *Extractor {
	return &Extractor{scanner: scanner}
}

// Extract asks the vision model about the image and parses its reply. A
// reply with no recoverable JSON object returns an *ExtractionError
// carrying the raw text.
func (e *Extractor) Extract(ctx context.Context, imageData []byte, contentType string) (*Fields, error) {
	raw, err := e.scanner.ScanReceipt(ctx, imageData, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"content_type", contentType,
			"file_size", len(imageData),
			"error", err,
		)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	fields, err := Parse(raw)
	if err != nil {
		slog.Warn("Model output held no JSON object", "raw_length", len(raw))
		return nil, err
	}
	return fields, nil
}
