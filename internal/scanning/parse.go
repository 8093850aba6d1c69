package scanning

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/zombor/expense-reports/internal/apperr"
)

// ReasonUnparseable is the ExtractionError reason when no JSON object can be recovered.
const ReasonUnparseable = "unparseable model output"

// ExtractionError reports model output that holds no recoverable JSON
// object. Raw keeps the model text so the caller can fall back to manual entry.
type ExtractionError struct {
	Reason string
	Raw    string
}

func (e *ExtractionError) Error() string {
	return "extraction failed: " + e.Reason
}

// Unwrap lets callers match with errors.Is(err, apperr.ErrExtraction).
func (e *ExtractionError) Unwrap() error {
	return apperr.ErrExtraction
}

// Parse recovers the JSON object from raw model text and maps it onto the
// canonical field set. The whole text is tried first, then the span from
// the first '{' to the last '}'. An object with no usable fields is not a
// failure: it maps to Fields with every value nil.
func Parse(text string) (*Fields, error) {
	obj, err := decodeObject(text)
	if err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start == -1 || end < start {
			return nil, &ExtractionError{Reason: ReasonUnparseable, Raw: text}
		}
		obj, err = decodeObject(text[start : end+1])
		if err != nil {
			return nil, &ExtractionError{Reason: ReasonUnparseable, Raw: text}
		}
	}

	fields := MapFields(obj)
	return &fields, nil
}

// decodeObject strictly decodes s as exactly one JSON object. Numbers are
// kept as json.Number so amounts keep their exact digits.
func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("json value is not an object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after json object")
	}
	return obj, nil
}
