package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zombor/expense-reports/internal/apperr"
)

const maxJSONBody = 1 << 20

const numberSchema = `{"type": ["number", "string", "null"]}`
const textSchema = `{"type": ["string", "null"]}`

var (
	reportRequestSchema = jsonschema.MustCompileString("report-request.json", `{
		"type": "object",
		"required": ["start_date", "end_date"],
		"properties": {
			"start_date": {"type": "string", "minLength": 1},
			"end_date": {"type": "string", "minLength": 1},
			"format": {"type": "string"}
		}
	}`)

	analyzeRequestSchema = jsonschema.MustCompileString("analyze-request.json", `{
		"type": "object",
		"required": ["image_url"],
		"properties": {
			"image_url": {"type": "string", "minLength": 1}
		}
	}`)

	createReceiptSchema = jsonschema.MustCompileString("create-receipt.json", `{
		"type": "object",
		"properties": {
			"image_url": `+textSchema+`,
			"amount": `+numberSchema+`,
			"date": `+textSchema+`,
			"category": `+textSchema+`,
			"notes": `+textSchema+`,
			"company": `+textSchema+`,
			"time": `+textSchema+`,
			"items": `+textSchema+`,
			"subtotal": `+numberSchema+`,
			"tax": `+numberSchema+`,
			"tip": `+numberSchema+`,
			"total": `+numberSchema+`
		}
	}`)
)

// decodeBody reads a JSON request body, checks it against schema and then
// decodes it into dst.
func decodeBody(body io.Reader, schema *jsonschema.Schema, dst any) error {
	data, err := io.ReadAll(io.LimitReader(body, maxJSONBody))
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return apperr.Validationf("invalid JSON body: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		return apperr.Validationf("%v", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return apperr.Validationf("invalid JSON body: %v", err)
	}
	return nil
}
