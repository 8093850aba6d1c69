package scanning

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fields is the canonical receipt field set produced by extraction. Every
// field is always present; nil means the model gave no usable value.
type Fields struct {
	Amount   *decimal.Decimal `json:"amount"`
	Date     *string          `json:"date"`
	Category *string          `json:"category"`
	Notes    *string          `json:"notes"`
	Company  *string          `json:"company"`
	Time     *string          `json:"time"`
	Items    *string          `json:"items"`
	Subtotal *decimal.Decimal `json:"subtotal"`
	Tax      *decimal.Decimal `json:"tax"`
	Tip      *decimal.Decimal `json:"tip"`
	Total    *decimal.Decimal `json:"total"`
}

// synonyms maps alternate key names models emit onto canonical keys. The
// first synonym present wins and never overwrites a canonical value.
var synonyms = []struct{ from, to string }{
	{"total_amount", "amount"},
	{"grand_total", "total"},
	{"amount_due", "total"},
	{"merchant", "company"},
	{"merchant_name", "company"},
	{"store", "company"},
	{"store_name", "company"},
	{"vendor", "company"},
	{"transaction_date", "date"},
	{"tx_date", "date"},
	{"purchase_date", "date"},
	{"transaction_time", "time"},
	{"sales_tax", "tax"},
	{"gratuity", "tip"},
	{"line_items", "items"},
	{"description", "notes"},
	{"purpose", "notes"},
}

var thousandsRe = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)

// MapFields canonicalizes a raw extracted object. It never fails: values
// that cannot be coerced become nil.
func MapFields(raw map[string]any) Fields {
	m := normalizeKeys(raw)

	for _, s := range synonyms {
		v, ok := m[s.from]
		if !ok {
			continue
		}
		if cur, exists := m[s.to]; !exists || cur == nil {
			m[s.to] = v
		}
		delete(m, s.from)
	}

	f := Fields{
		Amount:   toDecimal(m["amount"]),
		Date:     toDate(m["date"]),
		Category: toCategory(m["category"]),
		Notes:    toText(m["notes"]),
		Company:  toText(m["company"]),
		Time:     toText(m["time"]),
		Items:    toItems(m["items"]),
		Subtotal: toDecimal(m["subtotal"]),
		Tax:      toDecimal(m["tax"]),
		Tip:      toDecimal(m["tip"]),
		Total:    toDecimal(m["total"]),
	}

	// total is authoritative for amount. amount is never copied into total.
	if f.Total != nil {
		total := *f.Total
		f.Amount = &total
	}

	return f
}

// normalizeKeys lower-cases keys and turns spaces into underscores. Keys
// already in canonical form take precedence over variants.
func normalizeKeys(raw map[string]any) map[string]any {
	m := make(map[string]any, len(raw))
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		nk := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), " ", "_")
		if _, exists := m[nk]; exists && nk != k {
			continue
		}
		m[nk] = raw[k]
	}
	return m
}

func toDecimal(v any) *decimal.Decimal {
	var (
		d   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(t.String())
	case float64:
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimLeft(s, "$€£ ")
		if thousandsRe.MatchString(s) {
			s = strings.ReplaceAll(s, ",", "")
		}
		if s == "" {
			return nil
		}
		d, err = decimal.NewFromString(s)
	default:
		return nil
	}
	if err != nil || !PlausibleMoney(d) {
		return nil
	}
	return &d
}

func toText(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case json.Number:
		s = t.String()
	case float64, int, int64, bool:
		s = fmt.Sprint(t)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

func toCategory(v any) *string {
	s := toText(v)
	if s == nil {
		return nil
	}
	lower := strings.ToLower(*s)
	return &lower
}

// toDate accepts YYYY-MM-DD, or an RFC 3339 timestamp reduced to its calendar date.
func toDate(v any) *string {
	s := toText(v)
	if s == nil {
		return nil
	}
	if d, err := time.Parse(time.DateOnly, *s); err == nil {
		out := d.Format(time.DateOnly)
		return &out
	}
	if ts, err := time.Parse(time.RFC3339, *s); err == nil {
		out := ts.Format(time.DateOnly)
		return &out
	}
	return nil
}

// toItems renders a list of items as one comma separated string.
func toItems(v any) *string {
	list, ok := v.([]any)
	if !ok {
		return toText(v)
	}

	parts := make([]string, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case map[string]any:
			if name := toText(t["name"]); name != nil {
				parts = append(parts, *name)
			} else if desc := toText(t["description"]); desc != nil {
				parts = append(parts, *desc)
			} else if b, err := json.Marshal(t); err == nil {
				parts = append(parts, string(b))
			}
		default:
			if s := toText(t); s != nil {
				parts = append(parts, *s)
			}
		}
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, ", ")
	return &joined
}
