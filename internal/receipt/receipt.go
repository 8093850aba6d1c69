package receipt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is a reviewed, persisted receipt. It is owned by exactly one user
// and never updated after creation.
type Receipt struct {
	ID        string           `json:"id"`
	OwnerID   string           `json:"owner_id"`
	ImageURL  string           `json:"image_url,omitempty"`
	Amount    *decimal.Decimal `json:"amount"` // legacy mirror of Total
	Date      time.Time        `json:"date"`   // calendar date, UTC midnight
	Category  *string          `json:"category"`
	Notes     *string          `json:"notes"`
	Company   *string          `json:"company"`
	Time      *string          `json:"time"`
	Items     *string          `json:"items"`
	Subtotal  *decimal.Decimal `json:"subtotal"`
	Tax       *decimal.Decimal `json:"tax"`
	Tip       *decimal.Decimal `json:"tip"`
	Total     *decimal.Decimal `json:"total"`
	CreatedAt time.Time        `json:"created_at"`
}

// OwnedBy returns the owning user's ID
func (r *Receipt) OwnedBy() string {
	return r.OwnerID
}

// CreateInput is the reviewed field set a user submits to create a receipt.
// Text fields left empty are stored as null.
type CreateInput struct {
	ImageURL string  `json:"image_url"`
	Amount   Numeric `json:"amount"`
	Date     string  `json:"date"`
	Category string  `json:"category"`
	Notes    string  `json:"notes"`
	Company  string  `json:"company"`
	Time     string  `json:"time"`
	Items    string  `json:"items"`
	Subtotal Numeric `json:"subtotal"`
	Tax      Numeric `json:"tax"`
	Tip      Numeric `json:"tip"`
	Total    Numeric `json:"total"`
}

// Numeric is a user-entered number. It decodes from a JSON number, a
// string, or null; parsing into a decimal happens at create time.
type Numeric string

// UnmarshalJSON implements json.Unmarshaler
func (n *Numeric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*n = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Numeric(s)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected a number or string, got %s", b)
	}
	*n = Numeric(num.String())
	return nil
}
