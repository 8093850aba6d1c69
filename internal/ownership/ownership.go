// Package ownership is the single authorization check applied to every
// user-owned record.
package ownership

import (
	"fmt"

	"github.com/zombor/expense-reports/internal/apperr"
)

// Resource is a record owned by exactly one user.
type Resource interface {
	OwnedBy() string
}

// Assert returns apperr.ErrForbidden unless owner owns res.
func Assert(owner string, res Resource) error {
	if owner == "" || res.OwnedBy() != owner {
		return fmt.Errorf("%w: resource belongs to another owner", apperr.ErrForbidden)
	}
	return nil
}
