package scanning

import "slices"

// Categories is the advisory category enumeration offered to the model.
// Values outside it are kept as free text.
var Categories = []string{
	"food",
	"transport",
	"entertainment",
	"shopping",
	"utilities",
	"other",
}

// KnownCategory reports whether c is one of Categories.
func KnownCategory(c string) bool {
	return slices.Contains(Categories, c)
}
