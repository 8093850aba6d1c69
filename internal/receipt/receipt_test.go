package receipt

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CreateInput", func() {
	It("decodes numbers, strings and nulls into Numeric", func() {
		var in CreateInput
		err := json.Unmarshal([]byte(`{"amount": 42.99, "tax": "1.50", "tip": null, "total": ""}`), &in)
		Expect(err).NotTo(HaveOccurred())
		Expect(in.Amount).To(Equal(Numeric("42.99")))
		Expect(in.Tax).To(Equal(Numeric("1.50")))
		Expect(in.Tip).To(Equal(Numeric("")))
		Expect(in.Total).To(Equal(Numeric("")))
	})

	It("rejects non-scalar numeric values", func() {
		var in CreateInput
		err := json.Unmarshal([]byte(`{"amount": {"value": 1}}`), &in)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Receipt", func() {
	It("reports its owner", func() {
		Expect((&Receipt{OwnerID: "user-a"}).OwnedBy()).To(Equal("user-a"))
	})
})
