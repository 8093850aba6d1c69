package receipt

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"

	"github.com/zombor/expense-reports/internal/apperr"
	"github.com/zombor/expense-reports/internal/ownership"
	"github.com/zombor/expense-reports/internal/storage"
)

var _ = Describe("BoltDB", func() {
	var (
		bolt *bbolt.DB
		db   *BoltDB
	)

	newReceipt := func(id, owner string) *Receipt {
		amount := dec("25.99")
		return &Receipt{
			ID:        id,
			OwnerID:   owner,
			Amount:    &amount,
			Total:     &amount,
			Date:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			CreatedAt: time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
		}
	}

	BeforeEach(func() {
		var err error
		bolt, err = storage.Open(filepath.Join(GinkgoT().TempDir(), "test.db"), Bucket)
		Expect(err).NotTo(HaveOccurred())
		db = NewBoltDB(bolt)
	})

	AfterEach(func() {
		bolt.Close()
	})

	Describe("SaveReceipt", func() {
		var err error

		JustBeforeEach(func() {
			err = db.SaveReceipt(newReceipt("test-id", "user-a"))
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("round-trips the decimal amounts", func() {
				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Amount.String()).To(Equal("25.99"))
				Expect(saved.Tax).To(BeNil())
			})
		})

		When("the ID already exists", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(newReceipt("test-id", "user-b"))).To(Succeed())
			})

			It("returns an error and keeps the original row", func() {
				Expect(err).To(HaveOccurred())
				saved, _ := db.GetReceipt("test-id")
				Expect(saved.OwnerID).To(Equal("user-b"))
			})
		})
	})

	Describe("GetReceipt", func() {
		It("returns a not found error for unknown IDs", func() {
			_, err := db.GetReceipt("nonexistent")
			Expect(err).To(MatchError(apperr.ErrNotFound))
		})
	})

	Describe("ListReceipts", func() {
		BeforeEach(func() {
			Expect(db.SaveReceipt(newReceipt("a1", "user-a"))).To(Succeed())
			Expect(db.SaveReceipt(newReceipt("a2", "user-a"))).To(Succeed())
			Expect(db.SaveReceipt(newReceipt("b1", "user-b"))).To(Succeed())
		})

		It("returns only the owner's receipts", func() {
			receipts, err := db.ListReceipts("user-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(2))
		})

		It("returns an empty slice for an unknown owner", func() {
			receipts, err := db.ListReceipts("nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).NotTo(BeNil())
			Expect(receipts).To(BeEmpty())
		})
	})

	Describe("DeleteReceipt", func() {
		var (
			owner   string
			id      string
			deleted *Receipt
			err     error
		)

		BeforeEach(func() {
			owner = "user-a"
			id = "test-id"
			Expect(db.SaveReceipt(newReceipt("test-id", "user-a"))).To(Succeed())
		})

		JustBeforeEach(func() {
			deleted, err = db.DeleteReceipt(id, func(r *Receipt) error {
				return ownership.Assert(owner, r)
			})
		})

		When("the guard allows it", func() {
			It("returns the deleted receipt", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(deleted.ID).To(Equal("test-id"))
			})

			It("removes the row", func() {
				_, getErr := db.GetReceipt("test-id")
				Expect(getErr).To(MatchError(apperr.ErrNotFound))
			})
		})

		When("the guard refuses", func() {
			BeforeEach(func() {
				owner = "user-b"
			})

			It("returns the guard error", func() {
				Expect(err).To(MatchError(apperr.ErrForbidden))
			})

			It("keeps the row", func() {
				_, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
			})
		})

		When("the receipt does not exist", func() {
			BeforeEach(func() {
				id = "nonexistent"
			})

			It("returns a not found error", func() {
				Expect(err).To(MatchError(apperr.ErrNotFound))
				Expect(errors.Is(err, apperr.ErrForbidden)).To(BeFalse())
			})
		})
	})
})
