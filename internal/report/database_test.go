package report

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"

	"github.com/zombor/expense-reports/internal/apperr"
	"github.com/zombor/expense-reports/internal/storage"
)

var _ = ginkgo.Describe("BoltStore", func() {
	var (
		bolt  *bbolt.DB
		store *BoltStore
	)

	newReport := func(id, owner string, status Status) *Report {
		return &Report{
			ID:        id,
			OwnerID:   owner,
			StartDate: day("2024-01-01"),
			EndDate:   day("2024-01-31"),
			Format:    FormatCSV,
			Status:    status,
			CreatedAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		}
	}

	ginkgo.BeforeEach(func() {
		var err error
		bolt, err = storage.Open(filepath.Join(ginkgo.GinkgoT().TempDir(), "test.db"), Bucket)
		Expect(err).NotTo(HaveOccurred())
		store = NewBoltStore(bolt)
	})

	ginkgo.AfterEach(func() {
		bolt.Close()
	})

	ginkgo.It("saves and loads a report", func() {
		Expect(store.SaveReport(newReport("r1", "user-a", StatusPending))).To(Succeed())

		got, err := store.GetReport("r1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.OwnerID).To(Equal("user-a"))
		Expect(got.StartDate.Equal(day("2024-01-01"))).To(BeTrue())
		Expect(got.URL).To(BeNil())
	})

	ginkgo.It("refuses to overwrite an existing report", func() {
		Expect(store.SaveReport(newReport("r1", "user-a", StatusPending))).To(Succeed())
		Expect(store.SaveReport(newReport("r1", "user-b", StatusPending))).NotTo(Succeed())
	})

	ginkgo.It("returns NotFound for unknown reports", func() {
		_, err := store.GetReport("missing")
		Expect(err).To(MatchError(apperr.ErrNotFound))
	})

	ginkgo.It("lists by owner and by pending status", func() {
		Expect(store.SaveReport(newReport("r1", "user-a", StatusPending))).To(Succeed())
		Expect(store.SaveReport(newReport("r2", "user-a", StatusCompleted))).To(Succeed())
		Expect(store.SaveReport(newReport("r3", "user-b", StatusPending))).To(Succeed())

		owned, err := store.ListReports("user-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(owned).To(HaveLen(2))

		pending, err := store.ListPending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(HaveLen(2))
		ids := []string{pending[0].ID, pending[1].ID}
		Expect(ids).To(ConsistOf("r1", "r3"))
	})

	ginkgo.Describe("UpdateReport", func() {
		ginkgo.BeforeEach(func() {
			Expect(store.SaveReport(newReport("r1", "user-a", StatusPending))).To(Succeed())
		})

		ginkgo.It("persists the mutation", func() {
			_, err := store.UpdateReport("r1", func(r *Report) error {
				r.Status = StatusFailed
				r.FailureReason = "boom"
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := store.GetReport("r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(StatusFailed))
			Expect(got.FailureReason).To(Equal("boom"))
		})

		ginkgo.It("discards the mutation when fn errors", func() {
			abort := errors.New("abort")
			_, err := store.UpdateReport("r1", func(r *Report) error {
				r.Status = StatusCompleted
				return abort
			})
			Expect(err).To(MatchError(abort))

			got, err := store.GetReport("r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(StatusPending))
		})

		ginkgo.It("returns NotFound for unknown reports", func() {
			_, err := store.UpdateReport("missing", func(*Report) error { return nil })
			Expect(err).To(MatchError(apperr.ErrNotFound))
		})
	})
})
