package report

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/zombor/expense-reports/internal/apperr"
)

// Bucket is the bbolt bucket holding reports keyed by ID
const Bucket = "reports"

// Store defines the interface for report persistence
type Store interface {
	// SaveReport inserts a new report. Saving an existing ID is an error.
	SaveReport(report *Report) error

	// GetReport retrieves a report by ID
	GetReport(id string) (*Report, error)

	// ListReports returns every report owned by ownerID, in no particular order
	ListReports(ownerID string) ([]*Report, error)

	// ListPending returns every report still waiting to be rendered
	ListPending() ([]*Report, error)

	// UpdateReport applies fn to the stored report and saves the result in
	// one transaction. An error from fn aborts the update.
	UpdateReport(id string, fn func(*Report) error) (*Report, error)
}

// BoltStore implements Store on a shared bbolt database
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a BoltStore. The Bucket must already exist.
func NewBoltStore(db *bbolt.DB) *BoltStore {
	return &BoltStore{db: db}
}

// SaveReport inserts a report
func (b *BoltStore) SaveReport(report *Report) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(Bucket))
		if bucket.Get([]byte(report.ID)) != nil {
			return fmt.Errorf("report already exists: %s", report.ID)
		}
		return putReport(bucket, report)
	})
}

// GetReport retrieves a report by ID
func (b *BoltStore) GetReport(id string) (*Report, error) {
	var report *Report
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		report, err = getReport(tx.Bucket([]byte(Bucket)), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports returns the owner's reports
func (b *BoltStore) ListReports(ownerID string) ([]*Report, error) {
	return b.list(func(r *Report) bool { return r.OwnerID == ownerID })
}

// ListPending returns reports in the pending state
func (b *BoltStore) ListPending() ([]*Report, error) {
	return b.list(func(r *Report) bool { return r.Status == StatusPending })
}

// UpdateReport applies fn to a stored report atomically
func (b *BoltStore) UpdateReport(id string, fn func(*Report) error) (*Report, error) {
	var report *Report
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(Bucket))
		var err error
		report, err = getReport(bucket, id)
		if err != nil {
			return err
		}
		if err := fn(report); err != nil {
			return err
		}
		return putReport(bucket, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (b *BoltStore) list(keep func(*Report) bool) ([]*Report, error) {
	reports := make([]*Report, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(Bucket)).ForEach(func(k, v []byte) error {
			var report Report
			if err := json.Unmarshal(v, &report); err != nil {
				return fmt.Errorf("unmarshaling report: %w", err)
			}
			if keep(&report) {
				reports = append(reports, &report)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func getReport(bucket *bbolt.Bucket, id string) (*Report, error) {
	data := bucket.Get([]byte(id))
	if data == nil {
		return nil, apperr.NotFoundf("report %s", id)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}
	return &report, nil
}

func putReport(bucket *bbolt.Bucket, report *Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return bucket.Put([]byte(report.ID), data)
}
