package receipt

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/zombor/expense-reports/internal/apperr"
)

// Bucket is the bbolt bucket holding receipts keyed by ID
const Bucket = "receipts"

// DB defines the interface for receipt persistence
type DB interface {
	// SaveReceipt inserts a new receipt. Saving an existing ID is an error.
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a receipt by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns every receipt owned by ownerID, in no particular order
	ListReceipts(ownerID string) ([]*Receipt, error)

	// DeleteReceipt removes a receipt if guard allows it and returns the
	// removed record. Lookup, guard and removal happen atomically.
	DeleteReceipt(id string, guard func(*Receipt) error) (*Receipt, error)
}

// BoltDB implements DB on a shared bbolt database
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a BoltDB. The Bucket must already exist.
func NewBoltDB(db *bbolt.DB) *BoltDB {
	return &BoltDB{db: db}
}

// SaveReceipt inserts a receipt in a single transaction
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(Bucket))
		if bucket.Get([]byte(receipt.ID)) != nil {
			return fmt.Errorf("receipt already exists: %s", receipt.ID)
		}
		data, err := json.Marshal(receipt)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		return bucket.Put([]byte(receipt.ID), data)
	})
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		receipt, err = getReceipt(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts returns the owner's receipts
func (b *BoltDB) ListReceipts(ownerID string) ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(Bucket))
		return bucket.ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			if receipt.OwnerID == ownerID {
				receipts = append(receipts, &receipt)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt after guard approves it
func (b *BoltDB) DeleteReceipt(id string, guard func(*Receipt) error) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.Update(func(tx *bbolt.Tx) error {
		var err error
		receipt, err = getReceipt(tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(receipt); err != nil {
				return err
			}
		}
		return tx.Bucket([]byte(Bucket)).Delete([]byte(id))
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func getReceipt(tx *bbolt.Tx, id string) (*Receipt, error) {
	data := tx.Bucket([]byte(Bucket)).Get([]byte(id))
	if data == nil {
		return nil, apperr.NotFoundf("receipt %s", id)
	}
	var receipt Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt: %w", err)
	}
	return &receipt, nil
}
