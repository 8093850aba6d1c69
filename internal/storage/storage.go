// Package storage opens the single bbolt file that holds every persisted record.
package storage

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Open opens (or creates) the bbolt database at path and makes sure every
// named bucket exists.
func Open(path string, buckets ...string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return db, nil
}
