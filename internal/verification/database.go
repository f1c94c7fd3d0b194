package verification

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const pairBucketName = "pairs"

// DB defines the interface for database operations
type DB interface {
	// SavePair creates or replaces a document pair
	SavePair(pair *DocumentPair) error

	// GetPair retrieves a pair by ID, wrapping ErrNotFound when absent
	GetPair(id string) (*DocumentPair, error)

	// ListPairs returns all pairs in key order
	ListPairs() ([]*DocumentPair, error)

	// DeletePair removes a pair
	DeletePair(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the database file at path
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(pairBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SavePair saves a pair to the database
func (b *BoltDB) SavePair(pair *DocumentPair) error {
	if pair.ID == "" {
		return fmt.Errorf("%w: pair ID is required", ErrInvalidInput)
	}
	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("marshaling pair: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(pairBucketName)).Put([]byte(pair.ID), data)
	})
}

// GetPair retrieves a pair by ID
func (b *BoltDB) GetPair(id string) (*DocumentPair, error) {
	var pair *DocumentPair
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(pairBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &pair)
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// ListPairs returns all pairs
func (b *BoltDB) ListPairs() ([]*DocumentPair, error) {
	pairs := make([]*DocumentPair, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(pairBucketName)).ForEach(func(k, v []byte) error {
			var pair DocumentPair
			if err := json.Unmarshal(v, &pair); err != nil {
				return fmt.Errorf("unmarshaling pair %s: %w", k, err)
			}
			pairs = append(pairs, &pair)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// DeletePair removes a pair from the database
func (b *BoltDB) DeletePair(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(pairBucketName)).Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
