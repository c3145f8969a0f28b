package statestore

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// statsBucket holds one JSON-encoded Record per path.
var statsBucket = []byte("stats")

// Bolt stores the snapshot in a bbolt database, one key per path.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if needed) a bbolt store at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(statsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize bolt store: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Save replaces the stored snapshot wholesale in one transaction.
func (s *Bolt) Save(records []Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(statsBucket); err != nil {
			return err
		}
		bucket, err := tx.CreateBucket(statsBucket)
		if err != nil {
			return err
		}

		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal record %q: %w", rec.Path, err)
			}
			if err := bucket.Put([]byte(rec.Path), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns every stored record.
func (s *Bolt) Load() ([]Record, error) {
	records := []Record{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(statsBucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database.
func (s *Bolt) Close() error {
	return s.db.Close()
}
