package store

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// settingsBucket holds every key written through the store.
const settingsBucket = "settings"

// BoltStore implements the Store interface using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store at the given path.
func NewBoltStore(path string) (Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(settingsBucket)); err != nil {
			return fmt.Errorf("create settings bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Get returns the value stored under key.
func (s *BoltStore) Get(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(settingsBucket)).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		// bbolt values are only valid inside the transaction.
		value = string(data)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("get %s: %w", key, err)
	}

	return value, nil
}

// Set stores value under key.
func (s *BoltStore) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(settingsBucket)).Put([]byte(key), []byte(value)); err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
		return nil
	})
}

// Remove deletes key.
func (s *BoltStore) Remove(key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(settingsBucket)).Delete([]byte(key)); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
}

// Keys returns all stored keys. bbolt iterates in byte order.
func (s *BoltStore) Keys() ([]string, error) {
	var keys []string

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(settingsBucket)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// Close releases resources held by the store.
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
