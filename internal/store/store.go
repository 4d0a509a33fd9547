// Package store provides the key-value persistence behind runtime settings
// and run history.
package store

import (
	"errors"
)

// ErrNotFound is returned by Get when a key has never been set or was removed.
var ErrNotFound = errors.New("key not found")

// Store is a small string key-value store.
//
// Values are opaque to the store. Callers that keep structured data (the run
// history, for instance) serialise it themselves.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// Keys returns all stored keys in lexical order.
	Keys() ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
