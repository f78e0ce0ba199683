// Package store persists recording sessions in a key-value store
package store

import (
	"errors"
)

var ErrNotFound = errors.New("key not found")

// KV is the persistence contract. Get returns ErrNotFound for missing keys;
// Delete of a missing key is not an error. Keys returns matching keys sorted.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}
