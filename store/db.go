// Package store persists small JSON documents in Pebble.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("not found")

// DB is a small wrapper around a Pebble instance.
type DB struct {
	DB       *pebble.DB
	DataFile string
}

// Open opens (or creates) a Pebble DB at dataFile.
func Open(dataFile string) (*DB, error) {
	db, err := pebble.Open(dataFile, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dataFile, err)
	}
	return &DB{DB: db, DataFile: dataFile}, nil
}

// Put stores a value under the given key.
func (d *DB) Put(key string, value []byte) error {
	return d.DB.Set([]byte(key), value, pebble.Sync)
}

// Get returns a copy of the value for key, or ErrNotFound.
func (d *DB) Get(key string) ([]byte, error) {
	value, closer, err := d.DB.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

// Delete removes the key.
func (d *DB) Delete(key string) error {
	return d.DB.Delete([]byte(key), pebble.Sync)
}

// PutJSON marshals v and stores it under key.
func (d *DB) PutJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return d.Put(key, raw)
}

// GetJSON loads key into v.
func (d *DB) GetJSON(key string, v any) error {
	raw, err := d.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Keys returns every key starting with prefix, in order.
func (d *DB) Keys(prefix string) ([]string, error) {
	iter, err := d.DB.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixEnd([]byte(prefix)),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}

// Close closes the underlying DB.
func (d *DB) Close() error {
	return d.DB.Close()
}

func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
