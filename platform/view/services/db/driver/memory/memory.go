/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package memory

import (
	"sort"
	"strings"
	"sync"
)

// DB is an in-memory KeyValueStore with the same surface as the badger
// driver. It is meant for tests and single-process deployments.
type DB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func OpenDB() *DB {
	return &DB{data: map[string][]byte{}}
}

func (d *DB) Close() error {
	return nil
}

func (d *DB) SetState(namespace, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(value) == 0 {
		delete(d.data, dbKey(namespace, key))
		return nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	d.data[dbKey(namespace, key)] = cp
	return nil
}

func (d *DB) GetState(namespace, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	value, ok := d.data[dbKey(namespace, key)]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (d *DB) DeleteState(namespace, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.data, dbKey(namespace, key))
	return nil
}

func (d *DB) ScanPrefix(namespace, prefix string, f func(key string, value []byte) error) error {
	d.mu.RLock()
	fullPrefix := dbKey(namespace, prefix)
	nsPrefixLen := len(dbKey(namespace, ""))
	keys := make([]string, 0, len(d.data))
	for k := range d.data {
		if strings.HasPrefix(k, fullPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = d.data[k]
	}
	d.mu.RUnlock()

	for i, k := range keys {
		if err := f(k[nsPrefixLen:], values[i]); err != nil {
			return err
		}
	}
	return nil
}

func dbKey(namespace, key string) string {
	return namespace + "\x00" + key
}
