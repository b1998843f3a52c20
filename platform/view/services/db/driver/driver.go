/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

// KeyValueStore models the persistence backing the KVS service.
type KeyValueStore interface {
	// SetState stores the passed value under the passed namespace and key
	SetState(namespace, key string, value []byte) error

	// GetState returns the value stored under the passed namespace and key.
	// A nil value and no error means the key is not present.
	GetState(namespace, key string) ([]byte, error)

	// DeleteState removes the value stored under the passed namespace and key
	DeleteState(namespace, key string) error

	// ScanPrefix invokes f for each key with the given prefix, in
	// lexicographic key order. Iteration stops at the first error.
	ScanPrefix(namespace, prefix string, f func(key string, value []byte) error) error

	// Close releases the resources held by the store
	Close() error
}
