/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
)

// Identity wraps the byte representation of a lower level identity.
type Identity []byte

// Equal returns true if the passed identity is equal to this identity
func (id Identity) Equal(id2 Identity) bool {
	return bytes.Equal(id, id2)
}

// IsNone returns true if this identity is empty
func (id Identity) IsNone() bool {
	return len(id) == 0
}

// UniqueID returns a digest of this identity usable as a map key
func (id Identity) UniqueID() string {
	if len(id) == 0 {
		return "<empty>"
	}
	hash := sha256.Sum256(id)
	return base64.StdEncoding.EncodeToString(hash[:])
}

func (id Identity) String() string {
	return string(id)
}

func (id Identity) Bytes() []byte {
	return id
}

// Identities is a set of identities
type Identities []Identity

// Count returns the number of identities in the set
func (ids Identities) Count() int {
	return len(ids)
}

// Contain returns true if the passed identity belongs to the set
func (ids Identities) Contain(id Identity) bool {
	for _, v := range ids {
		if v.Equal(id) {
			return true
		}
	}
	return false
}

// Match returns true if the two sets contain the same identities,
// independently of their order
func (ids Identities) Match(others Identities) bool {
	if len(ids) != len(others) {
		return false
	}
	for _, id := range ids {
		if !others.Contain(id) {
			return false
		}
	}
	return true
}
