/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Component is one leaf of a transaction's merkle tree: a tagged, indexed
// encoding of a single input, output, command, the notary, or the window.
type Component struct {
	Tag string          `json:"tag"`
	Raw json.RawMessage `json:"raw"`
}

func componentLeaves(t *WireTransaction) ([]Component, error) {
	var leaves []Component
	add := func(tag string, v interface{}) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "failed encoding component [%s]", tag)
		}
		leaves = append(leaves, Component{Tag: tag, Raw: raw})
		return nil
	}
	for i, in := range t.Inputs {
		if err := add(fmt.Sprintf("input:%d", i), in); err != nil {
			return nil, err
		}
	}
	for i, st := range t.InputStates {
		if err := add(fmt.Sprintf("input_state:%d", i), st); err != nil {
			return nil, err
		}
	}
	for i, out := range t.Outputs {
		if err := add(fmt.Sprintf("output:%d", i), out); err != nil {
			return nil, err
		}
	}
	for i, cmd := range t.Commands {
		if err := add(fmt.Sprintf("command:%d", i), cmd); err != nil {
			return nil, err
		}
	}
	if !t.Notary.IsNone() {
		if err := add("notary", t.Notary); err != nil {
			return nil, err
		}
	}
	if t.Window != nil {
		if err := add("window", t.Window); err != nil {
			return nil, err
		}
	}
	return leaves, nil
}

func leafHash(c Component) []byte {
	h := sha256.New()
	h.Write([]byte(c.Tag))
	h.Write([]byte{0})
	h.Write(c.Raw)
	return h.Sum(nil)
}

// merkleRoot folds the passed leaf hashes pairwise into a single root. An
// odd node at any level is paired with itself.
func merkleRoot(hashes [][]byte) []byte {
	if len(hashes) == 0 {
		digest := sha256.Sum256(nil)
		return digest[:]
	}
	level := hashes
	for len(level) > 1 {
		var next [][]byte
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			h := sha256.New()
			h.Write(level[i])
			h.Write(right)
			next = append(next, h.Sum(nil))
		}
		level = next
	}
	return level[0]
}

// FilteredTransaction is a redacted view of a transaction: every leaf hash
// of the merkle tree, plus the plaintext of only the revealed components.
// A verifier can check that each revealed component belongs to the
// transaction with the claimed identifier without seeing anything else.
type FilteredTransaction struct {
	TxID     string      `json:"tx_id"`
	Hashes   [][]byte    `json:"hashes"`
	Revealed []Component `json:"revealed"`
}

// NewFilteredTransaction builds a redacted view of the passed transaction
// revealing only the components the passed predicate selects.
func NewFilteredTransaction(tx *WireTransaction, reveal func(c Component) bool) (*FilteredTransaction, error) {
	leaves, err := componentLeaves(tx)
	if err != nil {
		return nil, err
	}
	ftx := &FilteredTransaction{TxID: tx.ID}
	for _, leaf := range leaves {
		ftx.Hashes = append(ftx.Hashes, leafHash(leaf))
		if reveal(leaf) {
			ftx.Revealed = append(ftx.Revealed, leaf)
		}
	}
	return ftx, nil
}

// Verify checks that the leaf hashes fold to the claimed transaction
// identifier and that every revealed component hashes to one of the leaves.
func (f *FilteredTransaction) Verify() error {
	root := merkleRoot(f.Hashes)
	if fmt.Sprintf("%x", root) != f.TxID {
		return errors.Errorf("merkle root does not match transaction id [%s]", f.TxID)
	}
	for _, revealed := range f.Revealed {
		hash := leafHash(revealed)
		found := false
		for _, leaf := range f.Hashes {
			if string(leaf) == string(hash) {
				found = true
				break
			}
		}
		if !found {
			return errors.Errorf("revealed component [%s] is not part of transaction [%s]", revealed.Tag, f.TxID)
		}
	}
	return nil
}
