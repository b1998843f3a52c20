/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/kvs"
)

var logger = flogging.MustGetLogger("ledger-sdk.vault")

// Vault is a node's local projection of the ledger: the finalized
// transactions it took part in, and the unspent states those transactions
// produced for it. Unspent states are kept in insertion order, oldest first.
type Vault struct {
	kvs *kvs.KVS

	mu       sync.RWMutex
	unspent  []StateAndRef
	consumed map[string]string // ref key -> consuming tx id
	seq      uint64
}

type vaultEntry struct {
	Seq   uint64      `json:"seq"`
	Entry StateAndRef `json:"entry"`
}

// NewVault returns a vault persisted on the passed kvs. It reloads any
// previously committed content.
func NewVault(store *kvs.KVS) (*Vault, error) {
	v := &Vault{
		kvs:      store,
		consumed: map[string]string{},
	}
	if err := v.load(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vault) load() error {
	if err := v.kvs.GetByPrefix("unspent.", func(key string, raw []byte) error {
		entry := &vaultEntry{}
		if err := json.Unmarshal(raw, entry); err != nil {
			return errors.Wrapf(err, "failed decoding vault entry [%s]", key)
		}
		v.unspent = append(v.unspent, entry.Entry)
		if entry.Seq >= v.seq {
			v.seq = entry.Seq + 1
		}
		return nil
	}); err != nil {
		return errors.Wrap(err, "failed reloading unspent states")
	}
	if err := v.kvs.GetByPrefix("consumed.", func(key string, raw []byte) error {
		var txID string
		if err := json.Unmarshal(raw, &txID); err != nil {
			return errors.Wrapf(err, "failed decoding consumed entry [%s]", key)
		}
		v.consumed[key[len("consumed."):]] = txID
		return nil
	}); err != nil {
		return errors.Wrap(err, "failed reloading consumed states")
	}
	logger.Debugf("vault loaded, [%d] unspent, [%d] consumed", len(v.unspent), len(v.consumed))
	return nil
}

// Commit records a finalized transaction: its inputs become consumed, its
// outputs become unspent. Committing the same transaction twice is a no-op.
func (v *Vault) Commit(ftx *FinalizedTransaction) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	txID := ftx.ID()
	if v.hasTransaction(txID) {
		logger.Debugf("transaction [%s] already committed, skipping", txID)
		return nil
	}
	for _, ref := range ftx.Transaction.Inputs {
		if by, ok := v.consumed[ref.Key()]; ok && by != txID {
			return errors.Errorf("state [%s] already consumed by [%s], cannot commit [%s]", ref, by, txID)
		}
	}

	raw, err := ftx.Bytes()
	if err != nil {
		return errors.Wrapf(err, "failed marshalling transaction [%s]", txID)
	}
	if err := v.kvs.Put("tx."+txID, raw); err != nil {
		return errors.Wrapf(err, "failed storing transaction [%s]", txID)
	}

	for _, ref := range ftx.Transaction.Inputs {
		v.consumed[ref.Key()] = txID
		if err := v.kvs.Put("consumed."+ref.Key(), txID); err != nil {
			return errors.Wrapf(err, "failed marking [%s] consumed", ref)
		}
		v.dropUnspent(ref)
	}
	for i, out := range ftx.Transaction.Outputs {
		entry := StateAndRef{Ref: ftx.Transaction.OutputRef(i), State: out}
		if err := v.kvs.Put(unspentKey(v.seq), &vaultEntry{Seq: v.seq, Entry: entry}); err != nil {
			return errors.Wrapf(err, "failed storing output [%s]", entry.Ref)
		}
		v.unspent = append(v.unspent, entry)
		v.seq++
	}
	logger.Debugf("committed transaction [%s], [%d] inputs consumed, [%d] outputs stored",
		txID, len(ftx.Transaction.Inputs), len(ftx.Transaction.Outputs))
	return nil
}

func (v *Vault) dropUnspent(ref StateRef) {
	for i, entry := range v.unspent {
		if entry.Ref == ref {
			v.unspent = append(v.unspent[:i], v.unspent[i+1:]...)
			return
		}
	}
}

// Unspent returns the unspent states of the passed contract, in the order
// they were committed.
func (v *Vault) Unspent(contractID string) []StateAndRef {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var res []StateAndRef
	for _, entry := range v.unspent {
		if entry.State.ContractID == contractID {
			res = append(res, entry)
		}
	}
	return res
}

// GetTransaction returns the finalized transaction with the passed id
func (v *Vault) GetTransaction(txID string) (*FinalizedTransaction, error) {
	var raw []byte
	if err := v.kvs.Get("tx."+txID, &raw); err != nil {
		return nil, errors.Wrapf(err, "transaction [%s] not found", txID)
	}
	return NewFinalizedTransactionFromBytes(raw)
}

// HasTransaction returns true if the passed transaction was committed
func (v *Vault) HasTransaction(txID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.hasTransaction(txID)
}

func (v *Vault) hasTransaction(txID string) bool {
	return v.kvs.Exists("tx." + txID)
}

func unspentKey(seq uint64) string {
	return fmt.Sprintf("unspent.%020d", seq)
}
