/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"github.com/pkg/errors"
)

// TransactionFetcher resolves a finalized transaction by its identifier
type TransactionFetcher func(txID string) (*FinalizedTransaction, error)

// ResolveTransitiveDependencies collects every finalized transaction the
// passed transaction depends on, transitively back to issuance. The result
// is in commit order, a transaction always follows its own dependencies.
func ResolveTransitiveDependencies(tx *WireTransaction, fetch TransactionFetcher) ([]*FinalizedTransaction, error) {
	visited := map[string]bool{}
	var ordered []*FinalizedTransaction

	var walk func(ref StateRef) error
	walk = func(ref StateRef) error {
		if visited[ref.TxID] {
			return nil
		}
		visited[ref.TxID] = true
		ftx, err := fetch(ref.TxID)
		if err != nil {
			return errors.Wrapf(err, "failed resolving dependency [%s]", ref.TxID)
		}
		for _, in := range ftx.Transaction.Inputs {
			if err := walk(in); err != nil {
				return err
			}
		}
		ordered = append(ordered, ftx)
		return nil
	}

	for _, in := range tx.Inputs {
		if err := walk(in); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// CheckDependencies verifies a dependency chain received from a
// counterparty: every transaction must carry a valid identifier and notary
// signature, and every input of the candidate transaction must be an output
// of one of the dependencies.
func CheckDependencies(tx *WireTransaction, deps []*FinalizedTransaction, vp VerifierProvider) error {
	produced := map[string]TransactionState{}
	for _, dep := range deps {
		if err := dep.Transaction.VerifyID(); err != nil {
			return err
		}
		if err := dep.VerifyNotarySignature(vp); err != nil {
			return err
		}
		for _, in := range dep.Transaction.Inputs {
			if _, ok := produced[in.Key()]; !ok {
				return errors.Errorf("dependency [%s] consumes unresolved state [%s]", dep.ID(), in)
			}
		}
		for i := range dep.Transaction.Outputs {
			ref := dep.Transaction.OutputRef(i)
			produced[ref.Key()] = dep.Transaction.Outputs[i]
		}
	}
	for i, in := range tx.Inputs {
		state, ok := produced[in.Key()]
		if !ok {
			return errors.Errorf("input state [%s] not covered by any dependency", in)
		}
		if i < len(tx.InputStates) && string(state.Raw) != string(tx.InputStates[i].Raw) {
			return errors.Errorf("input state [%s] does not match the output of [%s]", in, in.TxID)
		}
	}
	return nil
}
