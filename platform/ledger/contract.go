/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// ContractViolation reports which named rule a candidate transaction broke.
// Rules are human-readable predicates, e.g. "no zero sized inputs".
type ContractViolation struct {
	ContractID string
	Rule       string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract [%s] violated: %s", e.ContractID, e.Rule)
}

// Violation returns a ContractViolation for the passed rule
func Violation(contractID, rule string) error {
	return &ContractViolation{ContractID: contractID, Rule: rule}
}

// Contract is a pure verification function over a candidate transaction.
// On success it returns the commands it satisfied; callers use them only as
// an acknowledgment, there is no partial success.
type Contract interface {
	Verify(tx *WireTransaction) ([]Command, error)
}

// ContractRegistry maps contract identifiers to their verification logic
type ContractRegistry struct {
	mu        sync.RWMutex
	contracts map[string]Contract
}

func NewContractRegistry() *ContractRegistry {
	return &ContractRegistry{contracts: map[string]Contract{}}
}

func (r *ContractRegistry) Register(contractID string, c Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[contractID] = c
}

func (r *ContractRegistry) Get(contractID string) (Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[contractID]
	if !ok {
		return nil, errors.Errorf("no contract registered for [%s]", contractID)
	}
	return c, nil
}

// VerifyTransaction runs every contract referenced by the transaction's
// states and returns the union of the satisfied commands.
func (r *ContractRegistry) VerifyTransaction(tx *WireTransaction) ([]Command, error) {
	var satisfied []Command
	for _, contractID := range referencedContracts(tx) {
		contract, err := r.Get(contractID)
		if err != nil {
			return nil, err
		}
		cmds, err := contract.Verify(tx)
		if err != nil {
			return nil, err
		}
		satisfied = append(satisfied, cmds...)
	}
	return satisfied, nil
}

func referencedContracts(tx *WireTransaction) []string {
	var ids []string
	seen := map[string]bool{}
	for _, st := range tx.InputStates {
		if !seen[st.ContractID] {
			seen[st.ContractID] = true
			ids = append(ids, st.ContractID)
		}
	}
	for _, st := range tx.Outputs {
		if !seen[st.ContractID] {
			seen[st.ContractID] = true
			ids = append(ids, st.ContractID)
		}
	}
	return ids
}
