/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package selector

import (
	"fmt"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/contracts"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

var logger = flogging.MustGetLogger("seclending.selector")

// InsufficientHolding reports that the caller does not hold enough of a
// code to satisfy a selection. Recoverable only by the caller asking for
// different parameters, never retried internally.
type InsufficientHolding struct {
	Missing int64
	Code    string
}

func (e *InsufficientHolding) Error() string {
	return fmt.Sprintf("insufficient holding of [%s], missing [%d]", e.Code, e.Missing)
}

// ClaimAndRef pairs a decoded fungible claim with the vault entry it came from
type ClaimAndRef struct {
	Ref   ledger.StateRef
	State ledger.TransactionState
	Claim states.FungibleClaim
}

// Service selects unspent fungible claims from a vault to cover requested
// quantities. Selection is pure, it performs no locking and reserves
// nothing, double-spend prevention is the notary's job at finality.
type Service struct {
	vault *ledger.Vault
}

func New(vault *ledger.Vault) *Service {
	return &Service{vault: vault}
}

// Select gathers unspent claims of the passed code owned by owner until
// the requested quantity is covered. The result is the exact prefix of the
// vault's insertion order that first crosses the threshold, no
// minimal-cardinality or minimal-change optimization.
func (s *Service) Select(owner view.Identity, code string, quantity int64) ([]ClaimAndRef, int64, error) {
	var candidates []ClaimAndRef
	for _, entry := range s.vault.Unspent(contracts.ClaimContractID) {
		claim := states.FungibleClaim{}
		if err := entry.State.Decode(&claim); err != nil {
			return nil, 0, err
		}
		candidates = append(candidates, ClaimAndRef{Ref: entry.Ref, State: entry.State, Claim: claim})
	}
	return SelectFrom(candidates, owner, code, quantity)
}

// SelectFrom is the pure selection over an explicit candidate list
func SelectFrom(candidates []ClaimAndRef, owner view.Identity, code string, quantity int64) ([]ClaimAndRef, int64, error) {
	var gathered []ClaimAndRef
	var total int64
	for _, candidate := range candidates {
		if candidate.Claim.Code != code || !candidate.Claim.Owner.Equal(owner) {
			continue
		}
		gathered = append(gathered, candidate)
		total += candidate.Claim.Quantity
		if total >= quantity {
			logger.Debugf("selected [%d] states covering [%d] of [%s], requested [%d]", len(gathered), total, code, quantity)
			return gathered, total, nil
		}
	}
	return nil, 0, &InsufficientHolding{Missing: quantity - total, Code: code}
}

// Contribute appends to the passed builder the inputs and outputs moving
// quantity of code from sender to recipient. Every gathered state is fully
// reassigned to the recipient except the last, from which the change is
// carved and returned to the sender as a separate output.
func (s *Service) Contribute(b *ledger.Builder, sender, recipient view.Identity, code string, quantity int64) error {
	gathered, total, err := s.Select(sender, code, quantity)
	if err != nil {
		return err
	}
	change := total - quantity
	for i, g := range gathered {
		if err := b.AddInput(g.Ref, g.State); err != nil {
			return err
		}
		out := g.Claim
		out.Owner = recipient
		if i == len(gathered)-1 {
			out.Quantity = g.Claim.Quantity - change
		}
		if err := b.AddOutput(contracts.ClaimContractID, &out); err != nil {
			return err
		}
	}
	if change > 0 {
		last := gathered[len(gathered)-1].Claim
		last.Quantity = change
		if err := b.AddOutput(contracts.ClaimContractID, &last); err != nil {
			return err
		}
	}
	return nil
}
