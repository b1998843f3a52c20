/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/contracts"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

// counterparty returns the other party of a loan this node is part of
func counterparty(loan *states.SecurityLoan, me view.Identity) (view.Identity, error) {
	switch {
	case loan.Lender.Equal(me):
		return loan.Borrower, nil
	case loan.Borrower.Equal(me):
		return loan.Lender, nil
	default:
		return nil, errors.Errorf("not a party to loan [%s]", loan.LinearID)
	}
}

// checkExtends verifies that the returned builder contains this node's
// original contribution unchanged as a prefix, the counterparty may only
// append.
func checkExtends(original, extended *ledger.Builder) error {
	if len(extended.Inputs) < len(original.Inputs) ||
		len(extended.Outputs) < len(original.Outputs) ||
		len(extended.Commands) < len(original.Commands) {
		return errors.New("counterparty removed entries from the proposal")
	}
	for i, in := range original.Inputs {
		if extended.Inputs[i] != in {
			return errors.New("counterparty altered a proposed input")
		}
	}
	for i, out := range original.Outputs {
		if extended.Outputs[i].ContractID != out.ContractID || string(extended.Outputs[i].Raw) != string(out.Raw) {
			return errors.New("counterparty altered a proposed output")
		}
	}
	for i, cmd := range original.Commands {
		got := extended.Commands[i]
		if got.Name != cmd.Name || string(got.Data) != string(cmd.Data) || !sameSigners(got.Signers, cmd.Signers) {
			return errors.New("counterparty altered a proposed command")
		}
	}
	return nil
}

func sameSigners(a, b view.Identities) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// dependenciesFor resolves from the vault the finalized transactions,
// transitively, behind the passed input references.
func dependenciesFor(vault *ledger.Vault, refs []ledger.StateRef) ([]*ledger.FinalizedTransaction, error) {
	return ledger.ResolveTransitiveDependencies(&ledger.WireTransaction{Inputs: refs}, vault.GetTransaction)
}

// claimTotalTo sums the claim outputs of the passed code owned by owner
func claimTotalTo(outputs []ledger.TransactionState, owner view.Identity, code string) (int64, error) {
	var total int64
	for _, st := range outputs {
		if st.ContractID != contracts.ClaimContractID {
			continue
		}
		claim := states.FungibleClaim{}
		if err := st.Decode(&claim); err != nil {
			return 0, err
		}
		if claim.Code == code && claim.Owner.Equal(owner) {
			total += claim.Quantity
		}
	}
	return total, nil
}

// loanStates decodes the security loans among the passed transaction states
func loanStates(txStates []ledger.TransactionState) ([]states.SecurityLoan, error) {
	var loans []states.SecurityLoan
	for _, st := range txStates {
		if st.ContractID != contracts.LoanContractID {
			continue
		}
		loan := states.SecurityLoan{}
		if err := st.Decode(&loan); err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, nil
}
