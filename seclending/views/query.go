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

// LoanAndRef pairs a decoded loan with the vault entry holding its current
// version.
type LoanAndRef struct {
	Ref   ledger.StateRef
	State ledger.TransactionState
	Loan  states.SecurityLoan
}

// UnspentLoans returns the open loans recorded in the vault
func UnspentLoans(vault *ledger.Vault) ([]LoanAndRef, error) {
	var loans []LoanAndRef
	for _, entry := range vault.Unspent(contracts.LoanContractID) {
		loan := states.SecurityLoan{}
		if err := entry.State.Decode(&loan); err != nil {
			return nil, err
		}
		loans = append(loans, LoanAndRef{Ref: entry.Ref, State: entry.State, Loan: loan})
	}
	return loans, nil
}

// FindLoan returns the single open loan with the passed linear id. It fails
// when there is none or, the lineage invariant being broken, more than one.
func FindLoan(vault *ledger.Vault, linearID string) (*LoanAndRef, error) {
	var matches []LoanAndRef
	loans, err := UnspentLoans(vault)
	if err != nil {
		return nil, err
	}
	for _, l := range loans {
		if l.Loan.LinearID == linearID {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		return nil, errors.Errorf("no open loan with linear id [%s]", linearID)
	case 1:
		return &matches[0], nil
	default:
		return nil, errors.Errorf("found [%d] open loans with linear id [%s], expected one", len(matches), linearID)
	}
}

// LoansBetween returns the open loans between this node and the passed
// party. It is the netting precondition query: fewer than two matches is
// an error, there is nothing to net.
func LoansBetween(vault *ledger.Vault, me, party view.Identity) ([]LoanAndRef, error) {
	var matches []LoanAndRef
	loans, err := UnspentLoans(vault)
	if err != nil {
		return nil, err
	}
	for _, l := range loans {
		if l.Loan.IsBetween(me, party) {
			matches = append(matches, l)
		}
	}
	if len(matches) <= 1 {
		return nil, errors.Errorf("found [%d] open loans with [%s], at least two required", len(matches), party)
	}
	return matches, nil
}

// LoansBetweenView runs the netting-precondition query as a view, for the
// web surface.
type LoansBetweenView struct {
	w     *Wiring
	party view.Identity
}

func NewLoansBetweenView(w *Wiring, party view.Identity) *LoansBetweenView {
	return &LoansBetweenView{w: w, party: party}
}

func (f *LoansBetweenView) Call(context view.Context) (interface{}, error) {
	return LoansBetween(f.w.Vault, context.Me(), f.party)
}

// RetrieveLoanView returns the current version of a loan by linear id
type RetrieveLoanView struct {
	w        *Wiring
	linearID string
}

func NewRetrieveLoanView(w *Wiring, linearID string) *RetrieveLoanView {
	return &RetrieveLoanView{w: w, linearID: linearID}
}

func (f *RetrieveLoanView) Call(context view.Context) (interface{}, error) {
	return FindLoan(f.w.Vault, f.linearID)
}
