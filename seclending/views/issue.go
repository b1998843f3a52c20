/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/ledger/services/endorser"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/contracts"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

// IssueClaimView self-issues a fungible claim: a quantity of a security
// code, or cash when the code is the collateral currency. Zero inputs, one
// output, no counterparty involved.
type IssueClaimView struct {
	w         *Wiring
	code      string
	quantity  int64
	reference string
}

func NewIssueClaimView(w *Wiring, code string, quantity int64, reference string) *IssueClaimView {
	return &IssueClaimView{w: w, code: code, quantity: quantity, reference: reference}
}

func (f *IssueClaimView) Call(context view.Context) (interface{}, error) {
	me := context.Me()

	// a fresh issue builder carries no notary, finality assigns it
	b := ledger.NewBuilder()
	claim := &states.FungibleClaim{
		Issuance: states.Issuance{Issuer: me, Reference: f.reference},
		Owner:    me,
		Code:     f.code,
		Quantity: f.quantity,
	}
	if err := b.AddOutput(contracts.ClaimContractID, claim); err != nil {
		return nil, err
	}
	b.AddCommand(contracts.ClaimIssue, me)
	if err := b.SetNotary(f.w.Notary); err != nil {
		return nil, err
	}

	tx, err := b.Build()
	if err != nil {
		return nil, err
	}
	if _, err := f.w.Registry.VerifyTransaction(tx); err != nil {
		return nil, err
	}

	stx := ledger.NewSignedTransaction(tx)
	if _, err := context.RunView(endorser.NewCollectEndorsementsView(stx, me)); err != nil {
		return nil, err
	}
	ftx, err := context.RunView(endorser.NewOrderingAndFinalityView(stx))
	if err != nil {
		return nil, wrapNotary(errors.WithMessagef(err, "failed finalizing issue of [%d] [%s]", f.quantity, f.code))
	}
	return ftx, nil
}
