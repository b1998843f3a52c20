/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/ledger/services/endorser"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/assert"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/session"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/contracts"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

// TerminateView unwinds part or all of a loan. A partial termination issues
// a replacement loan with the reduced quantity under the same linear id. The
// caller returns its side of the terminated slice: proportional cash
// collateral when the caller is the lender, securities when the caller is
// the borrower.
type TerminateView struct {
	w        *Wiring
	linearID string
	amount   int64
}

func NewTerminateView(w *Wiring, linearID string, amount int64) *TerminateView {
	return &TerminateView{w: w, linearID: linearID, amount: amount}
}

func (f *TerminateView) Call(context view.Context) (interface{}, error) {
	me := context.Me()

	current, err := FindLoan(f.w.Vault, f.linearID)
	if err != nil {
		return nil, err
	}
	loan := current.Loan
	other, err := counterparty(&loan, me)
	if err != nil {
		return nil, err
	}
	if f.amount <= 0 || f.amount > loan.Quantity {
		return nil, errors.Errorf("cannot terminate [%d] of a [%d] unit loan", f.amount, loan.Quantity)
	}

	b := ledger.NewBuilderWithNotary(f.w.Notary)
	if err := b.AddInput(current.Ref, current.State); err != nil {
		return nil, err
	}
	if f.amount == loan.Quantity {
		b.AddCommand(contracts.LoanExit, loan.Lender, loan.Borrower)
	} else {
		replacement := loan
		replacement.Quantity = loan.Quantity - f.amount
		if err := b.AddOutput(contracts.LoanContractID, &replacement); err != nil {
			return nil, err
		}
		b.AddCommand(contracts.LoanPartialExit, loan.Lender, loan.Borrower)
	}

	// the caller's return leg for the terminated slice
	b.AddCommand(contracts.ClaimMove, loan.Lender, loan.Borrower)
	if me.Equal(loan.Lender) {
		collateral := states.CollateralCents(f.amount, loan.StockPrice, loan.Terms.Margin)
		if err := f.w.Selector.Contribute(b, me, loan.Borrower, f.w.Currency, collateral); err != nil {
			return nil, wrapInsufficiency(err, "cannot cover the collateral return")
		}
	} else {
		if err := f.w.Selector.Contribute(b, me, loan.Lender, loan.Code, f.amount); err != nil {
			return nil, wrapInsufficiency(err, "cannot cover the securities return")
		}
	}

	s, err := session.NewJSON(context, f, other)
	if err != nil {
		return nil, err
	}
	if err := s.Send(b); err != nil {
		return nil, err
	}
	response := &builderResponse{}
	if err := s.Receive(response); err != nil {
		return nil, err
	}
	if err := checkExtends(b, response.Builder); err != nil {
		return nil, err
	}

	tx, err := response.Builder.Build()
	if err != nil {
		return nil, err
	}
	if _, err := f.w.Registry.VerifyTransaction(tx); err != nil {
		return nil, err
	}

	stx := ledger.NewSignedTransaction(tx)
	collect := endorser.NewCollectEndorsementsView(stx, me, other).WithDependencies(response.Dependencies...)
	if _, err := context.RunView(collect); err != nil {
		return nil, err
	}
	ftx, err := context.RunView(endorser.NewOrderingAndFinalityView(stx, other))
	if err != nil {
		return nil, wrapNotary(err)
	}
	return ftx, nil
}

// TerminateResponderView checks that the replacement loan and the return
// leg match the terminated slice, endorses and waits for finality.
type TerminateResponderView struct {
	w *Wiring
}

func NewTerminateResponderView(w *Wiring) *TerminateResponderView {
	return &TerminateResponderView{w: w}
}

func (f *TerminateResponderView) Call(context view.Context) (interface{}, error) {
	s := session.JSON(context)
	me := context.Me()

	b := &ledger.Builder{}
	assert.NoError(s.Receive(b), "failed receiving the termination proposal")

	inputs, err := loanStates(b.InputStates)
	assert.NoError(err, "failed inspecting the termination proposal")
	outputs, err := loanStates(b.Outputs)
	assert.NoError(err, "failed inspecting the termination proposal")
	assert.Equal(1, len(inputs), "termination consumes exactly one loan")
	assert.True(len(outputs) <= 1, "termination produces at most one replacement loan")
	loan := inputs[0]
	other, err := counterparty(&loan, me)
	assert.NoError(err, "terminating a loan this node is not part of")

	terminated := loan.Quantity
	if len(outputs) == 1 {
		assert.Equal(loan.LinearID, outputs[0].LinearID, "replacement loan must preserve the linear id")
		assert.True(outputs[0].Quantity < loan.Quantity, "replacement loan must reduce the quantity")
		terminated = loan.Quantity - outputs[0].Quantity
	}

	// the initiator's return leg must cover the terminated slice
	if other.Equal(loan.Lender) {
		expected := states.CollateralCents(terminated, loan.StockPrice, loan.Terms.Margin)
		returned, err := claimTotalTo(b.Outputs, me, f.w.Currency)
		assert.NoError(err, "failed inspecting the returned collateral")
		assert.Equal(expected, returned, "returned collateral does not match the terminated slice")
	} else {
		returned, err := claimTotalTo(b.Outputs, me, loan.Code)
		assert.NoError(err, "failed inspecting the returned securities")
		assert.Equal(terminated, returned, "returned securities do not match the terminated slice")
	}

	assert.NoError(s.Send(&builderResponse{Builder: b}), "failed returning the contribution")

	agreed, err := b.Build()
	assert.NoError(err, "failed freezing the agreed proposal")
	tx, err := endorser.ReceiveTransaction(context)
	assert.NoError(err, "failed receiving the termination transaction")
	assert.Equal(agreed.ID, tx.ID(), "received transaction differs from the agreed proposal")

	_, err = context.RunView(endorser.NewEndorseView(tx))
	assert.NoError(err, "failed endorsing the termination")
	return context.RunView(endorser.NewFinalityView(tx))
}
