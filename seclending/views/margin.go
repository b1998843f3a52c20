/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/ledger/services/endorser"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/assert"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/session"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/contracts"
	"github.com/P0ntiff/seclending-smart-client/seclending/oracle"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

// MarginUpdateView re-issues a loan under new terms: a new state version
// with the same linear id, plus a cash leg moving the collateral delta. The
// borrower tops up when the requirement rises, the lender returns the
// excess when it falls.
type MarginUpdateView struct {
	w         *Wiring
	linearID  string
	newMargin float64
	reprice   bool
}

func NewMarginUpdateView(w *Wiring, linearID string, newMargin float64) *MarginUpdateView {
	return &MarginUpdateView{w: w, linearID: linearID, newMargin: newMargin}
}

// NewMarkToMarketView re-prices a loan at the oracle's current price,
// keeping the margin. The oracle co-signs the new price and the collateral
// delta settles like any other margin update.
func NewMarkToMarketView(w *Wiring, linearID string) *MarginUpdateView {
	return &MarginUpdateView{w: w, linearID: linearID, reprice: true}
}

func (f *MarginUpdateView) Call(context view.Context) (interface{}, error) {
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

	updated := loan
	if f.reprice {
		price, err := f.w.Oracle.Query(loan.Code)
		if err != nil {
			return nil, err
		}
		updated.StockPrice = price
	} else {
		updated.Terms.Margin = f.newMargin
	}

	b := ledger.NewBuilderWithNotary(f.w.Notary)
	if err := b.AddInput(current.Ref, current.State); err != nil {
		return nil, err
	}
	if err := b.AddOutput(contracts.LoanContractID, &updated); err != nil {
		return nil, err
	}
	b.AddCommand(contracts.LoanUpdate, loan.Lender, loan.Borrower)
	if f.reprice {
		if err := b.AddCommandWithData(oracle.PriceCommand,
			&oracle.PriceAssertion{Code: updated.Code, Price: updated.StockPrice}, f.w.Oracle.Identity()); err != nil {
			return nil, err
		}
	}

	delta := updated.CollateralCents() - loan.CollateralCents()
	if delta != 0 {
		b.AddCommand(contracts.ClaimMove, loan.Lender, loan.Borrower)
		payer, payee, amount := loan.Borrower, loan.Lender, delta
		if delta < 0 {
			payer, payee, amount = loan.Lender, loan.Borrower, -delta
		}
		if me.Equal(payer) {
			if err := f.w.Selector.Contribute(b, payer, payee, f.w.Currency, amount); err != nil {
				return nil, wrapInsufficiency(err, "cannot cover the collateral delta")
			}
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
	if f.reprice {
		redacted, err := ledger.NewFilteredTransaction(tx, oracle.RevealPricing)
		if err != nil {
			return nil, err
		}
		sig, err := f.w.Oracle.Sign(redacted)
		if err != nil {
			return nil, err
		}
		stx.Signatures = append(stx.Signatures, *sig)
	}
	ftx, err := context.RunView(endorser.NewOrderingAndFinalityView(stx, other))
	if err != nil {
		return nil, wrapNotary(err)
	}
	return ftx, nil
}

// MarginUpdateResponderView signs a margin change unconditionally, there is
// no policy on whether the new margin is acceptable. A repriced loan must
// match this node's own oracle price. It contributes the collateral delta
// when it is the paying side.
type MarginUpdateResponderView struct {
	w *Wiring
}

func NewMarginUpdateResponderView(w *Wiring) *MarginUpdateResponderView {
	return &MarginUpdateResponderView{w: w}
}

func (f *MarginUpdateResponderView) Call(context view.Context) (interface{}, error) {
	s := session.JSON(context)
	me := context.Me()

	b := &ledger.Builder{}
	assert.NoError(s.Receive(b), "failed receiving the margin update proposal")

	inputs, err := loanStates(b.InputStates)
	assert.NoError(err, "failed inspecting the margin update proposal")
	outputs, err := loanStates(b.Outputs)
	assert.NoError(err, "failed inspecting the margin update proposal")
	assert.Equal(1, len(inputs), "margin update consumes exactly one loan")
	assert.Equal(1, len(outputs), "margin update produces exactly one loan")
	loan, updated := inputs[0], outputs[0]
	_, err = counterparty(&loan, me)
	assert.NoError(err, "margin update on a loan this node is not part of")
	assert.Equal(loan.LinearID, updated.LinearID, "margin update must preserve the linear id")
	if !updated.StockPrice.Equal(loan.StockPrice) {
		price, err := f.w.Oracle.Query(updated.Code)
		assert.NoError(err, "no price for the repriced code")
		assert.True(updated.StockPrice.Equal(price), "repriced loan does not match this node's oracle price")
	}

	delta := states.CollateralCents(updated.Quantity, updated.StockPrice, updated.Terms.Margin) -
		states.CollateralCents(loan.Quantity, loan.StockPrice, loan.Terms.Margin)
	before := len(b.Inputs)
	if delta > 0 && me.Equal(loan.Borrower) {
		if err := f.w.Selector.Contribute(b, me, loan.Lender, f.w.Currency, delta); err != nil {
			return nil, wrapInsufficiency(err, "cannot cover the collateral top-up")
		}
	}
	if delta < 0 && me.Equal(loan.Lender) {
		if err := f.w.Selector.Contribute(b, me, loan.Borrower, f.w.Currency, -delta); err != nil {
			return nil, wrapInsufficiency(err, "cannot cover the collateral return")
		}
	}
	deps, err := dependenciesFor(f.w.Vault, b.Inputs[before:])
	assert.NoError(err, "failed resolving dependencies of the collateral leg")
	assert.NoError(s.Send(&builderResponse{Builder: b, Dependencies: deps}), "failed returning the contribution")

	agreed, err := b.Build()
	assert.NoError(err, "failed freezing the agreed proposal")
	tx, err := endorser.ReceiveTransaction(context)
	assert.NoError(err, "failed receiving the margin update transaction")
	assert.Equal(agreed.ID, tx.ID(), "received transaction differs from the agreed proposal")

	_, err = context.RunView(endorser.NewEndorseView(tx))
	assert.NoError(err, "failed endorsing the margin update")
	return context.RunView(endorser.NewFinalityView(tx))
}
