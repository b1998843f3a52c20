/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/ledger/services/endorser"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/assert"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/session"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/contracts"
	"github.com/P0ntiff/seclending-smart-client/seclending/oracle"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

// NetResult is the net position of a set of bilateral loans, normalized to
// one price. Both parties compute it independently from the same inputs and
// must agree on every figure exactly.
type NetResult struct {
	Quantity   int64
	Lender     view.Identity
	Borrower   view.Identity
	Collateral int64
	// CashDelta is what the net borrower still owes the net lender on top
	// of the collateral already posted across the old loans. Negative means
	// the net lender returns the excess.
	CashDelta int64
}

// NetPosition nets the passed loans between me and other at the passed
// price. Collateral figures use the float64 quantity*price*(1+margin/100)
// formula per loan, normalized to the current price.
func NetPosition(me, other view.Identity, loans []states.SecurityLoan, price states.Amount) (*NetResult, error) {
	if len(loans) < 2 {
		return nil, errors.Errorf("at least two loans to net, got [%d]", len(loans))
	}
	var shares int64
	for _, l := range loans {
		if !l.IsBetween(me, other) {
			return nil, errors.Errorf("loan [%s] is not between the netting parties", l.LinearID)
		}
		if l.Code != loans[0].Code {
			return nil, errors.Errorf("loan [%s] is over a different code", l.LinearID)
		}
		if l.Lender.Equal(me) {
			shares += l.Quantity
		} else {
			shares -= l.Quantity
		}
	}
	if shares == 0 {
		return nil, errors.New("positions offset exactly, nothing to net")
	}

	lender, borrower := me, other
	if shares < 0 {
		lender, borrower, shares = other, me, -shares
	}
	collateral := states.CollateralCents(shares, price, loans[0].Terms.Margin)
	var posted int64
	for _, l := range loans {
		c := states.CollateralCents(l.Quantity, price, l.Terms.Margin)
		if l.Lender.Equal(lender) {
			posted += c
		} else {
			posted -= c
		}
	}
	return &NetResult{
		Quantity:   shares,
		Lender:     lender,
		Borrower:   borrower,
		Collateral: collateral,
		CashDelta:  collateral - posted,
	}, nil
}

// LoanNetView folds a set of open loans with one counterparty into a single
// net loan at the oracle's current price. Loans recorded at a stale price
// are first marked to market, each through a chained margin-update
// sub-protocol, then the normalized states are consumed and the remaining
// collateral difference settles in cash.
type LoanNetView struct {
	w         *Wiring
	other     view.Identity
	linearIDs []string
}

func NewLoanNetView(w *Wiring, other view.Identity, linearIDs ...string) *LoanNetView {
	return &LoanNetView{w: w, other: other, linearIDs: linearIDs}
}

func (f *LoanNetView) Call(context view.Context) (interface{}, error) {
	me := context.Me()

	var refs []*LoanAndRef
	var loans []states.SecurityLoan
	for _, id := range f.linearIDs {
		ref, err := FindLoan(f.w.Vault, id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
		loans = append(loans, ref.Loan)
	}
	if len(loans) < 2 {
		return nil, errors.Errorf("at least two loans to net, got [%d]", len(loans))
	}

	price, err := f.w.Oracle.Query(loans[0].Code)
	if err != nil {
		return nil, err
	}

	// mark stale loans to market first, each a chained update transaction,
	// so the net consumes states already priced at the current figure
	for i, ref := range refs {
		if ref.Loan.StockPrice.Equal(price) {
			continue
		}
		if _, err := context.RunView(NewMarkToMarketView(f.w, ref.Loan.LinearID), view.AsInitiator()); err != nil {
			return nil, errors.Wrapf(err, "failed marking loan [%s] to market", ref.Loan.LinearID)
		}
		mutable, ok := context.(view.MutableContext)
		if !ok {
			return nil, errors.New("context cannot chain sub-protocols")
		}
		if err := mutable.ResetSessions(); err != nil {
			return nil, err
		}
		fresh, err := FindLoan(f.w.Vault, ref.Loan.LinearID)
		if err != nil {
			return nil, err
		}
		refs[i], loans[i] = fresh, fresh.Loan
	}

	net, err := NetPosition(me, f.other, loans, price)
	if err != nil {
		return nil, err
	}

	netLoan := &states.SecurityLoan{
		Quantity:   net.Quantity,
		Code:       loans[0].Code,
		Lender:     net.Lender,
		Borrower:   net.Borrower,
		StockPrice: price,
		Terms:      loans[0].Terms,
	}
	netLoan.SetLinearID(uuid.New().String())

	b := ledger.NewBuilderWithNotary(f.w.Notary)
	b.SetTimeWindow(time.Now(), f.w.window())
	for _, ref := range refs {
		if err := b.AddInput(ref.Ref, ref.State); err != nil {
			return nil, err
		}
	}
	if err := b.AddOutput(contracts.LoanContractID, netLoan); err != nil {
		return nil, err
	}
	b.AddCommand(contracts.LoanNet, me, f.other)
	if err := b.AddCommandWithData(oracle.PriceCommand,
		&oracle.PriceAssertion{Code: netLoan.Code, Price: price}, f.w.Oracle.Identity()); err != nil {
		return nil, err
	}

	if net.CashDelta != 0 {
		b.AddCommand(contracts.ClaimMove, me, f.other)
		payer, payee, amount := net.Borrower, net.Lender, net.CashDelta
		if net.CashDelta < 0 {
			payer, payee, amount = net.Lender, net.Borrower, -net.CashDelta
		}
		if me.Equal(payer) {
			if err := f.w.Selector.Contribute(b, payer, payee, f.w.Currency, amount); err != nil {
				return nil, wrapInsufficiency(err, "cannot cover the net collateral settlement")
			}
		}
	}

	s, err := session.NewJSON(context, f, f.other)
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
	collect := endorser.NewCollectEndorsementsView(stx, me, f.other).WithDependencies(response.Dependencies...)
	if _, err := context.RunView(collect); err != nil {
		return nil, err
	}

	redacted, err := ledger.NewFilteredTransaction(tx, oracle.RevealPricing)
	if err != nil {
		return nil, err
	}
	sig, err := f.w.Oracle.Sign(redacted)
	if err != nil {
		return nil, err
	}
	stx.Signatures = append(stx.Signatures, *sig)

	ftx, err := context.RunView(endorser.NewOrderingAndFinalityView(stx, f.other))
	if err != nil {
		return nil, wrapNotary(err)
	}
	return ftx, nil
}

// LoanNetResponderView recomputes the net position from the proposal's own
// inputs at its own oracle price and refuses to proceed unless every figure
// matches. The consumed loans must already be marked to the current price.
// It settles the collateral difference when it is the paying side.
type LoanNetResponderView struct {
	w *Wiring
}

func NewLoanNetResponderView(w *Wiring) *LoanNetResponderView {
	return &LoanNetResponderView{w: w}
}

func (f *LoanNetResponderView) Call(context view.Context) (interface{}, error) {
	s := session.JSON(context)
	me := context.Me()

	b := &ledger.Builder{}
	assert.NoError(s.Receive(b), "failed receiving the netting proposal")

	inputs, err := loanStates(b.InputStates)
	assert.NoError(err, "failed inspecting the netting proposal")
	outputs, err := loanStates(b.Outputs)
	assert.NoError(err, "failed inspecting the netting proposal")
	assert.True(len(inputs) >= 2, "netting consumes at least two loans")
	assert.Equal(1, len(outputs), "netting produces exactly one loan")
	netLoan := outputs[0]
	other, err := counterparty(&netLoan, me)
	assert.NoError(err, "netting a position this node is not part of")

	price, err := f.w.Oracle.Query(netLoan.Code)
	assert.NoError(err, "no price for the netted code")
	assert.True(netLoan.StockPrice.Equal(price), "net loan is not priced at this node's oracle price")
	for _, in := range inputs {
		assert.True(in.StockPrice.Equal(price), "netted loan was not marked to the current price")
	}
	net, err := NetPosition(me, other, inputs, price)
	assert.NoError(err, "failed recomputing the net position")
	assert.Equal(net.Quantity, netLoan.Quantity, "net loan quantity does not match this node's computation")
	assert.True(net.Lender.Equal(netLoan.Lender), "net loan direction does not match this node's computation")
	assert.Equal(net.Collateral, netLoan.CollateralCents(), "net collateral does not match this node's computation")

	before := len(b.Inputs)
	if net.CashDelta > 0 && me.Equal(net.Borrower) {
		if err := f.w.Selector.Contribute(b, me, net.Lender, f.w.Currency, net.CashDelta); err != nil {
			return nil, wrapInsufficiency(err, "cannot cover the net collateral settlement")
		}
	}
	if net.CashDelta < 0 && me.Equal(net.Lender) {
		if err := f.w.Selector.Contribute(b, me, net.Borrower, f.w.Currency, -net.CashDelta); err != nil {
			return nil, wrapInsufficiency(err, "cannot cover the net collateral return")
		}
	}
	deps, err := dependenciesFor(f.w.Vault, b.Inputs[before:])
	assert.NoError(err, "failed resolving dependencies of the settlement leg")
	assert.NoError(s.Send(&builderResponse{Builder: b, Dependencies: deps}), "failed returning the contribution")

	agreed, err := b.Build()
	assert.NoError(err, "failed freezing the agreed proposal")
	tx, err := endorser.ReceiveTransaction(context)
	assert.NoError(err, "failed receiving the netting transaction")
	assert.Equal(agreed.ID, tx.ID(), "received transaction differs from the agreed proposal")

	_, err = context.RunView(endorser.NewEndorseView(tx))
	assert.NoError(err, "failed endorsing the netting transaction")
	return context.RunView(endorser.NewFinalityView(tx))
}
