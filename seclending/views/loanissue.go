/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"time"

	"github.com/google/uuid"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/ledger/services/endorser"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/assert"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/session"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/contracts"
	"github.com/P0ntiff/seclending-smart-client/seclending/oracle"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

// LoanIssueView runs the borrower side of loan issuance: it proposes terms
// at the oracle's current price, posts cash collateral of
// quantity*price*(1+margin/100), and receives the securities from the
// lender. The oracle co-signs the priced command within the validity
// window.
type LoanIssueView struct {
	w        *Wiring
	lender   view.Identity
	code     string
	quantity int64
	terms    states.Terms
}

func NewLoanIssueView(w *Wiring, lender view.Identity, code string, quantity int64, terms states.Terms) *LoanIssueView {
	return &LoanIssueView{w: w, lender: lender, code: code, quantity: quantity, terms: terms}
}

func (f *LoanIssueView) Call(context view.Context) (interface{}, error) {
	me := context.Me()

	price, err := f.w.Oracle.Query(f.code)
	if err != nil {
		return nil, err
	}
	offer := &LoanOffer{
		Code:           f.code,
		Quantity:       f.quantity,
		Price:          price,
		Lender:         f.lender,
		Margin:         f.terms.Margin,
		RebatePercent:  f.terms.RebatePercent,
		CollateralType: f.terms.CollateralType,
		LengthDays:     f.terms.LengthDays,
	}

	s, err := session.NewJSON(context, f, f.lender)
	if err != nil {
		return nil, err
	}
	if err := s.Send(offer); err != nil {
		return nil, err
	}
	var accepted bool
	if err := s.Receive(&accepted); err != nil {
		return nil, err
	}
	if !accepted {
		return nil, &AgreementException{Reason: "lender declined the loan offer"}
	}

	loan := &states.SecurityLoan{
		Quantity:   f.quantity,
		Code:       f.code,
		Lender:     f.lender,
		Borrower:   me,
		StockPrice: price,
		Terms:      f.terms,
	}
	loan.SetLinearID(uuid.New().String())

	b := ledger.NewBuilderWithNotary(f.w.Notary)
	b.SetTimeWindow(time.Now(), f.w.window())
	if err := b.AddOutput(contracts.LoanContractID, loan); err != nil {
		return nil, err
	}
	b.AddCommand(contracts.LoanIssue, f.lender, me)
	if err := b.AddCommandWithData(oracle.PriceCommand,
		&oracle.PriceAssertion{Code: f.code, Price: price}, f.w.Oracle.Identity()); err != nil {
		return nil, err
	}

	// collateral leg: the borrower posts cash to the lender
	collateral := states.CollateralCents(f.quantity, price, f.terms.Margin)
	if err := f.w.Selector.Contribute(b, me, f.lender, f.w.Currency, collateral); err != nil {
		return nil, wrapInsufficiency(err, "cannot cover the collateral of the loan")
	}
	b.AddCommand(contracts.ClaimMove, f.lender, me)

	// the lender appends the securities leg
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
	collect := endorser.NewCollectEndorsementsView(stx, me, f.lender).WithDependencies(response.Dependencies...)
	if _, err := context.RunView(collect); err != nil {
		return nil, err
	}

	// the oracle sees only the pricing command
	redacted, err := ledger.NewFilteredTransaction(tx, oracle.RevealPricing)
	if err != nil {
		return nil, err
	}
	sig, err := f.w.Oracle.Sign(redacted)
	if err != nil {
		return nil, err
	}
	stx.Signatures = append(stx.Signatures, *sig)

	ftx, err := context.RunView(endorser.NewOrderingAndFinalityView(stx, f.lender))
	if err != nil {
		return nil, wrapNotary(err)
	}
	return ftx, nil
}

// LoanIssueResponderView runs the lender side: it checks the offered terms
// and the posted collateral, delivers the securities, endorses and waits
// for finality. Offers are accepted as proposed unless an approver is set.
type LoanIssueResponderView struct {
	w        *Wiring
	approver func(*LoanOffer) bool
}

func NewLoanIssueResponderView(w *Wiring) *LoanIssueResponderView {
	return &LoanIssueResponderView{w: w}
}

// WithApprover installs a policy consulted before accepting an offer
func (f *LoanIssueResponderView) WithApprover(approver func(*LoanOffer) bool) *LoanIssueResponderView {
	f.approver = approver
	return f
}

func (f *LoanIssueResponderView) Call(context view.Context) (interface{}, error) {
	s := session.JSON(context)
	me := context.Me()

	offer := &LoanOffer{}
	assert.NoError(s.Receive(offer), "failed receiving the loan offer")
	assert.True(offer.Lender.Equal(me), "loan offer names a different lender")
	if f.approver != nil && !f.approver(offer) {
		assert.NoError(s.Send(false), "failed declining the offer")
		return nil, &AgreementException{Reason: "loan offer declined"}
	}
	assert.NoError(s.Send(true), "failed accepting the offer")

	b := &ledger.Builder{}
	assert.NoError(s.Receive(b), "failed receiving the loan proposal")

	// the loan state must match the accepted offer
	loans, err := loanStates(b.Outputs)
	assert.NoError(err, "failed inspecting the loan proposal")
	assert.Equal(1, len(loans), "loan proposal must carry exactly one loan state")
	loan := loans[0]
	assert.Equal(offer.Quantity, loan.Quantity, "loan quantity differs from the offer")
	assert.Equal(offer.Code, loan.Code, "loan code differs from the offer")
	assert.Equal(offer.Margin, loan.Terms.Margin, "loan margin differs from the offer")
	assert.True(loan.Lender.Equal(me), "loan state names a different lender")
	assert.NotEmpty(loan.LinearID, "loan state carries no linear id")

	// the posted collateral must match the agreed formula exactly
	expected := states.CollateralCents(offer.Quantity, offer.Price, offer.Margin)
	posted, err := claimTotalTo(b.Outputs, me, f.w.Currency)
	assert.NoError(err, "failed inspecting the posted collateral")
	assert.Equal(expected, posted, "posted collateral does not match the agreed terms")

	// securities leg: deliver the borrowed code
	before := len(b.Inputs)
	if err := f.w.Selector.Contribute(b, me, loan.Borrower, offer.Code, offer.Quantity); err != nil {
		return nil, wrapInsufficiency(err, "cannot cover the securities leg of the loan")
	}
	deps, err := dependenciesFor(f.w.Vault, b.Inputs[before:])
	assert.NoError(err, "failed resolving dependencies of the securities leg")
	assert.NoError(s.Send(&builderResponse{Builder: b, Dependencies: deps}), "failed returning the contribution")

	agreed, err := b.Build()
	assert.NoError(err, "failed freezing the agreed proposal")
	tx, err := endorser.ReceiveTransaction(context)
	assert.NoError(err, "failed receiving the loan transaction")
	assert.Equal(agreed.ID, tx.ID(), "received transaction differs from the agreed proposal")

	_, err = context.RunView(endorser.NewEndorseView(tx))
	assert.NoError(err, "failed endorsing the loan transaction")
	return context.RunView(endorser.NewFinalityView(tx))
}
