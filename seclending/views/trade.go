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
)

// TradeView runs the seller side of a delivery-versus-payment trade: the
// offered securities move to the buyer against cash at the offered price,
// atomically in one transaction.
type TradeView struct {
	w     *Wiring
	buyer view.Identity
	offer *MarketOffer
}

func NewTradeView(w *Wiring, buyer view.Identity, offer *MarketOffer) *TradeView {
	return &TradeView{w: w, buyer: buyer, offer: offer}
}

func (f *TradeView) Call(context view.Context) (interface{}, error) {
	me := context.Me()
	f.offer.Seller = me

	s, err := session.NewJSON(context, f, f.buyer)
	if err != nil {
		return nil, err
	}
	if err := s.Send(f.offer); err != nil {
		return nil, err
	}
	var accepted bool
	if err := s.Receive(&accepted); err != nil {
		return nil, err
	}
	if !accepted {
		return nil, &AgreementException{Reason: "buyer declined the offer"}
	}

	// the securities leg
	b := ledger.NewBuilderWithNotary(f.w.Notary)
	if err := f.w.Selector.Contribute(b, me, f.buyer, f.offer.Code, f.offer.Quantity); err != nil {
		return nil, wrapInsufficiency(err, "cannot cover the security leg of the trade")
	}
	b.AddCommand(contracts.ClaimMove, me, f.buyer)

	// the buyer appends the cash leg
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
	collect := endorser.NewCollectEndorsementsView(stx, me, f.buyer).WithDependencies(response.Dependencies...)
	if _, err := context.RunView(collect); err != nil {
		return nil, err
	}
	ftx, err := context.RunView(endorser.NewOrderingAndFinalityView(stx, f.buyer))
	if err != nil {
		return nil, wrapNotary(err)
	}
	return ftx, nil
}

// TradeResponderView runs the buyer side: it accepts the offer, pays the
// offered price out of its own cash holdings, endorses the combined
// transaction and waits for finality.
type TradeResponderView struct {
	w *Wiring
}

func NewTradeResponderView(w *Wiring) *TradeResponderView {
	return &TradeResponderView{w: w}
}

func (f *TradeResponderView) Call(context view.Context) (interface{}, error) {
	s := session.JSON(context)
	me := context.Me()

	offer := &MarketOffer{}
	assert.NoError(s.Receive(offer), "failed receiving the market offer")
	// accept-only negotiation, there is no counter-offer loop
	assert.NoError(s.Send(true), "failed accepting the offer")

	b := &ledger.Builder{}
	assert.NoError(s.Receive(b), "failed receiving the trade proposal")

	// the seller leg must deliver what was offered before any cash moves
	delivered, err := claimTotalTo(b.Outputs, me, offer.Code)
	assert.NoError(err, "failed inspecting the trade proposal")
	assert.Equal(offer.Quantity, delivered, "seller leg does not deliver the offered securities")

	cost := offer.Price.Quantity * offer.Quantity
	before := len(b.Inputs)
	if err := f.w.Selector.Contribute(b, me, offer.Seller, f.w.Currency, cost); err != nil {
		return nil, wrapInsufficiency(err, "cannot cover the cash leg of the trade")
	}
	deps, err := dependenciesFor(f.w.Vault, b.Inputs[before:])
	assert.NoError(err, "failed resolving dependencies of the cash leg")
	assert.NoError(s.Send(&builderResponse{Builder: b, Dependencies: deps}), "failed returning the contribution")

	// the agreed proposal comes back as a full transaction to endorse
	agreed, err := b.Build()
	assert.NoError(err, "failed freezing the agreed proposal")
	tx, err := endorser.ReceiveTransaction(context)
	assert.NoError(err, "failed receiving the trade transaction")
	assert.Equal(agreed.ID, tx.ID(), "received transaction differs from the agreed proposal")

	_, err = context.RunView(endorser.NewEndorseView(tx))
	assert.NoError(err, "failed endorsing the trade transaction")
	return context.RunView(endorser.NewFinalityView(tx))
}
