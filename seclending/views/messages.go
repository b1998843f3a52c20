/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

// Protocol messages travel in strict alternating order, their type is
// positional: offer, boolean acceptance, builder, builder response, signed
// transaction, finalized transaction. Nothing is self-describing in-band.

// MarketOffer proposes an outright sale of securities against cash
type MarketOffer struct {
	Code     string        `json:"code"`
	Quantity int64         `json:"quantity"`
	Price    states.Amount `json:"price"`
	Seller   view.Identity `json:"seller"`
}

// LoanOffer proposes a securities loan: the sender is the would-be
// borrower, Lender the counterparty asked to deliver the securities.
type LoanOffer struct {
	Code           string        `json:"code"`
	Quantity       int64         `json:"quantity"`
	Price          states.Amount `json:"price"`
	Lender         view.Identity `json:"lender"`
	Margin         float64       `json:"margin"`
	RebatePercent  float64       `json:"rebate_percent"`
	CollateralType string        `json:"collateral_type"`
	LengthDays     int           `json:"length_days"`
}

// builderResponse carries the counterparty's contribution back: the
// extended builder plus the finalized transactions backing the inputs it
// added, which this node's vault has never seen.
type builderResponse struct {
	Builder      *ledger.Builder                `json:"builder"`
	Dependencies []*ledger.FinalizedTransaction `json:"dependencies,omitempty"`
}
