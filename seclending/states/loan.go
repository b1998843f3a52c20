/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"math"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

// Terms are the economic terms of a securities loan. Margin and rebate are
// percentages, margin 5 means collateral of 105% of loan value.
type Terms struct {
	LengthDays     int     `json:"length_days"`
	Margin         float64 `json:"margin"`
	RebatePercent  float64 `json:"rebate_percent"`
	CollateralType string  `json:"collateral_type"`
}

// SecurityLoan is a linear record of an open securities loan between two
// parties. LinearID is stable across state versions of the same logical
// loan, margin updates, netting and partial terminations track lineage
// through it.
type SecurityLoan struct {
	Quantity   int64         `json:"quantity"`
	Code       string        `json:"code"`
	Lender     view.Identity `json:"lender"`
	Borrower   view.Identity `json:"borrower"`
	StockPrice Amount        `json:"stock_price"`
	Terms      Terms         `json:"terms"`
	LinearID   string        `json:"linear_id"`
}

// SetLinearID assigns the linear id if not already assigned, and returns
// the effective one.
func (l *SecurityLoan) SetLinearID(id string) string {
	if len(l.LinearID) == 0 {
		l.LinearID = id
	}
	return l.LinearID
}

// Owners returns the joint participants of the loan, no single party owns it
func (l *SecurityLoan) Owners() []view.Identity {
	return []view.Identity{l.Lender, l.Borrower}
}

// IsBetween returns true if the loan's parties are exactly the two passed
// identities, in either direction.
func (l *SecurityLoan) IsBetween(a, b view.Identity) bool {
	return (l.Lender.Equal(a) && l.Borrower.Equal(b)) || (l.Lender.Equal(b) && l.Borrower.Equal(a))
}

// CollateralCents returns the cash collateral securing the loan, in minor
// units of the collateral currency.
func (l *SecurityLoan) CollateralCents() int64 {
	return CollateralCents(l.Quantity, l.StockPrice, l.Terms.Margin)
}

// CollateralCents computes quantity * price * (1 + margin/100) in float64
// and rounds to the nearest cent. Both parties to an agreement compute this
// figure independently and must agree on it exactly, so any change here is
// a wire-compatibility change.
func CollateralCents(quantity int64, price Amount, margin float64) int64 {
	value := float64(quantity) * price.Float() * (1 + margin/100)
	return int64(math.Round(value * 100))
}
