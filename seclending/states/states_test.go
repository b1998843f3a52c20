/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

func TestAmountConversions(t *testing.T) {
	a := AmountFromFloat(100.0, "USD")
	assert.Equal(t, int64(10000), a.Quantity)
	assert.Equal(t, 100.0, a.Float())
	assert.Equal(t, "100.00 USD", a.String())

	// rounds to the nearest cent
	assert.Equal(t, int64(3333), AmountFromFloat(33.333, "USD").Quantity)
	assert.Equal(t, int64(3334), AmountFromFloat(33.335, "USD").Quantity)

	assert.True(t, NewAmount(10000, "USD").Equal(a))
	assert.False(t, NewAmount(10000, "GBP").Equal(a))
	assert.False(t, NewAmount(10001, "USD").Equal(a))
}

func TestCollateralCents(t *testing.T) {
	price := NewAmount(10000, "USD") // 100.00 per unit

	// 500 units at 100.00 with 5% margin: 500*100*1.05 = 52500.00
	assert.Equal(t, int64(5250000), CollateralCents(500, price, 5))
	// 200 units at 100.00 with 5% margin: 21000.00
	assert.Equal(t, int64(2100000), CollateralCents(200, price, 5))
	// zero margin is plain market value
	assert.Equal(t, int64(5000000), CollateralCents(500, price, 0))

	loan := SecurityLoan{
		Quantity:   500,
		Code:       "GBT",
		StockPrice: price,
		Terms:      Terms{Margin: 5},
	}
	assert.Equal(t, int64(5250000), loan.CollateralCents())
}

func TestGroupKeySeparatesIssuances(t *testing.T) {
	bank := view.Identity("bank")
	other := view.Identity("other")

	a := FungibleClaim{Issuance: Issuance{Issuer: bank, Reference: "ref"}, Code: "GBT"}
	b := FungibleClaim{Issuance: Issuance{Issuer: bank, Reference: "ref"}, Code: "GBT"}
	assert.Equal(t, a.GroupKey(), b.GroupKey())

	c := FungibleClaim{Issuance: Issuance{Issuer: other, Reference: "ref"}, Code: "GBT"}
	d := FungibleClaim{Issuance: Issuance{Issuer: bank, Reference: "other-ref"}, Code: "GBT"}
	e := FungibleClaim{Issuance: Issuance{Issuer: bank, Reference: "ref"}, Code: "USD"}
	assert.NotEqual(t, a.GroupKey(), c.GroupKey())
	assert.NotEqual(t, a.GroupKey(), d.GroupKey())
	assert.NotEqual(t, a.GroupKey(), e.GroupKey())
}

func TestSetLinearIDAssignsOnce(t *testing.T) {
	loan := SecurityLoan{}
	assert.Equal(t, "first", loan.SetLinearID("first"))
	assert.Equal(t, "first", loan.SetLinearID("second"))
	assert.Equal(t, "first", loan.LinearID)
}

func TestIsBetween(t *testing.T) {
	alice := view.Identity("alice")
	bob := view.Identity("bob")
	charlie := view.Identity("charlie")

	loan := SecurityLoan{Lender: alice, Borrower: bob}
	assert.True(t, loan.IsBetween(alice, bob))
	assert.True(t, loan.IsBetween(bob, alice))
	assert.False(t, loan.IsBetween(alice, charlie))
	assert.ElementsMatch(t, []view.Identity{alice, bob}, loan.Owners())
}
