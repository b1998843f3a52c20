/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

var (
	alice = view.Identity("alice")
	bob   = view.Identity("bob")
	carol = view.Identity("carol")
)

func testLoan(lender, borrower view.Identity, quantity int64, margin float64, linearID string) states.SecurityLoan {
	return states.SecurityLoan{
		Quantity:   quantity,
		Code:       "GBT",
		Lender:     lender,
		Borrower:   borrower,
		StockPrice: states.NewAmount(10000, "USD"),
		Terms:      states.Terms{LengthDays: 30, Margin: margin},
		LinearID:   linearID,
	}
}

func TestNetPosition(t *testing.T) {
	price := states.NewAmount(10000, "USD")
	loans := []states.SecurityLoan{
		testLoan(alice, bob, 500, 5, "loan-1"),
		testLoan(bob, alice, 200, 5, "loan-2"),
	}

	net, err := NetPosition(alice, bob, loans, price)
	require.NoError(t, err)
	assert.Equal(t, int64(300), net.Quantity)
	assert.True(t, net.Lender.Equal(alice))
	assert.True(t, net.Borrower.Equal(bob))
	// 300 * 100.00 * 1.05
	assert.Equal(t, int64(3150000), net.Collateral)
	// equal margins at the same price offset exactly, nothing to settle
	assert.Equal(t, int64(0), net.CashDelta)
}

func TestNetPositionIsSymmetric(t *testing.T) {
	price := states.NewAmount(10000, "USD")
	loans := []states.SecurityLoan{
		testLoan(alice, bob, 500, 5, "loan-1"),
		testLoan(bob, alice, 200, 10, "loan-2"),
	}

	mine, err := NetPosition(alice, bob, loans, price)
	require.NoError(t, err)
	theirs, err := NetPosition(bob, alice, loans, price)
	require.NoError(t, err)

	// both parties must land on identical figures
	assert.Equal(t, mine.Quantity, theirs.Quantity)
	assert.True(t, mine.Lender.Equal(theirs.Lender))
	assert.True(t, mine.Borrower.Equal(theirs.Borrower))
	assert.Equal(t, mine.Collateral, theirs.Collateral)
	assert.Equal(t, mine.CashDelta, theirs.CashDelta)

	// collateral of the net loan at margin 5: 300 * 100.00 * 1.05
	assert.Equal(t, int64(3150000), mine.Collateral)
	// posted so far: 5250000 by bob, 2200000 owed back at margin 10
	assert.Equal(t, int64(3150000-(5250000-2200000)), mine.CashDelta)
}

func TestNetPositionFlipsTheDirection(t *testing.T) {
	price := states.NewAmount(10000, "USD")
	loans := []states.SecurityLoan{
		testLoan(alice, bob, 200, 5, "loan-1"),
		testLoan(bob, alice, 500, 5, "loan-2"),
	}

	net, err := NetPosition(alice, bob, loans, price)
	require.NoError(t, err)
	assert.Equal(t, int64(300), net.Quantity)
	assert.True(t, net.Lender.Equal(bob))
	assert.True(t, net.Borrower.Equal(alice))
}

func TestNetPositionRejections(t *testing.T) {
	price := states.NewAmount(10000, "USD")

	_, err := NetPosition(alice, bob, []states.SecurityLoan{testLoan(alice, bob, 500, 5, "loan-1")}, price)
	assert.ErrorContains(t, err, "at least two loans")

	_, err = NetPosition(alice, bob, []states.SecurityLoan{
		testLoan(alice, bob, 500, 5, "loan-1"),
		testLoan(carol, alice, 200, 5, "loan-2"),
	}, price)
	assert.ErrorContains(t, err, "not between the netting parties")

	other := testLoan(bob, alice, 200, 5, "loan-2")
	other.Code = "IBM"
	_, err = NetPosition(alice, bob, []states.SecurityLoan{testLoan(alice, bob, 500, 5, "loan-1"), other}, price)
	assert.ErrorContains(t, err, "different code")

	_, err = NetPosition(alice, bob, []states.SecurityLoan{
		testLoan(alice, bob, 500, 5, "loan-1"),
		testLoan(bob, alice, 500, 5, "loan-2"),
	}, price)
	assert.ErrorContains(t, err, "offset exactly")
}
