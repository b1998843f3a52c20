/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package node

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vassert "github.com/P0ntiff/seclending-smart-client/platform/view/services/assert"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/db/driver/memory"
	"github.com/P0ntiff/seclending-smart-client/seclending/contracts"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
	"github.com/P0ntiff/seclending-smart-client/seclending/views"
)

const gbtPrice = 10000 // 100.00 USD

func newTestNetwork(t *testing.T) (*Network, *Node, *Node, context.Context) {
	net, err := NewNetwork("notary", "USD", time.Minute, map[string]states.Amount{
		"GBT": states.NewAmount(gbtPrice, "USD"),
	})
	require.NoError(t, err)

	alice, err := net.AddNode("alice", memory.OpenDB())
	require.NoError(t, err)
	bob, err := net.AddNode("bob", memory.OpenDB())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	net.Start(ctx)
	return net, alice, bob, ctx
}

func issue(t *testing.T, ctx context.Context, n *Node, code string, quantity int64) {
	_, err := n.Manager.InitiateView(views.NewIssueClaimView(n.Wiring, code, quantity, "treasury"), ctx)
	require.NoError(t, err)
}

func holdings(t *testing.T, n *Node, code string) int64 {
	var total int64
	for _, entry := range n.Vault.Unspent(contracts.ClaimContractID) {
		claim := states.FungibleClaim{}
		require.NoError(t, entry.State.Decode(&claim))
		if claim.Code == code && claim.Owner.Equal(n.Identity) {
			total += claim.Quantity
		}
	}
	return total
}

func openLoans(t *testing.T, n *Node) []views.LoanAndRef {
	loans, err := views.UnspentLoans(n.Vault)
	require.NoError(t, err)
	return loans
}

// eventuallyHolds waits for the responder-side finality commit to land
func eventuallyHolds(t *testing.T, n *Node, code string, expected int64) {
	t.Helper()
	vassert.EventuallyWithRetry(t, 10, 10*time.Millisecond, func() error {
		if got := holdings(t, n, code); got != expected {
			return errors.Errorf("node [%s] holds [%d] of [%s], want [%d]", n.Name, got, code, expected)
		}
		return nil
	})
}

// eventuallyOpenLoans waits until the node's vault records the expected
// number of open loans.
func eventuallyOpenLoans(t *testing.T, n *Node, expected int) {
	t.Helper()
	vassert.EventuallyWithRetry(t, 10, 10*time.Millisecond, func() error {
		if got := len(openLoans(t, n)); got != expected {
			return errors.Errorf("node [%s] records [%d] open loans, want [%d]", n.Name, got, expected)
		}
		return nil
	})
}

func TestSelfIssue(t *testing.T) {
	_, alice, _, ctx := newTestNetwork(t)

	issue(t, ctx, alice, "GBT", 1000)
	assert.Equal(t, int64(1000), holdings(t, alice, "GBT"))
}

func TestTrade(t *testing.T) {
	_, alice, bob, ctx := newTestNetwork(t)

	issue(t, ctx, alice, "GBT", 1000)
	issue(t, ctx, bob, "USD", 1000000)

	offer := &views.MarketOffer{Code: "GBT", Quantity: 100, Price: states.NewAmount(5000, "USD")}
	_, err := alice.Manager.InitiateView(views.NewTradeView(alice.Wiring, bob.Identity, offer), ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(900), holdings(t, alice, "GBT"))
	eventuallyHolds(t, bob, "GBT", 100)
	eventuallyHolds(t, bob, "USD", 500000)
	assert.Equal(t, int64(500000), holdings(t, alice, "USD"))
}

func TestLoanLifecycle(t *testing.T) {
	_, alice, bob, ctx := newTestNetwork(t)

	issue(t, ctx, alice, "GBT", 1000)
	issue(t, ctx, bob, "USD", 10000000)

	// borrow 500 GBT from alice at 5% margin
	terms := states.Terms{LengthDays: 30, Margin: 5, RebatePercent: 1, CollateralType: "cash"}
	_, err := bob.Manager.InitiateView(views.NewLoanIssueView(bob.Wiring, alice.Identity, "GBT", 500, terms), ctx)
	require.NoError(t, err)

	loans := openLoans(t, bob)
	require.Len(t, loans, 1)
	loan := loans[0].Loan
	assert.Equal(t, int64(500), loan.Quantity)
	assert.Equal(t, "GBT", loan.Code)
	assert.True(t, loan.Lender.Equal(alice.Identity))
	assert.True(t, loan.Borrower.Equal(bob.Identity))
	assert.Equal(t, 5.0, loan.Terms.Margin)
	assert.True(t, loan.StockPrice.Equal(states.NewAmount(gbtPrice, "USD")))
	assert.NotEmpty(t, loan.LinearID)
	linearID := loan.LinearID

	// securities with the borrower, 105% collateral with the lender
	assert.Equal(t, int64(500), holdings(t, bob, "GBT"))
	assert.Equal(t, int64(4750000), holdings(t, bob, "USD"))
	eventuallyHolds(t, alice, "USD", 5250000)
	assert.Equal(t, int64(500), holdings(t, alice, "GBT"))
	eventuallyOpenLoans(t, alice, 1)
	// both vaults record the very same state
	assert.Empty(t, cmp.Diff(openLoans(t, bob), openLoans(t, alice)))

	// raise the margin to 8%, the borrower tops up the difference
	_, err = alice.Manager.InitiateView(views.NewMarginUpdateView(alice.Wiring, linearID, 8), ctx)
	require.NoError(t, err)

	loans = openLoans(t, alice)
	require.Len(t, loans, 1)
	assert.Equal(t, 8.0, loans[0].Loan.Terms.Margin)
	assert.Equal(t, linearID, loans[0].Loan.LinearID)
	assert.Equal(t, int64(500), loans[0].Loan.Quantity)
	assert.Equal(t, int64(5400000), holdings(t, alice, "USD"))
	eventuallyHolds(t, bob, "USD", 4600000)

	// unwind 200 units, the lender returns the collateral slice
	_, err = alice.Manager.InitiateView(views.NewTerminateView(alice.Wiring, linearID, 200), ctx)
	require.NoError(t, err)

	loans = openLoans(t, alice)
	require.Len(t, loans, 1)
	assert.Equal(t, int64(300), loans[0].Loan.Quantity)
	assert.Equal(t, linearID, loans[0].Loan.LinearID)
	// 200 * 100.00 * 1.08 returned
	assert.Equal(t, int64(3240000), holdings(t, alice, "USD"))
	eventuallyHolds(t, bob, "USD", 6760000)

	// the borrower closes out the rest by returning the securities
	_, err = bob.Manager.InitiateView(views.NewTerminateView(bob.Wiring, linearID, 300), ctx)
	require.NoError(t, err)

	assert.Empty(t, openLoans(t, bob))
	assert.Equal(t, int64(200), holdings(t, bob, "GBT"))
	eventuallyHolds(t, alice, "GBT", 800)
	eventuallyOpenLoans(t, alice, 0)
}

func TestMarkToMarket(t *testing.T) {
	net, alice, bob, ctx := newTestNetwork(t)

	issue(t, ctx, alice, "GBT", 1000)
	issue(t, ctx, bob, "USD", 10000000)

	terms := states.Terms{LengthDays: 30, Margin: 5, CollateralType: "cash"}
	_, err := bob.Manager.InitiateView(views.NewLoanIssueView(bob.Wiring, alice.Identity, "GBT", 500, terms), ctx)
	require.NoError(t, err)
	eventuallyOpenLoans(t, alice, 1)
	linearID := openLoans(t, alice)[0].Loan.LinearID

	// the price moves from 100.00 to 120.00, the borrower tops up
	// 500 * 20.00 * 1.05
	net.Oracle.SetPrice("GBT", states.NewAmount(12000, "USD"))
	_, err = alice.Manager.InitiateView(views.NewMarkToMarketView(alice.Wiring, linearID), ctx)
	require.NoError(t, err)

	loans := openLoans(t, alice)
	require.Len(t, loans, 1)
	loan := loans[0].Loan
	assert.Equal(t, linearID, loan.LinearID)
	assert.Equal(t, int64(500), loan.Quantity)
	assert.Equal(t, 5.0, loan.Terms.Margin)
	assert.True(t, loan.StockPrice.Equal(states.NewAmount(12000, "USD")))
	assert.Equal(t, int64(6300000), holdings(t, alice, "USD"))
	eventuallyHolds(t, bob, "USD", 3700000)
}

func TestNetting(t *testing.T) {
	_, alice, bob, ctx := newTestNetwork(t)

	issue(t, ctx, alice, "GBT", 1000)
	issue(t, ctx, alice, "USD", 5000000)
	issue(t, ctx, bob, "GBT", 500)
	issue(t, ctx, bob, "USD", 10000000)

	terms := states.Terms{LengthDays: 30, Margin: 5}
	_, err := bob.Manager.InitiateView(views.NewLoanIssueView(bob.Wiring, alice.Identity, "GBT", 500, terms), ctx)
	require.NoError(t, err)
	_, err = alice.Manager.InitiateView(views.NewLoanIssueView(alice.Wiring, bob.Identity, "GBT", 200, terms), ctx)
	require.NoError(t, err)

	eventuallyOpenLoans(t, alice, 2)
	eventuallyOpenLoans(t, bob, 2)
	var ids []string
	for _, l := range openLoans(t, alice) {
		ids = append(ids, l.Loan.LinearID)
	}

	_, err = alice.Manager.InitiateView(views.NewLoanNetView(alice.Wiring, bob.Identity, ids...), ctx)
	require.NoError(t, err)

	loans := openLoans(t, alice)
	require.Len(t, loans, 1)
	net := loans[0].Loan
	assert.Equal(t, int64(300), net.Quantity)
	assert.True(t, net.Lender.Equal(alice.Identity))
	assert.True(t, net.Borrower.Equal(bob.Identity))
	eventuallyOpenLoans(t, bob, 1)
}

func TestNettingMarksStaleLoansToMarket(t *testing.T) {
	net, alice, bob, ctx := newTestNetwork(t)

	issue(t, ctx, alice, "GBT", 1000)
	issue(t, ctx, alice, "USD", 5000000)
	issue(t, ctx, bob, "GBT", 500)
	issue(t, ctx, bob, "USD", 10000000)

	terms := states.Terms{LengthDays: 30, Margin: 5}
	_, err := bob.Manager.InitiateView(views.NewLoanIssueView(bob.Wiring, alice.Identity, "GBT", 500, terms), ctx)
	require.NoError(t, err)
	_, err = alice.Manager.InitiateView(views.NewLoanIssueView(alice.Wiring, bob.Identity, "GBT", 200, terms), ctx)
	require.NoError(t, err)
	eventuallyOpenLoans(t, alice, 2)
	eventuallyOpenLoans(t, bob, 2)
	var ids []string
	for _, l := range openLoans(t, alice) {
		ids = append(ids, l.Loan.LinearID)
	}

	// both loans were written at 100.00, the market moves to 110.00 before
	// the positions fold
	net.Oracle.SetPrice("GBT", states.NewAmount(11000, "USD"))
	_, err = alice.Manager.InitiateView(views.NewLoanNetView(alice.Wiring, bob.Identity, ids...), ctx)
	require.NoError(t, err)

	loans := openLoans(t, alice)
	require.Len(t, loans, 1)
	folded := loans[0].Loan
	assert.Equal(t, int64(300), folded.Quantity)
	assert.True(t, folded.Lender.Equal(alice.Identity))
	assert.True(t, folded.StockPrice.Equal(states.NewAmount(11000, "USD")))

	// each loan settled its own repricing delta on the way in:
	// bob topped up 500 * 10.00 * 1.05, alice 200 * 10.00 * 1.05
	assert.Equal(t, int64(8465000), holdings(t, alice, "USD"))
	eventuallyHolds(t, bob, "USD", 6535000)
	eventuallyOpenLoans(t, bob, 1)
	assert.Empty(t, cmp.Diff(openLoans(t, alice), openLoans(t, bob)))
}

func TestLoanFailsWithoutCollateral(t *testing.T) {
	_, alice, bob, ctx := newTestNetwork(t)

	issue(t, ctx, alice, "GBT", 1000)
	// bob holds no cash at all

	terms := states.Terms{LengthDays: 30, Margin: 5}
	_, err := bob.Manager.InitiateView(views.NewLoanIssueView(bob.Wiring, alice.Identity, "GBT", 500, terms), ctx)
	securityErr := &views.SecurityError{}
	require.ErrorAs(t, err, &securityErr)
}
