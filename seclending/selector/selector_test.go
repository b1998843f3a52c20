/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/db/driver/memory"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/kvs"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/contracts"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

var (
	alice  = view.Identity("alice")
	bob    = view.Identity("bob")
	bank   = view.Identity("bank")
	notary = view.Identity("notary")
)

func candidate(t *testing.T, txID string, owner view.Identity, code string, quantity int64) ClaimAndRef {
	claim := states.FungibleClaim{
		Issuance: states.Issuance{Issuer: bank, Reference: "ref"},
		Owner:    owner,
		Code:     code,
		Quantity: quantity,
	}
	st, err := ledger.NewTransactionState(contracts.ClaimContractID, notary, &claim)
	require.NoError(t, err)
	return ClaimAndRef{Ref: ledger.StateRef{TxID: txID, Index: 0}, State: st, Claim: claim}
}

func TestSelectFromTakesTheFirstCoveringPrefix(t *testing.T) {
	candidates := []ClaimAndRef{
		candidate(t, "tx1", alice, "GBT", 60),
		candidate(t, "tx2", alice, "GBT", 50),
		candidate(t, "tx3", alice, "GBT", 100),
	}

	gathered, total, err := SelectFrom(candidates, alice, "GBT", 100)
	require.NoError(t, err)
	// tx1+tx2 cross the threshold, tx3 is never touched
	require.Len(t, gathered, 2)
	assert.Equal(t, "tx1", gathered[0].Ref.TxID)
	assert.Equal(t, "tx2", gathered[1].Ref.TxID)
	assert.Equal(t, int64(110), total)

	gathered, total, err = SelectFrom(candidates, alice, "GBT", 60)
	require.NoError(t, err)
	require.Len(t, gathered, 1)
	assert.Equal(t, int64(60), total)
}

func TestSelectFromFiltersOwnerAndCode(t *testing.T) {
	candidates := []ClaimAndRef{
		candidate(t, "tx1", bob, "GBT", 100),
		candidate(t, "tx2", alice, "USD", 100),
		candidate(t, "tx3", alice, "GBT", 100),
	}

	gathered, _, err := SelectFrom(candidates, alice, "GBT", 100)
	require.NoError(t, err)
	require.Len(t, gathered, 1)
	assert.Equal(t, "tx3", gathered[0].Ref.TxID)
}

func TestSelectFromReportsTheMissingQuantity(t *testing.T) {
	candidates := []ClaimAndRef{
		candidate(t, "tx1", alice, "GBT", 60),
		candidate(t, "tx2", alice, "GBT", 50),
	}

	_, _, err := SelectFrom(candidates, alice, "GBT", 150)
	insufficiency := &InsufficientHolding{}
	require.ErrorAs(t, err, &insufficiency)
	assert.Equal(t, int64(40), insufficiency.Missing)
	assert.Equal(t, "GBT", insufficiency.Code)

	_, _, err = SelectFrom(nil, alice, "GBT", 10)
	require.ErrorAs(t, err, &insufficiency)
	assert.Equal(t, int64(10), insufficiency.Missing)
}

func newTestVault(t *testing.T) *ledger.Vault {
	vault, err := ledger.NewVault(kvs.New(memory.OpenDB(), "test"))
	require.NoError(t, err)
	return vault
}

func issueClaims(t *testing.T, vault *ledger.Vault, owner view.Identity, code string, quantities ...int64) {
	b := ledger.NewBuilderWithNotary(notary)
	for _, q := range quantities {
		claim := &states.FungibleClaim{
			Issuance: states.Issuance{Issuer: bank, Reference: "ref"},
			Owner:    owner,
			Code:     code,
			Quantity: q,
		}
		require.NoError(t, b.AddOutput(contracts.ClaimContractID, claim))
	}
	b.AddCommand(contracts.ClaimIssue, bank)
	tx, err := b.Build()
	require.NoError(t, err)
	ftx := &ledger.FinalizedTransaction{SignedTransaction: *ledger.NewSignedTransaction(tx)}
	require.NoError(t, vault.Commit(ftx))
}

func TestContributeMovesWithChange(t *testing.T) {
	vault := newTestVault(t)
	issueClaims(t, vault, alice, "GBT", 60, 50)
	service := New(vault)

	b := ledger.NewBuilderWithNotary(notary)
	require.NoError(t, service.Contribute(b, alice, bob, "GBT", 80))

	require.Len(t, b.Inputs, 2)
	require.Len(t, b.Outputs, 3)

	var claims []states.FungibleClaim
	for _, out := range b.Outputs {
		claim := states.FungibleClaim{}
		require.NoError(t, out.Decode(&claim))
		claims = append(claims, claim)
	}
	// the first gathered state moves whole, the last is split, change last
	assert.True(t, claims[0].Owner.Equal(bob))
	assert.Equal(t, int64(60), claims[0].Quantity)
	assert.True(t, claims[1].Owner.Equal(bob))
	assert.Equal(t, int64(20), claims[1].Quantity)
	assert.True(t, claims[2].Owner.Equal(alice))
	assert.Equal(t, int64(30), claims[2].Quantity)
}

func TestContributeExactCoverHasNoChange(t *testing.T) {
	vault := newTestVault(t)
	issueClaims(t, vault, alice, "GBT", 60, 40)
	service := New(vault)

	b := ledger.NewBuilderWithNotary(notary)
	require.NoError(t, service.Contribute(b, alice, bob, "GBT", 100))

	require.Len(t, b.Inputs, 2)
	require.Len(t, b.Outputs, 2)
	for _, out := range b.Outputs {
		claim := states.FungibleClaim{}
		require.NoError(t, out.Decode(&claim))
		assert.True(t, claim.Owner.Equal(bob))
	}
}

func TestContributeFailsOnInsufficientHolding(t *testing.T) {
	vault := newTestVault(t)
	issueClaims(t, vault, alice, "GBT", 60)
	service := New(vault)

	b := ledger.NewBuilderWithNotary(notary)
	err := service.Contribute(b, alice, bob, "GBT", 100)
	insufficiency := &InsufficientHolding{}
	require.ErrorAs(t, err, &insufficiency)
	assert.Equal(t, int64(40), insufficiency.Missing)
	// a failed contribution leaves the builder untouched
	assert.Empty(t, b.Inputs)
	assert.Empty(t, b.Outputs)
}
