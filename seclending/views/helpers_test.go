/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/contracts"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

func proposal(t *testing.T) *ledger.Builder {
	b := ledger.NewBuilderWithNotary(testNotary)
	require.NoError(t, b.AddOutput(contracts.LoanContractID, testLoan(alice, bob, 500, 5, "loan-1")))
	b.AddCommand(contracts.LoanIssue, alice, bob)
	return b
}

func roundTrip(t *testing.T, b *ledger.Builder) *ledger.Builder {
	raw, err := b.Bytes()
	require.NoError(t, err)
	copied, err := ledger.NewBuilderFromBytes(raw)
	require.NoError(t, err)
	return copied
}

func TestCheckExtendsAcceptsAppends(t *testing.T) {
	original := proposal(t)

	extended := roundTrip(t, original)
	claim := &states.FungibleClaim{Owner: bob, Code: "GBT", Quantity: 500}
	require.NoError(t, extended.AddOutput(contracts.ClaimContractID, claim))
	extended.AddCommand(contracts.ClaimMove, alice)

	assert.NoError(t, checkExtends(original, extended))
}

func TestCheckExtendsRejectsAlterations(t *testing.T) {
	original := proposal(t)

	// shrinking the proposal
	assert.Error(t, checkExtends(original, ledger.NewBuilderWithNotary(testNotary)))

	// rewriting a proposed output
	extended := roundTrip(t, original)
	extended.Outputs[0].Raw = []byte(`{"quantity":1}`)
	assert.ErrorContains(t, checkExtends(original, extended), "altered a proposed output")

	// rewriting a proposed command
	extended = roundTrip(t, original)
	extended.Commands[0].Name = contracts.LoanExit
	assert.ErrorContains(t, checkExtends(original, extended), "altered a proposed command")

	// rewriting a proposed command's signer set
	extended = roundTrip(t, original)
	extended.Commands[0].Signers = view.Identities{alice}
	assert.ErrorContains(t, checkExtends(original, extended), "altered a proposed command")

	// swapping a signer for another party
	extended = roundTrip(t, original)
	extended.Commands[0].Signers = view.Identities{alice, carol}
	assert.ErrorContains(t, checkExtends(original, extended), "altered a proposed command")

	// rewriting a proposed command's data payload
	extended = roundTrip(t, original)
	extended.Commands[0].Data = []byte(`{"price":{"quantity":1,"currency":"USD"}}`)
	assert.ErrorContains(t, checkExtends(original, extended), "altered a proposed command")
}

func TestClaimTotalTo(t *testing.T) {
	b := ledger.NewBuilderWithNotary(testNotary)
	require.NoError(t, b.AddOutput(contracts.ClaimContractID, &states.FungibleClaim{Owner: alice, Code: "GBT", Quantity: 60}))
	require.NoError(t, b.AddOutput(contracts.ClaimContractID, &states.FungibleClaim{Owner: alice, Code: "GBT", Quantity: 40}))
	require.NoError(t, b.AddOutput(contracts.ClaimContractID, &states.FungibleClaim{Owner: bob, Code: "GBT", Quantity: 10}))
	require.NoError(t, b.AddOutput(contracts.ClaimContractID, &states.FungibleClaim{Owner: alice, Code: "USD", Quantity: 99}))

	total, err := claimTotalTo(b.Outputs, alice, "GBT")
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)
}
