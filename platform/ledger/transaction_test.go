/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

type testState struct {
	Owner view.Identity `json:"owner"`
	Value int64         `json:"value"`
}

func newTestParty(t *testing.T, sigService *SigService, name string) (view.Identity, Signer) {
	id := view.Identity(name)
	signer, verifier, err := NewECDSASigner()
	require.NoError(t, err)
	sigService.RegisterSigner(id, signer)
	sigService.RegisterVerifier(id, verifier)
	return id, signer
}

func TestTransactionIDIsDeterministic(t *testing.T) {
	alice := view.Identity("alice")
	notary := view.Identity("notary")

	build := func() *WireTransaction {
		b := NewBuilderWithNotary(notary)
		assert.NoError(t, b.AddOutput("test", &testState{Owner: alice, Value: 100}))
		b.AddCommand("Issue", alice)
		tx, err := b.Build()
		require.NoError(t, err)
		return tx
	}

	tx1, tx2 := build(), build()
	assert.Equal(t, tx1.ID, tx2.ID)
	assert.NoError(t, tx1.VerifyID())
}

func TestTransactionIDDetectsTampering(t *testing.T) {
	alice := view.Identity("alice")
	b := NewBuilder()
	assert.NoError(t, b.AddOutput("test", &testState{Owner: alice, Value: 100}))
	b.AddCommand("Issue", alice)
	tx, err := b.Build()
	require.NoError(t, err)

	tx.Commands[0].Name = "Exit"
	err = tx.VerifyID()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "transaction id mismatch")
}

func TestSignaturesAndRequiredSigners(t *testing.T) {
	sigService := NewSigService()
	alice, aliceSigner := newTestParty(t, sigService, "alice")
	bob, bobSigner := newTestParty(t, sigService, "bob")

	b := NewBuilder()
	assert.NoError(t, b.AddOutput("test", &testState{Owner: alice, Value: 100}))
	b.AddCommand("Issue", alice, bob)
	tx, err := b.Build()
	require.NoError(t, err)

	stx := NewSignedTransaction(tx)
	assert.NoError(t, stx.SignWith(alice, aliceSigner))

	err = stx.VerifyRequired(sigService)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing signature")

	assert.NoError(t, stx.SignWith(bob, bobSigner))
	assert.NoError(t, stx.VerifyRequired(sigService))

	// signing twice does not duplicate the signature
	assert.NoError(t, stx.SignWith(bob, bobSigner))
	assert.Len(t, stx.Signatures, 2)
}

func TestInvalidSignatureIsRejected(t *testing.T) {
	sigService := NewSigService()
	alice, _ := newTestParty(t, sigService, "alice")
	_, bobSigner := newTestParty(t, sigService, "bob")

	b := NewBuilder()
	assert.NoError(t, b.AddOutput("test", &testState{Owner: alice, Value: 100}))
	b.AddCommand("Issue", alice)
	tx, err := b.Build()
	require.NoError(t, err)

	// bob's key under alice's identity
	stx := NewSignedTransaction(tx)
	raw, err := bobSigner.Sign(tx.SignaturePayload())
	require.NoError(t, err)
	stx.Signatures = append(stx.Signatures, Signature{Signer: alice, Raw: raw})

	err = stx.VerifySignatures(sigService)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signature")
}

func TestFinalizedTransactionRoundTrip(t *testing.T) {
	sigService := NewSigService()
	alice, aliceSigner := newTestParty(t, sigService, "alice")
	notary, notarySigner := newTestParty(t, sigService, "notary")

	b := NewBuilderWithNotary(notary)
	assert.NoError(t, b.AddOutput("test", &testState{Owner: alice, Value: 100}))
	b.AddCommand("Issue", alice)
	tx, err := b.Build()
	require.NoError(t, err)

	stx := NewSignedTransaction(tx)
	assert.NoError(t, stx.SignWith(alice, aliceSigner))
	raw, err := notarySigner.Sign(tx.SignaturePayload())
	require.NoError(t, err)
	ftx := &FinalizedTransaction{
		SignedTransaction: *stx,
		NotarySignature:   Signature{Signer: notary, Raw: raw},
	}

	encoded, err := ftx.Bytes()
	require.NoError(t, err)
	decoded, err := NewFinalizedTransactionFromBytes(encoded)
	require.NoError(t, err)
	assert.NoError(t, decoded.VerifyNotarySignature(sigService))
	assert.NoError(t, decoded.VerifyRequired(sigService))
}

func TestDeriveStateOverridesSelectedFields(t *testing.T) {
	alice := view.Identity("alice")
	bob := view.Identity("bob")
	st, err := NewTransactionState("test", nil, &testState{Owner: alice, Value: 100})
	require.NoError(t, err)

	derived, err := DeriveState(st, map[string]interface{}{"owner": bob})
	require.NoError(t, err)

	out := &testState{}
	assert.NoError(t, derived.Decode(out))
	assert.True(t, out.Owner.Equal(bob))
	assert.Equal(t, int64(100), out.Value)

	// the source state is untouched
	in := &testState{}
	assert.NoError(t, st.Decode(in))
	assert.True(t, in.Owner.Equal(alice))
}
