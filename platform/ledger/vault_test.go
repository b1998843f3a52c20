/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/P0ntiff/seclending-smart-client/platform/view/services/db/driver/memory"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/kvs"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

type vaultFixture struct {
	sigService   *SigService
	notary       view.Identity
	notarySigner Signer
	alice        view.Identity
	aliceSigner  Signer
}

func newVaultFixture(t *testing.T) *vaultFixture {
	f := &vaultFixture{sigService: NewSigService()}
	f.alice, f.aliceSigner = newTestParty(t, f.sigService, "alice")
	f.notary, f.notarySigner = newTestParty(t, f.sigService, "notary")
	return f
}

// finalize signs and notarizes the passed transaction without going through
// the notary service, tests exercise that path separately.
func (f *vaultFixture) finalize(t *testing.T, tx *WireTransaction) *FinalizedTransaction {
	stx := NewSignedTransaction(tx)
	assert.NoError(t, stx.SignWith(f.alice, f.aliceSigner))
	raw, err := f.notarySigner.Sign(tx.SignaturePayload())
	require.NoError(t, err)
	return &FinalizedTransaction{
		SignedTransaction: *stx,
		NotarySignature:   Signature{Signer: f.notary, Raw: raw},
	}
}

func (f *vaultFixture) issue(t *testing.T, value int64) *FinalizedTransaction {
	b := NewBuilderWithNotary(f.notary)
	assert.NoError(t, b.AddOutput("test", &testState{Owner: f.alice, Value: value}))
	b.AddCommand("Issue", f.alice)
	tx, err := b.Build()
	require.NoError(t, err)
	return f.finalize(t, tx)
}

func (f *vaultFixture) spend(t *testing.T, in *FinalizedTransaction, value int64) *FinalizedTransaction {
	b := NewBuilder()
	assert.NoError(t, b.AddInput(in.Transaction.OutputRef(0), in.Transaction.Outputs[0]))
	assert.NoError(t, b.AddOutput("test", &testState{Owner: f.alice, Value: value}))
	b.AddCommand("Move", f.alice)
	tx, err := b.Build()
	require.NoError(t, err)
	return f.finalize(t, tx)
}

func newTestVault(t *testing.T, store *kvs.KVS) *Vault {
	if store == nil {
		store = kvs.New(memory.OpenDB(), "test")
	}
	vault, err := NewVault(store)
	require.NoError(t, err)
	return vault
}

func TestVaultCommitTracksUnspentInOrder(t *testing.T) {
	f := newVaultFixture(t)
	vault := newTestVault(t, nil)

	first := f.issue(t, 100)
	second := f.issue(t, 200)
	assert.NoError(t, vault.Commit(first))
	assert.NoError(t, vault.Commit(second))

	unspent := vault.Unspent("test")
	require.Len(t, unspent, 2)
	st := &testState{}
	assert.NoError(t, unspent[0].State.Decode(st))
	assert.Equal(t, int64(100), st.Value)
	assert.NoError(t, unspent[1].State.Decode(st))
	assert.Equal(t, int64(200), st.Value)

	spend := f.spend(t, first, 100)
	assert.NoError(t, vault.Commit(spend))
	unspent = vault.Unspent("test")
	require.Len(t, unspent, 2)
	assert.Equal(t, second.ID(), unspent[0].Ref.TxID)
	assert.Equal(t, spend.ID(), unspent[1].Ref.TxID)
}

func TestVaultRejectsDoubleSpend(t *testing.T) {
	f := newVaultFixture(t)
	vault := newTestVault(t, nil)

	issue := f.issue(t, 100)
	assert.NoError(t, vault.Commit(issue))
	assert.NoError(t, vault.Commit(f.spend(t, issue, 100)))

	err := vault.Commit(f.spend(t, issue, 50))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already consumed")
}

func TestVaultCommitIsIdempotent(t *testing.T) {
	f := newVaultFixture(t)
	vault := newTestVault(t, nil)

	issue := f.issue(t, 100)
	assert.NoError(t, vault.Commit(issue))
	assert.NoError(t, vault.Commit(issue))
	assert.Len(t, vault.Unspent("test"), 1)
}

func TestVaultReloadsFromStore(t *testing.T) {
	f := newVaultFixture(t)
	store := kvs.New(memory.OpenDB(), "test")
	vault := newTestVault(t, store)

	issue := f.issue(t, 100)
	other := f.issue(t, 200)
	assert.NoError(t, vault.Commit(issue))
	assert.NoError(t, vault.Commit(other))
	assert.NoError(t, vault.Commit(f.spend(t, issue, 100)))

	reloaded := newTestVault(t, store)
	assert.Equal(t, len(vault.Unspent("test")), len(reloaded.Unspent("test")))
	assert.True(t, reloaded.HasTransaction(issue.ID()))

	// consumed markers survive the reload
	err := reloaded.Commit(f.spend(t, issue, 50))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already consumed")

	ftx, err := reloaded.GetTransaction(issue.ID())
	require.NoError(t, err)
	assert.Equal(t, issue.ID(), ftx.ID())
}

func TestResolveTransitiveDependencies(t *testing.T) {
	f := newVaultFixture(t)
	vault := newTestVault(t, nil)

	issue := f.issue(t, 100)
	move := f.spend(t, issue, 100)
	assert.NoError(t, vault.Commit(issue))
	assert.NoError(t, vault.Commit(move))

	b := NewBuilder()
	assert.NoError(t, b.AddInput(move.Transaction.OutputRef(0), move.Transaction.Outputs[0]))
	assert.NoError(t, b.AddOutput("test", &testState{Owner: f.alice, Value: 100}))
	b.AddCommand("Move", f.alice)
	tx, err := b.Build()
	require.NoError(t, err)

	deps, err := ResolveTransitiveDependencies(tx, vault.GetTransaction)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, issue.ID(), deps[0].ID())
	assert.Equal(t, move.ID(), deps[1].ID())

	assert.NoError(t, CheckDependencies(tx, deps, f.sigService))

	// a chain with a missing link does not verify
	err = CheckDependencies(tx, deps[1:], f.sigService)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved state")
}
