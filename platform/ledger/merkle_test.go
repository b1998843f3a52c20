/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

func newFilteredFixture(t *testing.T) *WireTransaction {
	alice := view.Identity("alice")
	oracle := view.Identity("oracle")
	b := NewBuilder()
	assert.NoError(t, b.AddOutput("test", &testState{Owner: alice, Value: 100}))
	b.AddCommand("Move", alice)
	assert.NoError(t, b.AddCommandWithData("Price", map[string]interface{}{"code": "GBT", "price": 10000}, oracle))
	tx, err := b.Build()
	require.NoError(t, err)
	return tx
}

func TestFilteredTransactionRevealsSelectedComponents(t *testing.T) {
	tx := newFilteredFixture(t)

	ftx, err := NewFilteredTransaction(tx, func(c Component) bool {
		return strings.HasPrefix(c.Tag, "command:") && strings.Contains(string(c.Raw), "Price")
	})
	require.NoError(t, err)
	require.Len(t, ftx.Revealed, 1)
	assert.NoError(t, ftx.Verify())

	cmd := &Command{}
	assert.NoError(t, json.Unmarshal(ftx.Revealed[0].Raw, cmd))
	assert.Equal(t, "Price", cmd.Name)
}

func TestFilteredTransactionDetectsTampering(t *testing.T) {
	tx := newFilteredFixture(t)
	ftx, err := NewFilteredTransaction(tx, func(c Component) bool {
		return strings.HasPrefix(c.Tag, "command:")
	})
	require.NoError(t, err)

	// a component not covered by the leaf hashes
	tampered := ftx.Revealed[0]
	tampered.Raw = json.RawMessage(`{"name":"Price","data":{"code":"GBT","price":1},"signers":null}`)
	ftx.Revealed = append([]Component{}, tampered)
	err = ftx.Verify()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not part of transaction")

	// a forged transaction id
	ftx2, err := NewFilteredTransaction(tx, func(c Component) bool { return false })
	require.NoError(t, err)
	ftx2.TxID = strings.Repeat("0", 64)
	err = ftx2.Verify()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "merkle root")
}
