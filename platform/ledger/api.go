/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

// StateRef identifies an output state by the transaction that produced it
// and its position among that transaction's outputs.
type StateRef struct {
	TxID  string `json:"tx_id"`
	Index int    `json:"index"`
}

func (r StateRef) String() string {
	return fmt.Sprintf("%s:%d", r.TxID, r.Index)
}

// Key returns a stable map key for this reference
func (r StateRef) Key() string {
	return r.String()
}

// TransactionState carries a contract state on the wire: the contract it
// belongs to, the notary guarding it, and its JSON encoding.
type TransactionState struct {
	ContractID string          `json:"contract_id"`
	Notary     view.Identity   `json:"notary,omitempty"`
	Raw        json.RawMessage `json:"raw"`
}

// NewTransactionState encodes the passed state for the passed contract.
func NewTransactionState(contractID string, notary view.Identity, state interface{}) (TransactionState, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return TransactionState{}, errors.Wrapf(err, "failed marshalling state for contract [%s]", contractID)
	}
	return TransactionState{ContractID: contractID, Notary: notary, Raw: raw}, nil
}

// Decode populates the passed state with this state's content
func (s TransactionState) Decode(state interface{}) error {
	if err := json.Unmarshal(s.Raw, state); err != nil {
		return errors.Wrapf(err, "failed unmarshalling state of contract [%s]", s.ContractID)
	}
	return nil
}

// StateAndRef pairs a state with the reference it is stored under.
type StateAndRef struct {
	Ref   StateRef         `json:"ref"`
	State TransactionState `json:"state"`
}

// Command models an operation of a transaction together with the identities
// required to sign it. Data carries optional command parameters, e.g. the
// price asserted by an oracle-priced command.
type Command struct {
	Name    string          `json:"name"`
	Data    json.RawMessage `json:"data,omitempty"`
	Signers view.Identities `json:"signers"`
}

// DecodeData populates the passed value with the command's data payload
func (c Command) DecodeData(v interface{}) error {
	if err := json.Unmarshal(c.Data, v); err != nil {
		return errors.Wrapf(err, "failed unmarshalling data of command [%s]", c.Name)
	}
	return nil
}

// TimeWindow is the validity window of a transaction. The notary refuses
// transactions presented outside of it.
type TimeWindow struct {
	From     time.Time     `json:"from"`
	Duration time.Duration `json:"duration"`
}

// Contains returns true if the passed instant falls within the window
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.From.Add(w.Duration))
}
