/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

// Builder accumulates inputs, outputs, commands and a time window into a
// candidate transaction. It is append-only: a failed protocol discards the
// whole builder, entries are never removed.
//
// A builder travels across parties during a protocol: the initiator ships it
// to the counterparty, who appends its own leg and ships it back. All fields
// are therefore part of the wire format.
type Builder struct {
	Notary      view.Identity      `json:"notary,omitempty"`
	Inputs      []StateRef         `json:"inputs,omitempty"`
	InputStates []TransactionState `json:"input_states,omitempty"`
	Outputs     []TransactionState `json:"outputs,omitempty"`
	Commands    []Command          `json:"commands,omitempty"`
	Window      *TimeWindow        `json:"window,omitempty"`
}

// NewBuilder returns a fresh builder with no notary assigned. Issue
// transactions stay notary-free until whichever protocol finalizes them
// assigns one.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewBuilderWithNotary returns a fresh builder guarded by the passed notary
func NewBuilderWithNotary(notary view.Identity) *Builder {
	return &Builder{Notary: notary}
}

// NewBuilderFromBytes reconstructs a builder received from a counterparty
func NewBuilderFromBytes(raw []byte) (*Builder, error) {
	b := &Builder{}
	if err := json.Unmarshal(raw, b); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling transaction builder")
	}
	return b, nil
}

// Bytes returns the wire encoding of this builder
func (b *Builder) Bytes() ([]byte, error) {
	return json.Marshal(b)
}

// AddInput appends a reference to an existing unspent state. The state must
// carry a notary, and all inputs of a builder must share the same one.
func (b *Builder) AddInput(ref StateRef, state TransactionState) error {
	if state.Notary.IsNone() {
		return errors.Errorf("input state [%s] has no notary assigned", ref)
	}
	if b.Notary.IsNone() {
		b.Notary = state.Notary
	} else if !b.Notary.Equal(state.Notary) {
		return errors.Errorf("input state [%s] is guarded by notary [%s], builder uses [%s]", ref, state.Notary, b.Notary)
	}
	b.Inputs = append(b.Inputs, ref)
	b.InputStates = append(b.InputStates, state)
	return nil
}

// AddOutput appends a new output state for the passed contract
func (b *Builder) AddOutput(contractID string, state interface{}) error {
	st, err := NewTransactionState(contractID, b.Notary, state)
	if err != nil {
		return err
	}
	b.Outputs = append(b.Outputs, st)
	return nil
}

// AddCommand appends a command with its required signers
func (b *Builder) AddCommand(name string, signers ...view.Identity) {
	b.Commands = append(b.Commands, Command{Name: name, Signers: signers})
}

// AddCommandWithData appends a command carrying a data payload
func (b *Builder) AddCommandWithData(name string, data interface{}, signers ...view.Identity) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "failed marshalling data of command [%s]", name)
	}
	b.Commands = append(b.Commands, Command{Name: name, Data: raw, Signers: signers})
	return nil
}

// SetNotary assigns the notary. It fails if a different notary was already
// adopted from an input state.
func (b *Builder) SetNotary(notary view.Identity) error {
	if !b.Notary.IsNone() && !b.Notary.Equal(notary) {
		return errors.Errorf("notary already set to [%s]", b.Notary)
	}
	b.Notary = notary
	return nil
}

// SetTimeWindow sets the validity window of the transaction
func (b *Builder) SetTimeWindow(from time.Time, duration time.Duration) {
	b.Window = &TimeWindow{From: from, Duration: duration}
}

// Build freezes the builder into a wire transaction with a deterministic
// identifier. Output states are stamped with the builder's notary.
func (b *Builder) Build() (*WireTransaction, error) {
	if len(b.Commands) == 0 {
		return nil, errors.New("transaction has no commands")
	}
	if len(b.Inputs) > 0 && b.Notary.IsNone() {
		return nil, errors.New("transaction consumes states but has no notary")
	}
	outputs := make([]TransactionState, len(b.Outputs))
	for i, out := range b.Outputs {
		out.Notary = b.Notary
		outputs[i] = out
	}
	tx := &WireTransaction{
		Inputs:      append([]StateRef{}, b.Inputs...),
		InputStates: append([]TransactionState{}, b.InputStates...),
		Outputs:     outputs,
		Commands:    append([]Command{}, b.Commands...),
		Notary:      b.Notary,
		Window:      b.Window,
	}
	id, err := tx.computeID()
	if err != nil {
		return nil, err
	}
	tx.ID = id
	return tx, nil
}

// DeriveState produces a copy of the passed state's data with the passed
// fields overridden. The input state is left untouched; unspecified fields
// keep their value.
func DeriveState(state TransactionState, overrides map[string]interface{}) (TransactionState, error) {
	fields := map[string]interface{}{}
	if err := json.Unmarshal(state.Raw, &fields); err != nil {
		return TransactionState{}, errors.Wrap(err, "failed decoding state to derive")
	}
	for k, v := range overrides {
		fields[k] = v
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return TransactionState{}, errors.Wrap(err, "failed encoding derived state")
	}
	return TransactionState{ContractID: state.ContractID, Notary: state.Notary, Raw: raw}, nil
}
