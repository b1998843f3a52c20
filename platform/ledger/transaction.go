/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

// WireTransaction is a frozen candidate transaction. Its identifier is the
// root of a merkle tree over its components, so a redacted view can still
// prove that a single component belongs to it.
type WireTransaction struct {
	ID          string             `json:"id"`
	Inputs      []StateRef         `json:"inputs,omitempty"`
	InputStates []TransactionState `json:"input_states,omitempty"`
	Outputs     []TransactionState `json:"outputs,omitempty"`
	Commands    []Command          `json:"commands"`
	Notary      view.Identity      `json:"notary,omitempty"`
	Window      *TimeWindow        `json:"window,omitempty"`
}

func (t *WireTransaction) computeID() (string, error) {
	leaves, err := componentLeaves(t)
	if err != nil {
		return "", errors.Wrap(err, "failed computing transaction id")
	}
	hashes := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		hashes[i] = leafHash(leaf)
	}
	return hex.EncodeToString(merkleRoot(hashes)), nil
}

// VerifyID recomputes the identifier and checks it matches
func (t *WireTransaction) VerifyID() error {
	id, err := t.computeID()
	if err != nil {
		return err
	}
	if id != t.ID {
		return errors.Errorf("transaction id mismatch, expected [%s], got [%s]", id, t.ID)
	}
	return nil
}

// OutputRef returns the reference of the output at the passed index
func (t *WireTransaction) OutputRef(index int) StateRef {
	return StateRef{TxID: t.ID, Index: index}
}

// RequiredSigners returns the union of all command signers, without duplicates
func (t *WireTransaction) RequiredSigners() view.Identities {
	var res view.Identities
	for _, cmd := range t.Commands {
		for _, id := range cmd.Signers {
			if !res.Contain(id) {
				res = append(res, id)
			}
		}
	}
	return res
}

// SignaturePayload is the message parties sign to endorse this transaction
func (t *WireTransaction) SignaturePayload() []byte {
	return []byte(t.ID)
}

// Signature is a signature over a transaction's payload by a party
type Signature struct {
	Signer view.Identity `json:"signer"`
	Raw    []byte        `json:"raw"`
}

// SignedTransaction is a wire transaction together with the signatures
// collected so far.
type SignedTransaction struct {
	Transaction WireTransaction `json:"transaction"`
	Signatures  []Signature     `json:"signatures,omitempty"`
}

func NewSignedTransaction(tx *WireTransaction) *SignedTransaction {
	return &SignedTransaction{Transaction: *tx}
}

// NewSignedTransactionFromBytes reconstructs a signed transaction received
// from a counterparty.
func NewSignedTransactionFromBytes(raw []byte) (*SignedTransaction, error) {
	stx := &SignedTransaction{}
	if err := json.Unmarshal(raw, stx); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling signed transaction")
	}
	return stx, nil
}

func (s *SignedTransaction) Bytes() ([]byte, error) {
	return json.Marshal(s)
}

// ID returns the identifier of the underlying transaction
func (s *SignedTransaction) ID() string {
	return s.Transaction.ID
}

// SignWith appends a signature by the passed identity using the passed
// signer. Signing twice with the same identity is a no-op.
func (s *SignedTransaction) SignWith(id view.Identity, signer Signer) error {
	if s.HasSignatureFrom(id) {
		return nil
	}
	raw, err := signer.Sign(s.Transaction.SignaturePayload())
	if err != nil {
		return errors.Wrapf(err, "failed signing transaction [%s] as [%s]", s.ID(), id)
	}
	s.Signatures = append(s.Signatures, Signature{Signer: id, Raw: raw})
	return nil
}

// HasSignatureFrom returns true if the passed identity already signed
func (s *SignedTransaction) HasSignatureFrom(id view.Identity) bool {
	for _, sig := range s.Signatures {
		if sig.Signer.Equal(id) {
			return true
		}
	}
	return false
}

// VerifySignatures checks that every attached signature is valid
func (s *SignedTransaction) VerifySignatures(vp VerifierProvider) error {
	payload := s.Transaction.SignaturePayload()
	for _, sig := range s.Signatures {
		verifier, err := vp.GetVerifier(sig.Signer)
		if err != nil {
			return errors.Wrapf(err, "no verifier for [%s]", sig.Signer)
		}
		if err := verifier.Verify(payload, sig.Raw); err != nil {
			return errors.Wrapf(err, "invalid signature by [%s] on transaction [%s]", sig.Signer, s.ID())
		}
	}
	return nil
}

// VerifyRequired checks that every required signer attached a valid signature
func (s *SignedTransaction) VerifyRequired(vp VerifierProvider) error {
	if err := s.VerifySignatures(vp); err != nil {
		return err
	}
	for _, id := range s.Transaction.RequiredSigners() {
		if !s.HasSignatureFrom(id) {
			return errors.Errorf("missing signature by [%s] on transaction [%s]", id, s.ID())
		}
	}
	return nil
}

// FinalizedTransaction is a signed transaction notarized for finality
type FinalizedTransaction struct {
	SignedTransaction
	NotarySignature Signature `json:"notary_signature"`
}

// NewFinalizedTransactionFromBytes reconstructs a finalized transaction
// received from a counterparty.
func NewFinalizedTransactionFromBytes(raw []byte) (*FinalizedTransaction, error) {
	ftx := &FinalizedTransaction{}
	if err := json.Unmarshal(raw, ftx); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling finalized transaction")
	}
	return ftx, nil
}

func (f *FinalizedTransaction) Bytes() ([]byte, error) {
	return json.Marshal(f)
}

// VerifyNotarySignature checks the notary's signature over the transaction
func (f *FinalizedTransaction) VerifyNotarySignature(vp VerifierProvider) error {
	verifier, err := vp.GetVerifier(f.NotarySignature.Signer)
	if err != nil {
		return errors.Wrapf(err, "no verifier for notary [%s]", f.NotarySignature.Signer)
	}
	if err := verifier.Verify(f.Transaction.SignaturePayload(), f.NotarySignature.Raw); err != nil {
		return errors.Wrapf(err, "invalid notary signature on transaction [%s]", f.ID())
	}
	return nil
}
