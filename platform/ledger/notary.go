/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

// NotaryRejection reports why the notary refused to finalize a transaction
type NotaryRejection struct {
	TxID   string
	Reason string
}

func (e *NotaryRejection) Error() string {
	return fmt.Sprintf("notary rejected transaction [%s]: %s", e.TxID, e.Reason)
}

// NotaryService notarizes signed transactions, turning them into final ones
type NotaryService interface {
	Notarize(stx *SignedTransaction) (*FinalizedTransaction, error)
}

// Notary is the uniqueness and finality authority of the network. It keeps
// the set of consumed state references and refuses any transaction that
// consumes one of them again. Requests touching the consumed set are
// serialized, so of two racing transactions over the same state exactly
// one wins.
type Notary struct {
	id       view.Identity
	signer   Signer
	verifier VerifierProvider
	clock    func() time.Time

	mu       sync.Mutex
	consumed map[string]string // ref key -> consuming tx id
}

// NewNotary returns a notary signing as the passed identity and checking
// party signatures through the passed verifier provider.
func NewNotary(id view.Identity, signer Signer, verifier VerifierProvider) *Notary {
	return &Notary{
		id:       id,
		signer:   signer,
		verifier: verifier,
		clock:    time.Now,
		consumed: map[string]string{},
	}
}

// SetClock replaces the notary's clock, used to evaluate time windows
func (n *Notary) SetClock(clock func() time.Time) {
	n.clock = clock
}

// Identity returns the identity the notary signs under
func (n *Notary) Identity() view.Identity {
	return n.id
}

// Notarize checks the transaction and countersigns it for finality.
// Re-presenting an already notarized transaction yields a fresh signature,
// not a rejection.
func (n *Notary) Notarize(stx *SignedTransaction) (*FinalizedTransaction, error) {
	txID := stx.ID()
	if err := stx.Transaction.VerifyID(); err != nil {
		return nil, &NotaryRejection{TxID: txID, Reason: err.Error()}
	}
	if len(stx.Transaction.Inputs) > 0 && !stx.Transaction.Notary.Equal(n.id) {
		return nil, &NotaryRejection{TxID: txID, Reason: "transaction is assigned to a different notary"}
	}
	if stx.Transaction.Window != nil && !stx.Transaction.Window.Contains(n.clock()) {
		return nil, &NotaryRejection{TxID: txID, Reason: "transaction presented outside of its time window"}
	}
	if err := stx.VerifyRequired(n.verifier); err != nil {
		return nil, &NotaryRejection{TxID: txID, Reason: err.Error()}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ref := range stx.Transaction.Inputs {
		if by, ok := n.consumed[ref.Key()]; ok && by != txID {
			return nil, &NotaryRejection{
				TxID:   txID,
				Reason: fmt.Sprintf("input state [%s] already consumed by [%s]", ref, by),
			}
		}
	}
	for _, ref := range stx.Transaction.Inputs {
		n.consumed[ref.Key()] = txID
	}

	raw, err := n.signer.Sign(stx.Transaction.SignaturePayload())
	if err != nil {
		return nil, errors.Wrapf(err, "notary failed signing transaction [%s]", txID)
	}
	return &FinalizedTransaction{
		SignedTransaction: *stx,
		NotarySignature:   Signature{Signer: n.id, Raw: raw},
	}, nil
}
