/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package endorser

import (
	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/session"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

var logger = flogging.MustGetLogger("ledger-sdk.endorser")

// endorsementRequest ships a candidate transaction to an endorser together
// with the dependency chain needed to validate it back to issuance.
type endorsementRequest struct {
	Transaction  *ledger.SignedTransaction     `json:"transaction"`
	Dependencies []*ledger.FinalizedTransaction `json:"dependencies,omitempty"`
}

type collectEndorsementsView struct {
	tx        *ledger.SignedTransaction
	parties   []view.Identity
	extraDeps []*ledger.FinalizedTransaction
}

// NewCollectEndorsementsView returns a view that collects a signature from
// each passed party. Parties that are an alias of the executing node sign
// locally, the others are reached over the sessions already open towards
// them.
func NewCollectEndorsementsView(tx *ledger.SignedTransaction, parties ...view.Identity) *collectEndorsementsView {
	return &collectEndorsementsView{tx: tx, parties: parties}
}

// WithDependencies registers finalized transactions a counterparty supplied
// for inputs this node's vault does not know about.
func (c *collectEndorsementsView) WithDependencies(deps ...*ledger.FinalizedTransaction) *collectEndorsementsView {
	c.extraDeps = append(c.extraDeps, deps...)
	return c
}

func (c *collectEndorsementsView) Call(context view.Context) (interface{}, error) {
	sigService := ledger.GetSigService(context)
	vault := ledger.GetVault(context)

	supplied := map[string]*ledger.FinalizedTransaction{}
	for _, dep := range c.extraDeps {
		supplied[dep.ID()] = dep
	}
	fetch := func(txID string) (*ledger.FinalizedTransaction, error) {
		if dep, ok := supplied[txID]; ok {
			return dep, nil
		}
		return vault.GetTransaction(txID)
	}

	deps, err := ledger.ResolveTransitiveDependencies(&c.tx.Transaction, fetch)
	if err != nil {
		return nil, errors.Wrapf(err, "failed resolving dependencies of [%s]", c.tx.ID())
	}
	if err := ledger.CheckDependencies(&c.tx.Transaction, deps, sigService); err != nil {
		return nil, errors.Wrapf(err, "dependency chain of [%s] does not verify", c.tx.ID())
	}
	request := &endorsementRequest{Transaction: c.tx, Dependencies: deps}

	for _, party := range c.parties {
		if context.IsMe(party) {
			signer, err := sigService.GetSigner(party)
			if err != nil {
				return nil, err
			}
			if err := c.tx.SignWith(party, signer); err != nil {
				return nil, err
			}
			continue
		}

		s, err := session.NewJSON(context, context.Initiator(), party)
		if err != nil {
			return nil, err
		}
		request.Transaction = c.tx
		if err := s.Send(request); err != nil {
			return nil, errors.Wrapf(err, "failed sending transaction [%s] to [%s]", c.tx.ID(), party)
		}
		sigma := &ledger.Signature{}
		if err := s.Receive(sigma); err != nil {
			return nil, errors.Wrapf(err, "failed receiving endorsement of [%s] from [%s]", c.tx.ID(), party)
		}
		if !sigma.Signer.Equal(party) {
			return nil, errors.Errorf("expected endorsement by [%s], got one by [%s]", party, sigma.Signer)
		}
		verifier, err := sigService.GetVerifier(party)
		if err != nil {
			return nil, err
		}
		if err := verifier.Verify(c.tx.Transaction.SignaturePayload(), sigma.Raw); err != nil {
			return nil, errors.Wrapf(err, "invalid endorsement of [%s] by [%s]", c.tx.ID(), party)
		}
		c.tx.Signatures = append(c.tx.Signatures, *sigma)
		logger.Debugf("collected endorsement of [%s] from [%s]", c.tx.ID(), party)
	}
	return c.tx, nil
}

type receiveTransactionView struct{}

// NewReceiveTransactionView returns a view that receives a candidate
// transaction on the context's session and validates it: the identifier,
// the attached signatures, the dependency chain, and the contracts it
// references. Inspecting the business content is up to the caller.
func NewReceiveTransactionView() view.View {
	return &receiveTransactionView{}
}

func (r *receiveTransactionView) Call(context view.Context) (interface{}, error) {
	sigService := ledger.GetSigService(context)
	registry := ledger.GetContractRegistry(context)

	request := &endorsementRequest{}
	if err := session.JSON(context).Receive(request); err != nil {
		return nil, errors.Wrap(err, "failed receiving transaction")
	}
	tx := request.Transaction
	if tx == nil {
		return nil, errors.New("received an empty endorsement request")
	}
	if err := tx.Transaction.VerifyID(); err != nil {
		return nil, err
	}
	if err := tx.VerifySignatures(sigService); err != nil {
		return nil, err
	}
	if err := ledger.CheckDependencies(&tx.Transaction, request.Dependencies, sigService); err != nil {
		return nil, err
	}
	if _, err := registry.VerifyTransaction(&tx.Transaction); err != nil {
		return nil, err
	}
	logger.Debugf("received valid transaction [%s] with [%d] dependencies", tx.ID(), len(request.Dependencies))
	return tx, nil
}

// ReceiveTransaction receives and validates a candidate transaction on the
// context's session.
func ReceiveTransaction(context view.Context) (*ledger.SignedTransaction, error) {
	tx, err := context.RunView(NewReceiveTransactionView())
	if err != nil {
		return nil, err
	}
	return tx.(*ledger.SignedTransaction), nil
}

type endorseView struct {
	tx *ledger.SignedTransaction
}

// NewEndorseView returns a view that signs the passed transaction as the
// executing node and sends the signature back to the requester.
func NewEndorseView(tx *ledger.SignedTransaction) view.View {
	return &endorseView{tx: tx}
}

func (e *endorseView) Call(context view.Context) (interface{}, error) {
	sigService := ledger.GetSigService(context)
	me := context.Me()
	signer, err := sigService.GetSigner(me)
	if err != nil {
		return nil, err
	}
	raw, err := signer.Sign(e.tx.Transaction.SignaturePayload())
	if err != nil {
		return nil, errors.Wrapf(err, "failed signing transaction [%s]", e.tx.ID())
	}
	sigma := &ledger.Signature{Signer: me, Raw: raw}
	if err := session.JSON(context).Send(sigma); err != nil {
		return nil, errors.Wrapf(err, "failed sending endorsement of [%s]", e.tx.ID())
	}
	e.tx.Signatures = append(e.tx.Signatures, *sigma)
	logger.Debugf("endorsed transaction [%s] as [%s]", e.tx.ID(), me)
	return e.tx, nil
}
