/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package endorser

import (
	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/session"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

type orderingAndFinalityView struct {
	tx      *ledger.SignedTransaction
	parties []view.Identity
}

// NewOrderingAndFinalityView returns a view that submits the passed
// transaction to the notary, commits the finalized result locally, and
// distributes it to the passed parties.
func NewOrderingAndFinalityView(tx *ledger.SignedTransaction, parties ...view.Identity) view.View {
	return &orderingAndFinalityView{tx: tx, parties: parties}
}

func (o *orderingAndFinalityView) Call(context view.Context) (interface{}, error) {
	notary := ledger.GetNotaryService(context)
	vault := ledger.GetVault(context)

	ftx, err := notary.Notarize(o.tx)
	if err != nil {
		return nil, err
	}
	if err := vault.Commit(ftx); err != nil {
		return nil, errors.Wrapf(err, "failed committing transaction [%s]", ftx.ID())
	}
	for _, party := range o.parties {
		if context.IsMe(party) {
			continue
		}
		s, err := session.NewJSON(context, context.Initiator(), party)
		if err != nil {
			return nil, err
		}
		if err := s.Send(ftx); err != nil {
			return nil, errors.Wrapf(err, "failed distributing transaction [%s] to [%s]", ftx.ID(), party)
		}
	}
	logger.Debugf("transaction [%s] is final", ftx.ID())
	return ftx, nil
}

type finalityView struct {
	tx *ledger.SignedTransaction
}

// NewFinalityView returns a view that waits on the context's session for
// the notarized form of the passed transaction, checks it, and commits it
// to the local vault.
func NewFinalityView(tx *ledger.SignedTransaction) view.View {
	return &finalityView{tx: tx}
}

func (f *finalityView) Call(context view.Context) (interface{}, error) {
	sigService := ledger.GetSigService(context)
	vault := ledger.GetVault(context)

	ftx := &ledger.FinalizedTransaction{}
	if err := session.JSON(context).Receive(ftx); err != nil {
		return nil, errors.Wrapf(err, "failed receiving finalized transaction [%s]", f.tx.ID())
	}
	if ftx.ID() != f.tx.ID() {
		return nil, errors.Errorf("expected finalized transaction [%s], got [%s]", f.tx.ID(), ftx.ID())
	}
	if err := ftx.Transaction.VerifyID(); err != nil {
		return nil, err
	}
	if err := ftx.VerifyNotarySignature(sigService); err != nil {
		return nil, err
	}
	if err := ftx.VerifyRequired(sigService); err != nil {
		return nil, err
	}
	if err := vault.Commit(ftx); err != nil {
		return nil, errors.Wrapf(err, "failed committing transaction [%s]", ftx.ID())
	}
	logger.Debugf("transaction [%s] is final", ftx.ID())
	return ftx, nil
}
