/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/seclending/selector"
)

// SecurityError aborts a protocol that cannot cover one of its legs. It
// always cites the original cause, typically an InsufficientHolding.
type SecurityError struct {
	Reason string
	Cause  error
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Cause)
}

func (e *SecurityError) Unwrap() error {
	return e.Cause
}

// UnableToNotarize surfaces a notary failure during finality
type UnableToNotarize struct {
	Cause error
}

func (e *UnableToNotarize) Error() string {
	return fmt.Sprintf("unable to notarize: %s", e.Cause)
}

func (e *UnableToNotarize) Unwrap() error {
	return e.Cause
}

// AgreementException reports that the counterparty rejected the proposed terms
type AgreementException struct {
	Reason string
}

func (e *AgreementException) Error() string {
	return fmt.Sprintf("agreement failed: %s", e.Reason)
}

// wrapInsufficiency rewraps an insufficient-holding failure as a
// SecurityError citing the cause, other errors pass through untouched.
func wrapInsufficiency(err error, reason string) error {
	insufficiency := &selector.InsufficientHolding{}
	if errors.As(err, &insufficiency) {
		return &SecurityError{Reason: reason, Cause: err}
	}
	return err
}

// wrapNotary rewraps a notary rejection as UnableToNotarize
func wrapNotary(err error) error {
	rejection := &ledger.NotaryRejection{}
	if errors.As(err, &rejection) {
		return &UnableToNotarize{Cause: err}
	}
	return err
}
