/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oracle

import (
	"fmt"

	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

// NotFound reports a code absent from the oracle's price table
type NotFound struct {
	Code string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("no price for code [%s]", e.Code)
}

// ParseError reports a malformed line in a price table. It is fatal at
// construction time, the oracle is unusable.
type ParseError struct {
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed price table line %d: [%s]", e.Line, e.Text)
}

// PriceMismatch reports that a transaction commits to a price different
// from the oracle's authoritative value. Signing is refused.
type PriceMismatch struct {
	Code      string
	Submitted states.Amount
	Actual    states.Amount
}

func (e *PriceMismatch) Error() string {
	return fmt.Sprintf("price mismatch for [%s]: transaction commits to %s, oracle says %s", e.Code, e.Submitted, e.Actual)
}

// MerkleVerificationFailed reports that a filtered transaction's proof does
// not verify. Signing is refused.
type MerkleVerificationFailed struct {
	Err error
}

func (e *MerkleVerificationFailed) Error() string {
	return fmt.Sprintf("merkle verification failed: %s", e.Err)
}

func (e *MerkleVerificationFailed) Unwrap() error {
	return e.Err
}
