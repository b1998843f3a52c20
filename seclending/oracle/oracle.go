/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oracle

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

var logger = flogging.MustGetLogger("seclending.oracle")

// PriceCommand is the command name the oracle is asked to co-sign. Its data
// is a PriceAssertion and the oracle is among its signers.
const PriceCommand = "oracle.price"

// PriceAssertion is the price a transaction commits to for a code
type PriceAssertion struct {
	Code  string        `json:"code"`
	Price states.Amount `json:"price"`
}

// Oracle answers price queries for security codes and blindly co-signs
// transactions embedding one of its prices. The table is loaded at
// construction and individual prices move via SetPrice.
type Oracle struct {
	id     view.Identity
	signer ledger.Signer

	mu     sync.RWMutex
	prices map[string]states.Amount
}

// New returns an oracle over an explicit price table
func New(id view.Identity, signer ledger.Signer, prices map[string]states.Amount) *Oracle {
	return &Oracle{id: id, signer: signer, prices: prices}
}

// NewFromFile loads the price table from a file of `CODE = decimal` lines
func NewFromFile(id view.Identity, signer ledger.Signer, path, currency string) (*Oracle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open price table [%s]", path)
	}
	defer f.Close()
	return NewFromReader(id, signer, f, currency)
}

// NewFromReader parses a price table: one `CODE = decimal` entry per line,
// blank lines and lines starting with # ignored. A malformed line fails the
// whole load.
func NewFromReader(id view.Identity, signer ledger.Signer, r io.Reader, currency string) (*Oracle, error) {
	prices := map[string]states.Amount{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, &ParseError{Line: lineNo, Text: line}
		}
		code := strings.TrimSpace(parts[0])
		value, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || len(code) == 0 {
			return nil, &ParseError{Line: lineNo, Text: line}
		}
		prices[code] = states.AmountFromFloat(value, currency)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed reading price table")
	}
	logger.Debugf("loaded price table with [%d] codes", len(prices))
	return New(id, signer, prices), nil
}

// Identity returns the identity the oracle signs under
func (o *Oracle) Identity() view.Identity {
	return o.id
}

// Query returns the current price per unit of the passed code
func (o *Oracle) Query(code string) (states.Amount, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[code]
	if !ok {
		return states.Amount{}, &NotFound{Code: code}
	}
	return price, nil
}

// SetPrice moves the price of the passed code
func (o *Oracle) SetPrice(code string, price states.Amount) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[code] = price
	logger.Debugf("price of [%s] moved to [%s]", code, price)
}

// Sign co-signs a redacted transaction that commits to one of the oracle's
// prices. The proof must verify and the committed price must equal the
// oracle's value for the code, signing is otherwise unconditional: the
// oracle sees only the pricing command, nothing else of the transaction.
func (o *Oracle) Sign(ftx *ledger.FilteredTransaction) (*ledger.Signature, error) {
	if err := ftx.Verify(); err != nil {
		return nil, &MerkleVerificationFailed{Err: err}
	}
	assertion, err := pricingAssertion(ftx)
	if err != nil {
		return nil, err
	}
	actual, err := o.Query(assertion.Code)
	if err != nil {
		return nil, err
	}
	if !actual.Equal(assertion.Price) {
		return nil, &PriceMismatch{Code: assertion.Code, Submitted: assertion.Price, Actual: actual}
	}
	raw, err := o.signer.Sign([]byte(ftx.TxID))
	if err != nil {
		return nil, errors.Wrapf(err, "oracle failed signing transaction [%s]", ftx.TxID)
	}
	logger.Debugf("signed price [%s] for [%s] on transaction [%s]", actual, assertion.Code, ftx.TxID)
	return &ledger.Signature{Signer: o.id, Raw: raw}, nil
}

func pricingAssertion(ftx *ledger.FilteredTransaction) (*PriceAssertion, error) {
	for _, revealed := range ftx.Revealed {
		if !strings.HasPrefix(revealed.Tag, "command:") {
			continue
		}
		cmd := ledger.Command{}
		if err := json.Unmarshal(revealed.Raw, &cmd); err != nil {
			return nil, errors.Wrap(err, "failed decoding revealed command")
		}
		if cmd.Name != PriceCommand {
			continue
		}
		assertion := &PriceAssertion{}
		if err := cmd.DecodeData(assertion); err != nil {
			return nil, err
		}
		return assertion, nil
	}
	return nil, errors.Errorf("transaction [%s] reveals no pricing command", ftx.TxID)
}

// RevealPricing selects exactly the pricing command of a transaction, the
// only component an oracle is shown.
func RevealPricing(c ledger.Component) bool {
	if !strings.HasPrefix(c.Tag, "command:") {
		return false
	}
	cmd := ledger.Command{}
	if err := json.Unmarshal(c.Raw, &cmd); err != nil {
		return false
	}
	return cmd.Name == PriceCommand
}
