/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contracts

import (
	"strings"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

const (
	// LoanContractID is the contract identifier carried by security loan states
	LoanContractID = "seclending.loan"

	// The closed set of loan commands
	LoanIssue       = "loan.issue"
	LoanUpdate      = "loan.update"
	LoanNet         = "loan.net"
	LoanPartialExit = "loan.partial_exit"
	LoanExit        = "loan.exit"
)

// LoanContract verifies the lifecycle of security loans: issue, terms
// update, netting, partial and full termination.
type LoanContract struct{}

func (c *LoanContract) Verify(tx *ledger.WireTransaction) ([]ledger.Command, error) {
	var commands []ledger.Command
	for _, cmd := range tx.Commands {
		if strings.HasPrefix(cmd.Name, "loan.") {
			commands = append(commands, cmd)
		}
	}
	if len(commands) != 1 {
		return nil, ledger.Violation(LoanContractID, "exactly one loan command")
	}
	cmd := commands[0]

	inputs, err := decodeLoans(tx.InputStates)
	if err != nil {
		return nil, err
	}
	outputs, err := decodeLoans(tx.Outputs)
	if err != nil {
		return nil, err
	}

	bothPartiesSigned := func(l *states.SecurityLoan) error {
		if !cmd.Signers.Contain(l.Lender) || !cmd.Signers.Contain(l.Borrower) {
			return ledger.Violation(LoanContractID, "both the lender and the borrower must sign")
		}
		return nil
	}

	switch cmd.Name {
	case LoanIssue:
		if len(inputs) != 0 {
			return nil, ledger.Violation(LoanContractID, "no loan inputs when issuing")
		}
		if len(outputs) != 1 {
			return nil, ledger.Violation(LoanContractID, "exactly one loan output when issuing")
		}
		out := outputs[0]
		if out.Quantity <= 0 {
			return nil, ledger.Violation(LoanContractID, "loan quantity must be positive")
		}
		if out.Lender.Equal(out.Borrower) {
			return nil, ledger.Violation(LoanContractID, "lender and borrower must be distinct")
		}
		// exactly the two parties, not a superset
		if len(cmd.Signers) != 2 || !cmd.Signers.Contain(out.Lender) || !cmd.Signers.Contain(out.Borrower) {
			return nil, ledger.Violation(LoanContractID, "exactly the lender and the borrower must sign the issue")
		}
	case LoanUpdate, LoanPartialExit:
		if len(inputs) != 1 || len(outputs) != 1 {
			return nil, ledger.Violation(LoanContractID, "exactly one loan input and one loan output")
		}
		in, out := inputs[0], outputs[0]
		if in.LinearID != out.LinearID {
			return nil, ledger.Violation(LoanContractID, "linear id is preserved")
		}
		if !in.Lender.Equal(out.Lender) || !in.Borrower.Equal(out.Borrower) {
			return nil, ledger.Violation(LoanContractID, "lender and borrower are preserved")
		}
		if in.Code != out.Code {
			return nil, ledger.Violation(LoanContractID, "code is preserved")
		}
		if out.Quantity <= 0 {
			return nil, ledger.Violation(LoanContractID, "loan quantity must be positive")
		}
		if cmd.Name == LoanUpdate && in.Quantity != out.Quantity {
			return nil, ledger.Violation(LoanContractID, "quantity is preserved on update")
		}
		if cmd.Name == LoanPartialExit && out.Quantity >= in.Quantity {
			return nil, ledger.Violation(LoanContractID, "quantity strictly decreases on partial exit")
		}
		if err := bothPartiesSigned(&out); err != nil {
			return nil, err
		}
	case LoanNet:
		if len(inputs) < 2 {
			return nil, ledger.Violation(LoanContractID, "at least two loans to net")
		}
		if len(outputs) != 1 {
			return nil, ledger.Violation(LoanContractID, "exactly one net loan output")
		}
		out := outputs[0]
		if out.Quantity <= 0 {
			return nil, ledger.Violation(LoanContractID, "loan quantity must be positive")
		}
		var net int64
		for _, in := range inputs {
			if !in.IsBetween(out.Lender, out.Borrower) {
				return nil, ledger.Violation(LoanContractID, "all netted loans are between the same two parties")
			}
			if in.Code != out.Code {
				return nil, ledger.Violation(LoanContractID, "only loans of the same code net")
			}
			if in.Lender.Equal(out.Lender) {
				net += in.Quantity
			} else {
				net -= in.Quantity
			}
		}
		if net != out.Quantity {
			return nil, ledger.Violation(LoanContractID, "net loan quantity equals the net of the input loans")
		}
		if err := bothPartiesSigned(&out); err != nil {
			return nil, err
		}
	case LoanExit:
		if len(inputs) != 1 {
			return nil, ledger.Violation(LoanContractID, "exactly one loan input when exiting")
		}
		if len(outputs) != 0 {
			return nil, ledger.Violation(LoanContractID, "no loan output when exiting")
		}
		if err := bothPartiesSigned(&inputs[0]); err != nil {
			return nil, err
		}
	default:
		return nil, ledger.Violation(LoanContractID, "unrecognized loan command "+cmd.Name)
	}
	return []ledger.Command{cmd}, nil
}

func decodeLoans(txStates []ledger.TransactionState) ([]states.SecurityLoan, error) {
	var loans []states.SecurityLoan
	for _, st := range txStates {
		if st.ContractID != LoanContractID {
			continue
		}
		loan := states.SecurityLoan{}
		if err := st.Decode(&loan); err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, nil
}
