/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contracts

import (
	"strings"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
)

const (
	// ClaimContractID is the contract identifier carried by fungible claim states
	ClaimContractID = "seclending.claim"

	// The closed set of claim commands. The verifier matches over these
	// exhaustively, an unknown claim command is a violation.
	ClaimIssue = "claim.issue"
	ClaimMove  = "claim.move"
	ClaimExit  = "claim.exit"
)

// claimGroup collects the input and output claims of one (issuance, code)
// fungibility group.
type claimGroup struct {
	key     string
	inputs  []states.FungibleClaim
	outputs []states.FungibleClaim
}

// ClaimContract verifies issue, move and exit of fungible claims
type ClaimContract struct{}

func (c *ClaimContract) Verify(tx *ledger.WireTransaction) ([]ledger.Command, error) {
	if len(tx.Inputs) != len(tx.InputStates) {
		return nil, ledger.Violation(ClaimContractID, "every input must carry its resolved state")
	}

	var commands []ledger.Command
	for _, cmd := range tx.Commands {
		if strings.HasPrefix(cmd.Name, "claim.") {
			commands = append(commands, cmd)
		}
	}
	if len(commands) != 1 {
		return nil, ledger.Violation(ClaimContractID, "exactly one claim command")
	}
	cmd := commands[0]

	groups, err := groupClaims(tx)
	if err != nil {
		return nil, err
	}

	switch cmd.Name {
	case ClaimIssue:
		for _, g := range groups {
			if len(g.inputs) != 0 {
				return nil, ledger.Violation(ClaimContractID, "no inputs when issuing")
			}
			if len(g.outputs) == 0 {
				return nil, ledger.Violation(ClaimContractID, "at least one output when issuing")
			}
			for _, out := range g.outputs {
				if out.Quantity <= 0 {
					return nil, ledger.Violation(ClaimContractID, "no zero sized outputs")
				}
				if !cmd.Signers.Contain(out.Issuance.Issuer) {
					return nil, ledger.Violation(ClaimContractID, "issuer must sign the issue")
				}
			}
		}
	case ClaimMove:
		for _, g := range groups {
			if len(g.inputs) == 0 || len(g.outputs) == 0 {
				return nil, ledger.Violation(ClaimContractID, "at least one input and one output when moving")
			}
			var in, out int64
			for _, st := range g.inputs {
				if st.Quantity <= 0 {
					return nil, ledger.Violation(ClaimContractID, "no zero sized inputs")
				}
				in += st.Quantity
			}
			for _, st := range g.outputs {
				if st.Quantity <= 0 {
					return nil, ledger.Violation(ClaimContractID, "no zero sized outputs")
				}
				out += st.Quantity
			}
			if in != out {
				return nil, ledger.Violation(ClaimContractID, "quantity is conserved within a group")
			}
			if err := ownersSigned(cmd.Signers, g.inputs); err != nil {
				return nil, err
			}
		}
	case ClaimExit:
		for _, g := range groups {
			if len(g.inputs) == 0 {
				return nil, ledger.Violation(ClaimContractID, "at least one input when exiting")
			}
			var in, out int64
			for _, st := range g.inputs {
				if st.Quantity <= 0 {
					return nil, ledger.Violation(ClaimContractID, "no zero sized inputs")
				}
				in += st.Quantity
			}
			for _, st := range g.outputs {
				if st.Quantity <= 0 {
					return nil, ledger.Violation(ClaimContractID, "no zero sized outputs")
				}
				out += st.Quantity
			}
			if out >= in {
				return nil, ledger.Violation(ClaimContractID, "exit must reduce the group quantity")
			}
			if err := ownersSigned(cmd.Signers, g.inputs); err != nil {
				return nil, err
			}
			if !cmd.Signers.Contain(g.inputs[0].Issuance.Issuer) {
				return nil, ledger.Violation(ClaimContractID, "issuer must sign the exit")
			}
		}
	default:
		return nil, ledger.Violation(ClaimContractID, "unrecognized claim command "+cmd.Name)
	}
	return []ledger.Command{cmd}, nil
}

func ownersSigned(signers view.Identities, inputs []states.FungibleClaim) error {
	for _, st := range inputs {
		if !signers.Contain(st.Owner) {
			return ledger.Violation(ClaimContractID, "input owners must sign")
		}
	}
	return nil
}

func groupClaims(tx *ledger.WireTransaction) ([]*claimGroup, error) {
	groups := map[string]*claimGroup{}
	var ordered []*claimGroup
	lookup := func(claim *states.FungibleClaim) *claimGroup {
		g, ok := groups[claim.GroupKey()]
		if !ok {
			g = &claimGroup{key: claim.GroupKey()}
			groups[claim.GroupKey()] = g
			ordered = append(ordered, g)
		}
		return g
	}
	for _, st := range tx.InputStates {
		if st.ContractID != ClaimContractID {
			continue
		}
		claim := states.FungibleClaim{}
		if err := st.Decode(&claim); err != nil {
			return nil, err
		}
		g := lookup(&claim)
		g.inputs = append(g.inputs, claim)
	}
	for _, st := range tx.Outputs {
		if st.ContractID != ClaimContractID {
			continue
		}
		claim := states.FungibleClaim{}
		if err := st.Decode(&claim); err != nil {
			return nil, err
		}
		g := lookup(&claim)
		g.outputs = append(g.outputs, claim)
	}
	return ordered, nil
}
