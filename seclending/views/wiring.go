/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"time"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/oracle"
	"github.com/P0ntiff/seclending-smart-client/seclending/selector"
)

// defaultWindow is the validity window of oracle-priced proposals
const defaultWindow = 30 * time.Second

// Wiring collects the collaborators every protocol receives explicitly at
// construction. Protocols never look these up from ambient context.
type Wiring struct {
	Vault    *ledger.Vault
	Selector *selector.Service
	Oracle   *oracle.Oracle
	Registry *ledger.ContractRegistry
	Notary   view.Identity
	Currency string
	// Window bounds the validity of oracle-priced proposals, 30s when zero
	Window time.Duration
}

func (w *Wiring) window() time.Duration {
	if w.Window == 0 {
		return defaultWindow
	}
	return w.Window
}
