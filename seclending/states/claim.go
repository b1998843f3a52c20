/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"fmt"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

// Issuance identifies who issued a fungible claim and under which reference.
// Claims of different issuance never merge, whatever their code.
type Issuance struct {
	Issuer    view.Identity `json:"issuer"`
	Reference string        `json:"reference"`
}

func (i Issuance) Equal(other Issuance) bool {
	return i.Issuer.Equal(other.Issuer) && i.Reference == other.Reference
}

// FungibleClaim is an ownership record of a quantity of a named security
// code. Claims are never mutated in place, moves always produce new
// versions.
type FungibleClaim struct {
	Issuance Issuance      `json:"issuance"`
	Owner    view.Identity `json:"owner"`
	Code     string        `json:"code"`
	Quantity int64         `json:"quantity"`
}

// GroupKey is the fungibility key: claims verify and conserve quantity
// within an (issuance, code) group.
func (c *FungibleClaim) GroupKey() string {
	return fmt.Sprintf("%s|%s|%s", c.Issuance.Issuer.UniqueID(), c.Issuance.Reference, c.Code)
}

// Owners returns the identities that own this state
func (c *FungibleClaim) Owners() []view.Identity {
	return []view.Identity{c.Owner}
}
