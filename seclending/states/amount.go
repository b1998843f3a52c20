/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"fmt"
	"math"
)

// Amount is a monetary value in minor units (cents) of a currency
type Amount struct {
	Quantity int64  `json:"quantity"`
	Currency string `json:"currency"`
}

// NewAmount returns an amount of the passed minor units
func NewAmount(cents int64, currency string) Amount {
	return Amount{Quantity: cents, Currency: currency}
}

// AmountFromFloat converts a value in major units to an amount, rounding to
// the nearest cent.
func AmountFromFloat(value float64, currency string) Amount {
	return Amount{Quantity: int64(math.Round(value * 100)), Currency: currency}
}

// Float returns the value in major units
func (a Amount) Float() float64 {
	return float64(a.Quantity) / 100
}

func (a Amount) Equal(b Amount) bool {
	return a.Quantity == b.Quantity && a.Currency == b.Currency
}

func (a Amount) String() string {
	return fmt.Sprintf("%.2f %s", a.Float(), a.Currency)
}
