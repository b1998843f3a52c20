/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"reflect"
)

// ServiceProvider is used to return instances of a given type
type ServiceProvider interface {
	// GetService returns an instance of the given type
	GetService(v interface{}) (interface{}, error)
}

// GetVault returns the vault registered in the passed service provider.
// It panics if no vault is registered, this is a wiring mistake.
func GetVault(sp ServiceProvider) *Vault {
	s, err := sp.GetService(reflect.TypeOf((*Vault)(nil)))
	if err != nil {
		panic(err)
	}
	return s.(*Vault)
}

// GetSigService returns the signature service registered in the passed
// service provider.
func GetSigService(sp ServiceProvider) *SigService {
	s, err := sp.GetService(reflect.TypeOf((*SigService)(nil)))
	if err != nil {
		panic(err)
	}
	return s.(*SigService)
}

// GetNotaryService returns the notary service registered in the passed
// service provider.
func GetNotaryService(sp ServiceProvider) NotaryService {
	s, err := sp.GetService(reflect.TypeOf((*NotaryService)(nil)))
	if err != nil {
		panic(err)
	}
	return s.(NotaryService)
}

// GetContractRegistry returns the contract registry registered in the
// passed service provider.
func GetContractRegistry(sp ServiceProvider) *ContractRegistry {
	s, err := sp.GetService(reflect.TypeOf((*ContractRegistry)(nil)))
	if err != nil {
		panic(err)
	}
	return s.(*ContractRegistry)
}
