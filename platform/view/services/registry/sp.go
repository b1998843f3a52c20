/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
)

var (
	ServiceNotFound = errors.New("service not found")
	logger          = flogging.MustGetLogger("view-sdk.registry")
)

// ServiceProvider is a reflection-based service locator. Views resolve their
// collaborators through it by type.
type ServiceProvider struct {
	services   []interface{}
	serviceMap map[reflect.Type]interface{}
	lock       sync.Mutex
}

func New() *ServiceProvider {
	return &ServiceProvider{
		services:   []interface{}{},
		serviceMap: map[reflect.Type]interface{}{},
	}
}

func (sp *ServiceProvider) GetService(v interface{}) (interface{}, error) {
	sp.lock.Lock()
	defer sp.lock.Unlock()

	var typ reflect.Type
	switch t := v.(type) {
	case reflect.Type:
		typ = t
	default:
		typ = reflect.TypeOf(v)
	}

	switch typ.Kind() {
	case reflect.Struct:
		// nothing to do here
	default:
		typ = typ.Elem()
	}

	service, ok := sp.serviceMap[typ]
	if !ok {
		switch typ.Kind() {
		case reflect.Interface:
			for _, s := range sp.services {
				if reflect.TypeOf(s).Implements(typ) {
					sp.serviceMap[typ] = s
					return s, nil
				}
			}
		default:
			for _, s := range sp.services {
				if typ.AssignableTo(reflect.TypeOf(s).Elem()) {
					sp.serviceMap[typ] = s
					return s, nil
				}
			}
		}
		return nil, errors.Wrapf(ServiceNotFound, "[%s/%s]", typ.PkgPath(), typ.Name())
	}
	return service, nil
}

func (sp *ServiceProvider) RegisterService(service interface{}) error {
	sp.lock.Lock()
	defer sp.lock.Unlock()

	logger.Debugf("register service [%s]", getIdentifier(service))
	sp.services = append(sp.services, service)

	return nil
}

func getIdentifier(v interface{}) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "/" + t.Name()
}
