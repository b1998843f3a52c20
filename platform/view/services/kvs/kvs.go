/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvs

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/services/db/driver"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
)

var logger = flogging.MustGetLogger("view-sdk.kvs")

// KVS is a keyed JSON store on top of a KeyValueStore driver.
type KVS struct {
	namespace string
	store     driver.KeyValueStore

	putMutex sync.RWMutex
}

// New returns a new KVS instance for the passed namespace using the passed driver
func New(persistence driver.KeyValueStore, namespace string) *KVS {
	return &KVS{namespace: namespace, store: persistence}
}

// Exists returns true if the passed id is present
func (o *KVS) Exists(id string) bool {
	o.putMutex.RLock()
	defer o.putMutex.RUnlock()
	raw, err := o.store.GetState(o.namespace, id)
	return err == nil && len(raw) > 0
}

// Put stores the passed state under the passed id, JSON encoded
func (o *KVS) Put(id string, state interface{}) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, "cannot marshal state with id [%s]", id)
	}

	o.putMutex.Lock()
	defer o.putMutex.Unlock()
	if err := o.store.SetState(o.namespace, id, raw); err != nil {
		return errors.Wrapf(err, "failed to commit state with id [%s]", id)
	}
	logger.Debugf("put state [%s:%s]", o.namespace, id)
	return nil
}

// Get populates the passed state with the content stored under the passed id
func (o *KVS) Get(id string, state interface{}) error {
	o.putMutex.RLock()
	defer o.putMutex.RUnlock()

	raw, err := o.store.GetState(o.namespace, id)
	if err != nil {
		return errors.Wrapf(err, "failed retrieving state [%s,%s]", o.namespace, id)
	}
	if len(raw) == 0 {
		return errors.Errorf("state [%s,%s] does not exist", o.namespace, id)
	}
	if err := json.Unmarshal(raw, state); err != nil {
		return errors.Wrapf(err, "failed retrieving state [%s,%s], cannot unmarshal state", o.namespace, id)
	}
	return nil
}

// Delete removes the state stored under the passed id
func (o *KVS) Delete(id string) error {
	o.putMutex.Lock()
	defer o.putMutex.Unlock()
	if err := o.store.DeleteState(o.namespace, id); err != nil {
		return errors.Wrapf(err, "failed to delete state with id [%s]", id)
	}
	return nil
}

// GetByPrefix invokes f for each stored key with the passed prefix, in
// lexicographic key order.
func (o *KVS) GetByPrefix(prefix string, f func(key string, raw []byte) error) error {
	o.putMutex.RLock()
	defer o.putMutex.RUnlock()
	return o.store.ScanPrefix(o.namespace, prefix, f)
}
