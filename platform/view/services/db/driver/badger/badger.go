/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package badger

import (
	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
)

var logger = flogging.MustGetLogger("db.driver.badger")

// DB is a badger-backed KeyValueStore.
type DB struct {
	db *badger.DB
}

// OpenDB opens (or creates) a badger store at the passed path.
func OpenDB(path string) (*DB, error) {
	if len(path) == 0 {
		return nil, errors.Errorf("path cannot be empty")
	}

	opt := badger.DefaultOptions(path)
	opt.Logger = nil
	db, err := badger.Open(opt)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open DB at '%s'", path)
	}
	logger.Debugf("opened badger db at [%s]", path)

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return errors.Wrap(err, "could not close DB")
	}
	return nil
}

func (d *DB) SetState(namespace, key string, value []byte) error {
	if len(value) == 0 {
		logger.Warnf("set key [%s:%s] to nil value, will be deleted instead", namespace, key)
		return d.DeleteState(namespace, key)
	}
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(dbKey(namespace, key)), value)
	})
	if err != nil {
		return errors.Wrapf(err, "could not set value for key [%s:%s]", namespace, key)
	}
	return nil
}

func (d *DB) GetState(namespace, key string) ([]byte, error) {
	var value []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(dbKey(namespace, key)))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not get value for key [%s:%s]", namespace, key)
	}
	return value, nil
}

func (d *DB) DeleteState(namespace, key string) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(dbKey(namespace, key)))
	})
	if err != nil {
		return errors.Wrapf(err, "could not delete value for key [%s:%s]", namespace, key)
	}
	return nil
}

func (d *DB) ScanPrefix(namespace, prefix string, f func(key string, value []byte) error) error {
	fullPrefix := []byte(dbKey(namespace, prefix))
	nsPrefixLen := len(dbKey(namespace, ""))
	return d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = fullPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := f(string(item.Key())[nsPrefixLen:], value); err != nil {
				return err
			}
		}
		return nil
	})
}

func dbKey(namespace, key string) string {
	return namespace + "\x00" + key
}
