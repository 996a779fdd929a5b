/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package storage

import (
	"bytes"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

/*
BoltConnector data structure
*/
type BoltConnector struct {
	path string   // Path of the database file
	db   *bolt.DB // Bolt database
}

/*
NewBoltConnector opens or creates a bolt database file and makes sure all
tables exist.
*/
func NewBoltConnector(path string) (*BoltConnector, error) {

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, NewConnectorError(ErrOpen,
			errors.Wrapf(err, "open %v", path).Error(), "BoltConnector:"+path)
	}

	bc := &BoltConnector{path, db}

	if err := createTables(bc); err != nil {
		db.Close()
		return nil, err
	}

	LogDebug("Opened bolt connector: ", path)

	return bc, nil
}

/*
Name returns the name of the connector instance.
*/
func (bc *BoltConnector) Name() string {
	return "BoltConnector:" + bc.path
}

/*
CreateTable creates a table if it does not exist.
*/
func (bc *BoltConnector) CreateTable(table Table) error {
	err := bc.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(table))
		return err
	})

	return bc.wrapError(ErrWrite, err, "create table %v", table)
}

/*
DropTable removes a table and all its entries.
*/
func (bc *BoltConnector) DropTable(table Table) error {
	err := bc.db.Update(func(tx *bolt.Tx) error {
		return tx.DeleteBucket([]byte(table))
	})

	if err == bolt.ErrBucketNotFound {
		return NewConnectorError(ErrUnknownTable, string(table), bc.Name())
	}

	return bc.wrapError(ErrWrite, err, "drop table %v", table)
}

/*
Get returns the value of a key. Returns nil if the key does not exist.
*/
func (bc *BoltConnector) Get(table Table, key []byte) ([]byte, error) {
	var value []byte

	err := bc.db.View(func(tx *bolt.Tx) error {
		b, err := bc.bucket(tx, table)
		if err == nil {
			value = cloneBytes(b.Get(key))
		}
		return err
	})

	if err != nil {
		return nil, bc.wrapError(ErrRead, err, "get %x from %v", key, table)
	}

	return value, nil
}

/*
Put stores a value under a given key.
*/
func (bc *BoltConnector) Put(table Table, key []byte, value []byte) error {
	return bc.PutBatch(table, [][]byte{key}, [][]byte{value})
}

/*
PutBatch stores a list of key / value pairs in one transaction.
*/
func (bc *BoltConnector) PutBatch(table Table, keys [][]byte, values [][]byte) error {
	if err := checkBatch(bc.Name(), keys, values); err != nil {
		return err
	}

	err := bc.db.Update(func(tx *bolt.Tx) error {
		b, err := bc.bucket(tx, table)
		if err != nil {
			return err
		}

		for i, key := range keys {
			if err := b.Put(key, values[i]); err != nil {
				return err
			}
		}

		return nil
	})

	return bc.wrapError(ErrWrite, err, "put %v entries into %v", len(keys), table)
}

/*
Delete removes a key.
*/
func (bc *BoltConnector) Delete(table Table, key []byte) error {
	err := bc.db.Update(func(tx *bolt.Tx) error {
		b, err := bc.bucket(tx, table)
		if err != nil {
			return err
		}
		return b.Delete(key)
	})

	return bc.wrapError(ErrWrite, err, "delete %x from %v", key, table)
}

/*
Scan iterates over all entries with start <= key < end in ascending key order.
The entries are read in a single read transaction before the given function
is called.
*/
func (bc *BoltConnector) Scan(table Table, start []byte, end []byte,
	fn func(key []byte, value []byte) bool) error {

	var keys, values [][]byte

	err := bc.db.View(func(tx *bolt.Tx) error {
		b, err := bc.bucket(tx, table)
		if err != nil {
			return err
		}

		c := b.Cursor()

		var k, v []byte
		if start == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(start)
		}

		for ; k != nil; k, v = c.Next() {
			if end != nil && bytes.Compare(k, end) >= 0 {
				break
			}
			keys = append(keys, cloneBytes(k))
			values = append(values, cloneBytes(v))
		}

		return nil
	})

	if err != nil {
		return bc.wrapError(ErrRead, err, "scan %v", table)
	}

	for i, k := range keys {
		if !fn(k, values[i]) {
			break
		}
	}

	return nil
}

/*
Close closes the bolt database.
*/
func (bc *BoltConnector) Close() error {
	return bc.wrapError(ErrClose, bc.db.Close(), "close")
}

/*
bucket returns the bucket of a table.
*/
func (bc *BoltConnector) bucket(tx *bolt.Tx, table Table) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(table))
	if b == nil {
		return nil, NewConnectorError(ErrUnknownTable, string(table), bc.Name())
	}
	return b, nil
}

/*
wrapError wraps a bolt error into a ConnectorError.
*/
func (bc *BoltConnector) wrapError(ceType error, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	if ce, ok := err.(*ConnectorError); ok {
		return ce
	}

	return NewConnectorError(ceType, errors.Wrapf(err, format, args...).Error(), bc.Name())
}
