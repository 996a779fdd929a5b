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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"devt.de/krotik/common/fileutil"
)

/*
Connector is a byte oriented key-value store which is used to persist
pages, the node index and the graph directory.
*/
type Connector interface {

	/*
		Name returns the name of the connector instance.
	*/
	Name() string

	/*
		CreateTable creates a table if it does not exist.
	*/
	CreateTable(table Table) error

	/*
		DropTable removes a table and all its entries.
	*/
	DropTable(table Table) error

	/*
		Get returns the value of a key. Returns nil if the key does not exist.
	*/
	Get(table Table, key []byte) ([]byte, error)

	/*
		Put stores a value under a given key.
	*/
	Put(table Table, key []byte, value []byte) error

	/*
		PutBatch stores a list of key / value pairs in one operation.
	*/
	PutBatch(table Table, keys [][]byte, values [][]byte) error

	/*
		Delete removes a key.
	*/
	Delete(table Table, key []byte) error

	/*
		Scan iterates over all entries with start <= key < end in ascending
		key order. A nil start or end means the range is open on that side.
		The iteration stops if the given function returns false. Key and value
		must not be modified or kept after the function returns.
	*/
	Scan(table Table, start []byte, end []byte, fn func(key []byte, value []byte) bool) error

	/*
		Close closes the connector and releases all resources.
	*/
	Close() error
}

/*
Known connector types
*/
const (
	TypeMemory = "memory"
	TypeBolt   = "bolt"
	TypeSQLite = "sqlite"
)

/*
NewConnector creates a connector of a given type. Disk based connectors
store their data in the given location directory which is created if it does
not exist.
*/
func NewConnector(kind string, location string) (Connector, error) {
	kind = strings.ToLower(kind)

	if kind == TypeMemory {
		return NewMemoryConnector(location), nil
	}

	if kind != TypeBolt && kind != TypeSQLite {
		return nil, NewConnectorError(ErrUnknownType, kind, location)
	}

	if ok, _ := fileutil.PathExists(location); !ok {
		if err := os.MkdirAll(location, 0770); err != nil {
			return nil, NewConnectorError(ErrOpen, err.Error(), location)
		}
	}

	if kind == TypeBolt {
		return NewBoltConnector(filepath.Join(location, "pagegraph.bolt"))
	}

	return NewSQLConnector(filepath.Join(location, "pagegraph.sqlite"))
}

/*
createTables creates all known tables on a connector.
*/
func createTables(c Connector) error {
	for _, t := range Tables {
		if err := c.CreateTable(t); err != nil {
			return err
		}
	}
	return nil
}

/*
checkBatch checks that a batch has a value for every key.
*/
func checkBatch(name string, keys [][]byte, values [][]byte) error {
	if len(keys) != len(values) {
		return NewConnectorError(ErrWrite,
			fmt.Sprintf("Batch has %v keys but %v values", len(keys), len(values)), name)
	}
	return nil
}
