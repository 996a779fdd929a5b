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
	"fmt"
	"sync"

	"github.com/google/btree"
)

/*
The key will not be accessible via Get
*/
const AccessGetError = 1

/*
The key will not be accessible via Put or PutBatch
*/
const AccessPutError = 2

/*
The key will not be accessible via Delete
*/
const AccessDeleteError = 3

/*
The key will not be accessible via Get nor Put
*/
const AccessGetAndPutError = 4

/*
Return value for Close calls
*/
var MemRetClose error

/*
Number of Close calls
*/
var MemCallNumClose int

/*
Number of entries which a Scan copies at once
*/
var MemScanBatchSize = 100

/*
memoryItem is an entry in a memory table.
*/
type memoryItem struct {
	key   []byte
	value []byte
}

/*
Less determines the order of entries in a memory table.
*/
func (mi *memoryItem) Less(than btree.Item) bool {
	return bytes.Compare(mi.key, than.(*memoryItem).key) < 0
}

/*
MemoryConnector data structure
*/
type MemoryConnector struct {
	name   string                 // Name of the connector
	tables map[Table]*btree.BTree // Ordered tables
	mutex  *sync.Mutex            // Mutex to protect table operations
	closed bool                   // Flag if the connector was closed

	AccessMap map[string]int // Special map to simulate access issues
}

/*
NewMemoryConnector creates a new connector which keeps all its data in memory.
*/
func NewMemoryConnector(name string) *MemoryConnector {
	mc := &MemoryConnector{name, make(map[Table]*btree.BTree), &sync.Mutex{},
		false, make(map[string]int)}

	createTables(mc)

	return mc
}

/*
Name returns the name of the connector instance.
*/
func (mc *MemoryConnector) Name() string {
	return "MemoryConnector:" + mc.name
}

/*
CreateTable creates a table if it does not exist.
*/
func (mc *MemoryConnector) CreateTable(table Table) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if _, ok := mc.tables[table]; !ok {
		mc.tables[table] = btree.New(32)
	}

	return nil
}

/*
DropTable removes a table and all its entries.
*/
func (mc *MemoryConnector) DropTable(table Table) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if _, ok := mc.tables[table]; !ok {
		return NewConnectorError(ErrUnknownTable, string(table), mc.Name())
	}

	delete(mc.tables, table)

	return nil
}

/*
Get returns the value of a key. Returns nil if the key does not exist.
*/
func (mc *MemoryConnector) Get(table Table, key []byte) ([]byte, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	t, err := mc.table(table)
	if err != nil {
		return nil, err
	}

	if access := mc.AccessMap[string(key)]; access == AccessGetError || access == AccessGetAndPutError {
		return nil, NewConnectorError(ErrRead, fmt.Sprintf("Simulated error for key %x", key), mc.Name())
	}

	item := t.Get(&memoryItem{key: key})
	if item == nil {
		return nil, nil
	}

	return cloneBytes(item.(*memoryItem).value), nil
}

/*
Put stores a value under a given key.
*/
func (mc *MemoryConnector) Put(table Table, key []byte, value []byte) error {
	return mc.PutBatch(table, [][]byte{key}, [][]byte{value})
}

/*
PutBatch stores a list of key / value pairs in one operation. Either all or
none of the pairs are stored.
*/
func (mc *MemoryConnector) PutBatch(table Table, keys [][]byte, values [][]byte) error {
	if err := checkBatch(mc.Name(), keys, values); err != nil {
		return err
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	t, err := mc.table(table)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if access := mc.AccessMap[string(key)]; access == AccessPutError || access == AccessGetAndPutError {
			return NewConnectorError(ErrWrite, fmt.Sprintf("Simulated error for key %x", key), mc.Name())
		}
	}

	for i, key := range keys {
		t.ReplaceOrInsert(&memoryItem{cloneBytes(key), cloneBytes(values[i])})
	}

	return nil
}

/*
Delete removes a key.
*/
func (mc *MemoryConnector) Delete(table Table, key []byte) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	t, err := mc.table(table)
	if err != nil {
		return err
	}

	if mc.AccessMap[string(key)] == AccessDeleteError {
		return NewConnectorError(ErrWrite, fmt.Sprintf("Simulated error for key %x", key), mc.Name())
	}

	t.Delete(&memoryItem{key: key})

	return nil
}

/*
Scan iterates over all entries with start <= key < end in ascending key order.
The entries are copied in batches so the callback can use the connector.
*/
func (mc *MemoryConnector) Scan(table Table, start []byte, end []byte,
	fn func(key []byte, value []byte) bool) error {

	from := start
	after := false

	for {
		mc.mutex.Lock()

		t, err := mc.table(table)
		if err != nil {
			mc.mutex.Unlock()
			return err
		}

		items := make([]*memoryItem, 0, MemScanBatchSize)

		collect := func(i btree.Item) bool {
			item := i.(*memoryItem)
			if end != nil && bytes.Compare(item.key, end) >= 0 {
				return false
			} else if after && bytes.Equal(item.key, from) {
				return true
			}
			items = append(items, item)
			return len(items) < MemScanBatchSize
		}

		if from == nil {
			t.Ascend(collect)
		} else {
			t.AscendGreaterOrEqual(&memoryItem{key: from}, collect)
		}

		mc.mutex.Unlock()

		for _, item := range items {
			if !fn(item.key, item.value) {
				return nil
			}
		}

		if len(items) < MemScanBatchSize {
			return nil
		}

		// Continue after the last returned key

		from = items[len(items)-1].key
		after = true
	}
}

/*
Close closes the connector.
*/
func (mc *MemoryConnector) Close() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	MemCallNumClose++
	mc.closed = true

	return MemRetClose
}

/*
Len returns the number of entries in a table.
*/
func (mc *MemoryConnector) Len(table Table) int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if t, ok := mc.tables[table]; ok {
		return t.Len()
	}

	return 0
}

/*
String returns a string representation of the connector's tables.
*/
func (mc *MemoryConnector) String() string {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	buf := new(bytes.Buffer)

	buf.WriteString(fmt.Sprintf("%v\n", mc.Name()))

	for _, table := range Tables {
		t, ok := mc.tables[table]
		if !ok {
			continue
		}

		buf.WriteString(fmt.Sprintf("%v (%v entries)\n", table, t.Len()))

		t.Ascend(func(i btree.Item) bool {
			item := i.(*memoryItem)
			buf.WriteString(fmt.Sprintf("    %x - %v bytes\n", item.key, len(item.value)))
			return true
		})
	}

	return buf.String()
}

/*
table returns a table or an error if the table does not exist.
*/
func (mc *MemoryConnector) table(table Table) (*btree.BTree, error) {
	if mc.closed {
		return nil, NewConnectorError(ErrClose, "Connector is closed", mc.Name())
	}

	t, ok := mc.tables[table]
	if !ok {
		return nil, NewConnectorError(ErrUnknownTable, string(table), mc.Name())
	}

	return t, nil
}

/*
cloneBytes returns a copy of a given byte slice.
*/
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	ret := make([]byte, len(b))
	copy(ret, b)

	return ret
}
