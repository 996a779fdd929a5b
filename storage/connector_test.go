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
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"devt.de/krotik/common/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const DBDIR = "connectortest"

func TestMain(m *testing.M) {
	flag.Parse()

	// Setup
	if res, _ := fileutil.PathExists(DBDIR); res {
		os.RemoveAll(DBDIR)
	}

	err := os.Mkdir(DBDIR, 0770)
	if err != nil {
		fmt.Print("Could not create test directory:", err.Error())
		os.Exit(1)
	}

	// Run the tests
	res := m.Run()

	// Teardown
	err = os.RemoveAll(DBDIR)
	if err != nil {
		fmt.Print("Could not remove test directory:", err.Error())
	}

	os.Exit(res)
}

/*
connectorsUnderTest returns one instance of every connector type.
*/
func connectorsUnderTest(t *testing.T, name string) []Connector {
	bc, err := NewBoltConnector(filepath.Join(DBDIR, name+".bolt"))
	require.NoError(t, err)

	sc, err := NewSQLConnector(filepath.Join(DBDIR, name+".sqlite"))
	require.NoError(t, err)

	return []Connector{NewMemoryConnector(name), bc, sc}
}

func TestConnectorGetPut(t *testing.T) {
	for _, c := range connectorsUnderTest(t, "getput") {
		t.Run(c.Name(), func(t *testing.T) {
			defer c.Close()

			val, err := c.Get(TableBlock, BlockKey(1))
			require.NoError(t, err)
			assert.Nil(t, val)

			require.NoError(t, c.Put(TableBlock, BlockKey(1), []byte("page1")))
			require.NoError(t, c.Put(TableGraph, GraphKey(1), []byte("graph1")))

			val, err = c.Get(TableBlock, BlockKey(1))
			require.NoError(t, err)
			assert.Equal(t, []byte("page1"), val)

			// Tables are separate namespaces

			val, err = c.Get(TableNode, BlockKey(1))
			require.NoError(t, err)
			assert.Nil(t, val)

			require.NoError(t, c.Put(TableBlock, BlockKey(1), []byte("page1b")))

			val, err = c.Get(TableBlock, BlockKey(1))
			require.NoError(t, err)
			assert.Equal(t, []byte("page1b"), val)

			require.NoError(t, c.Delete(TableBlock, BlockKey(1)))

			val, err = c.Get(TableBlock, BlockKey(1))
			require.NoError(t, err)
			assert.Nil(t, val)

			_, err = c.Get(Table("foo"), BlockKey(1))
			assert.True(t, errors.Is(err, ErrUnknownTable), "Unexpected error: %v", err)
		})
	}
}

func TestConnectorBatchAndScan(t *testing.T) {
	for _, c := range connectorsUnderTest(t, "scan") {
		t.Run(c.Name(), func(t *testing.T) {
			defer c.Close()

			var keys, values [][]byte

			for _, gid := range []uint32{2, 1, 3} {
				for nid := uint64(5); nid > 0; nid-- {
					keys = append(keys, NodeKey(gid, nid))
					values = append(values, []byte(fmt.Sprintf("%v-%v", gid, nid)))
				}
			}

			require.NoError(t, c.PutBatch(TableNode, keys, values))

			err := c.PutBatch(TableNode, keys, values[1:])
			assert.True(t, errors.Is(err, ErrWrite), "Unexpected error: %v", err)

			// Scan the entries of graph 2 in node id order

			var res []string

			start, end := GraphPrefixRange(2)
			require.NoError(t, c.Scan(TableNode, start, end, func(k, v []byte) bool {
				gid, nid, ok := ParseNodeKey(k)
				assert.True(t, ok)
				assert.Equal(t, uint32(2), gid)
				res = append(res, fmt.Sprintf("%v:%s", nid, v))
				return true
			}))

			assert.Equal(t, []string{"1:2-1", "2:2-2", "3:2-3", "4:2-4", "5:2-5"}, res)

			// Open ranges and early stop

			count := 0
			require.NoError(t, c.Scan(TableNode, nil, nil, func(k, v []byte) bool {
				count++
				return true
			}))
			assert.Equal(t, 15, count)

			count = 0
			require.NoError(t, c.Scan(TableNode, NodeKey(3, 0), nil, func(k, v []byte) bool {
				count++
				return count < 2
			}))
			assert.Equal(t, 2, count)

			// Drop and recreate a table

			require.NoError(t, c.DropTable(TableNode))
			require.NoError(t, c.CreateTable(TableNode))

			val, err := c.Get(TableNode, NodeKey(2, 1))
			require.NoError(t, err)
			assert.Nil(t, val)
		})
	}
}

func TestConnectorReopen(t *testing.T) {
	for _, kind := range []string{TypeBolt, TypeSQLite} {
		location := filepath.Join(DBDIR, "reopen-"+kind)

		c, err := NewConnector(kind, location)
		require.NoError(t, err)
		require.NoError(t, c.Put(TableGraph, GraphKey(SysPropsGraphID), []byte("sysprops")))
		require.NoError(t, c.Close())

		c, err = NewConnector(kind, location)
		require.NoError(t, err)

		val, err := c.Get(TableGraph, GraphKey(SysPropsGraphID))
		require.NoError(t, err)
		assert.Equal(t, []byte("sysprops"), val)
		require.NoError(t, c.Close())
	}

	_, err := NewConnector("foo", DBDIR)
	assert.True(t, errors.Is(err, ErrUnknownType), "Unexpected error: %v", err)
}

func TestMemoryConnectorScanBatches(t *testing.T) {
	mc := NewMemoryConnector("batches")

	MemScanBatchSize = 3
	defer func() { MemScanBatchSize = 100 }()

	for nid := uint64(0); nid < 10; nid++ {
		require.NoError(t, mc.Put(TableNode, NodeKey(1, nid), []byte{byte(nid)}))
	}

	var res []uint64

	collect := func(k, v []byte) bool {
		_, nid, _ := ParseNodeKey(k)
		res = append(res, nid)
		return true
	}

	require.NoError(t, mc.Scan(TableNode, nil, nil, collect))
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, res)

	res = nil
	require.NoError(t, mc.Scan(TableNode, NodeKey(1, 2), NodeKey(1, 8), collect))
	assert.Equal(t, []uint64{2, 3, 4, 5, 6, 7}, res)

	// Only the current batch is copied - later entries are read when reached

	res = nil
	require.NoError(t, mc.Scan(TableNode, nil, nil, func(k, v []byte) bool {
		_, nid, _ := ParseNodeKey(k)
		if nid == 0 {
			require.NoError(t, mc.Delete(TableNode, NodeKey(1, 7)))
		}
		res = append(res, nid)
		return true
	}))
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 8, 9}, res)

	// Stopping ends the scan within a batch

	count := 0
	require.NoError(t, mc.Scan(TableNode, nil, nil, func(k, v []byte) bool {
		count++
		return count < 4
	}))
	assert.Equal(t, 4, count)

	require.NoError(t, mc.Close())

	err := mc.Scan(TableNode, nil, nil, collect)
	assert.True(t, errors.Is(err, ErrClose), "Unexpected error: %v", err)
}

func TestMemoryConnectorErrors(t *testing.T) {
	mc := NewMemoryConnector("errors")

	if mc.Name() != "MemoryConnector:errors" {
		t.Error("Unexpected name:", mc.Name())
		return
	}

	mc.AccessMap[string(BlockKey(5))] = AccessGetAndPutError
	mc.AccessMap[string(BlockKey(6))] = AccessDeleteError

	if _, err := mc.Get(TableBlock, BlockKey(5)); !errors.Is(err, ErrRead) {
		t.Error("Unexpected result:", err)
		return
	}

	err := mc.PutBatch(TableBlock, [][]byte{BlockKey(4), BlockKey(5)}, [][]byte{{1}, {2}})
	if !errors.Is(err, ErrWrite) {
		t.Error("Unexpected result:", err)
		return
	}

	// Nothing of the failed batch was written

	if mc.Len(TableBlock) != 0 {
		t.Error("Unexpected table size:", mc.Len(TableBlock))
		return
	}

	if err := mc.Delete(TableBlock, BlockKey(6)); !errors.Is(err, ErrWrite) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := mc.Put(TableBlock, BlockKey(4), []byte{1}); err != nil {
		t.Error(err)
		return
	}

	if res := mc.String(); res != `
MemoryConnector:errors
graph (0 entries)
node (0 entries)
block (1 entries)
    0000000000000004 - 1 bytes
`[1:] {
		t.Error("Unexpected result:", res)
		return
	}

	MemRetClose = errors.New("testerror")
	defer func() { MemRetClose = nil }()

	if err := mc.Close(); err != MemRetClose || MemCallNumClose == 0 {
		t.Error("Unexpected close result:", err, MemCallNumClose)
		return
	}

	if _, err := mc.Get(TableBlock, BlockKey(4)); !errors.Is(err, ErrClose) {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestKeys(t *testing.T) {
	if res := fmt.Sprintf("%x", NodeKey(1, 2)); res != "000000010000000000000002" {
		t.Error("Unexpected result:", res)
		return
	}

	if _, _, ok := ParseNodeKey([]byte{1}); ok {
		t.Error("Short key should not parse")
		return
	}

	if gid, ok := ParseGraphKey(GraphKey(7)); !ok || gid != 7 {
		t.Error("Unexpected result:", gid, ok)
		return
	}

	start, end := GraphPrefixRange(^uint32(0))
	if end != nil || len(start) != 12 {
		t.Error("Unexpected range:", start, end)
		return
	}

	err := NewConnectorError(ErrRead, "foo", "bar")
	if err.Error() != "Could not read from connector (bar - foo)" {
		t.Error("Unexpected error string:", err)
		return
	}
}
