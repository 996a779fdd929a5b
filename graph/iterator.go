/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"devt.de/krotik/pagegraph/graph/util"
	"devt.de/krotik/pagegraph/storage"
)

/*
iteratorChunkSize is the number of node table entries which are read at once
*/
const iteratorChunkSize = 1000

/*
NodeIterator can be used to iterate over all nodes of a graph. The returned
nodes are placeholders until they are used.
*/
type NodeIterator struct {
	g         *Graph   // Graph which is iterated
	ids       []uint64 // Current chunk of node ids
	pos       int      // Position in the current chunk
	start     []byte   // Start key of the next chunk
	end       []byte   // End key of the node table range of the graph
	done      bool     // Flag if the node table range was read completely
	LastError error    // Last encountered error
}

/*
Nodes returns an iterator over all nodes of this graph. All resident
subgraphs of this graph are written first so the node table is complete.
*/
func (g *Graph) Nodes() (*NodeIterator, error) {

	if err := g.checkDeleted(); err != nil {
		return nil, err
	}

	if err := g.gm.bm.FlushGraph(g.id); err != nil {
		return nil, err
	}

	start, end := storage.GraphPrefixRange(g.id)

	it := &NodeIterator{g: g, start: start, end: end}
	it.fill()

	return it, it.LastError
}

/*
Next returns the next node. Sets the LastError attribute if an error occurs.
*/
func (it *NodeIterator) Next() Node {

	if !it.HasNext() {
		return Node{}
	}

	nid := it.ids[it.pos]
	it.pos++

	return it.g.node(nid)
}

/*
HasNext returns if there is a next node.
*/
func (it *NodeIterator) HasNext() bool {

	if it.pos >= len(it.ids) && !it.done {
		it.fill()
	}

	return it.pos < len(it.ids)
}

/*
Error returns the last encountered error.
*/
func (it *NodeIterator) Error() error {
	return it.LastError
}

/*
fill reads the next chunk of node ids.
*/
func (it *NodeIterator) fill() {
	var last []byte

	it.ids = it.ids[:0]
	it.pos = 0

	err := it.g.gm.conn.Scan(storage.TableNode, it.start, it.end, func(key []byte, value []byte) bool {
		if _, nid, ok := storage.ParseNodeKey(key); ok {
			it.ids = append(it.ids, nid)
		}

		if len(it.ids) >= iteratorChunkSize {
			last = append(last[:0], key...)
			return false
		}

		return true
	})

	if err != nil {
		it.LastError = util.NewGraphError(util.ErrReading, err.Error())
		it.done = true
		return
	}

	if last == nil {
		it.done = true
		return
	}

	// Continue directly after the last read key

	it.start = append(last, 0)
}
