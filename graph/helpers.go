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
	"encoding/json"
	"fmt"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/stringutil"
	"devt.de/krotik/pagegraph/graph/util"
	"devt.de/krotik/pagegraph/storage"
)

/*
checkGraphName checks if a given graph name is valid.
*/
func checkGraphName(name string) error {
	if !stringutil.IsAlphaNumeric(name) {
		return util.NewGraphError(util.ErrInvalidData,
			"Graph name %v is not alphanumeric - can only contain [a-zA-Z0-9_]", name)
	}
	return nil
}

/*
decodeGraphMeta decodes a graph table entry.
*/
func decodeGraphMeta(gid uint32, val []byte) (*graphMeta, error) {
	var meta graphMeta

	if err := json.Unmarshal(val, &meta); err != nil {
		return nil, util.NewGraphError(util.ErrCorruption,
			"Cannot decode entry of graph %v: %v", gid, err)
	}

	return &meta, nil
}

/*
saveMeta writes the graph table entry of this graph.
*/
func (g *Graph) saveMeta() error {
	val, err := json.Marshal(&graphMeta{g.name, g.nodeIDCount, g.nodeCount})
	errorutil.AssertOk(err)

	if err := g.gm.conn.Put(storage.TableGraph, storage.GraphKey(g.id), val); err != nil {
		return util.NewGraphError(util.ErrWriting, err.Error())
	}

	return nil
}

// Pinning
// =======

/*
pin pins the subgraph of a running operation and marks it as most recently
used.
*/
func (g *Graph) pin(sg *SubGraph) {
	g.gm.bm.Pin(sg.lead)
	g.gm.bm.Touch(sg.lead)
	g.pins = append(g.pins, sg.lead)
}

/*
pinMark returns the current position in the pin stack.
*/
func (g *Graph) pinMark() int {
	return len(g.pins)
}

/*
unpinTo releases all pins which were added after a given mark.
*/
func (g *Graph) unpinTo(mark int) {
	for len(g.pins) > mark {
		last := len(g.pins) - 1
		g.gm.bm.Unpin(g.pins[last])
		g.pins[last] = nil
		g.pins = g.pins[:last]
	}
}

// Resolution
// ==========

/*
resolve returns the subgraph of a node. The subgraph is fetched if it is not
resident. The subgraph is pinned.
*/
func (g *Graph) resolve(nid uint64) (*SubGraph, error) {

	if err := g.checkDeleted(); err != nil {
		return nil, err
	}

	if sg, ok := g.nodeIndex[nid]; ok {
		g.pin(sg)
		return sg, nil
	}

	if nid >= g.nodeIDCount {
		return nil, util.NewGraphError(util.ErrNotFound,
			"Node %v does not exist in graph %v", nid, g.name)
	}

	pids, partitioned, err := g.gm.bm.PageList(g.id, nid)
	if err != nil {
		return nil, err
	}

	lead, block, err := g.gm.bm.Fetch(g.id, pids, partitioned)
	if err != nil {
		return nil, err
	}

	sg, err := g.loadSubGraph(lead, block)
	if err != nil {
		g.gm.bm.Discard(lead)
		return nil, err
	}

	g.pin(sg)

	if !sg.HasNode(nid) {
		return nil, util.NewGraphError(util.ErrCorruption,
			"Node %v is not in its subgraph %v", nid, sg.ID())
	}

	return sg, nil
}

/*
checkDeleted returns an error if this graph was deleted.
*/
func (g *Graph) checkDeleted() error {
	if g.deleted {
		return util.NewGraphError(util.ErrNotFound, "Graph %v was deleted", g.name)
	}
	return nil
}

/*
checkHandle checks that a node handle belongs to this graph.
*/
func (g *Graph) checkHandle(n Node) error {
	if n.gm != g.gm || n.gid != g.id {
		return util.NewGraphError(util.ErrInvalidData,
			"Node %v does not belong to graph %v", n.id, g.name)
	}
	return nil
}

/*
node returns a handle for a node of this graph.
*/
func (g *Graph) node(nid uint64) Node {
	return Node{g.gm, g.id, nid}
}

/*
edge returns a handle for an edge of this graph.
*/
func (g *Graph) edge(k edgeKey) Edge {
	return Edge{g.gm, g.id, k.src, k.dst}
}

// Edge properties
// ===============

/*
edgePropSize returns the encoded size of the property of an edge.
*/
func (g *Graph) edgePropSize(k edgeKey) int {
	if p, ok := g.edgeProps[k]; ok {
		return p.Size()
	}
	return 0
}

/*
encodeEdgeProp encodes the property of an edge. Returns nil if the edge has no
property.
*/
func (g *Graph) encodeEdgeProp(k edgeKey) ([]byte, error) {
	p, ok := g.edgeProps[k]
	if !ok {
		return nil, nil
	}

	b, err := p.Encode()
	if err != nil {
		return nil, util.NewGraphError(util.ErrInvalidData,
			"Cannot encode property of edge %v -> %v: %v", k.src, k.dst, err)
	}

	return b, nil
}

/*
String returns a string representation of an edge key.
*/
func (k edgeKey) String() string {
	return fmt.Sprintf("%v -> %v", k.src, k.dst)
}
