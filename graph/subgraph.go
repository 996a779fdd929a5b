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
	"fmt"

	"devt.de/krotik/pagegraph/page"
)

/*
SubGraph is a resident group of nodes which is stored in one page chain.
The edge lists of a node are kept in the subgraph of the node.
*/
type SubGraph struct {
	lead    *page.Page          // Lead page of the subgraph
	nodes   []uint64            // Node ids in insertion order
	nodeSet map[uint64]int      // Node ids to positions in the node list
	out     map[uint64][]uint64 // Outgoing adjacency of nodes in this subgraph
	in      map[uint64][]uint64 // Incoming adjacency of nodes in this subgraph
	size    int                 // Estimated encoded size in bytes
}

/*
newSubGraph creates a new empty subgraph for a given lead page.
*/
func newSubGraph(lead *page.Page) *SubGraph {
	return &SubGraph{lead, nil, make(map[uint64]int),
		make(map[uint64][]uint64), make(map[uint64][]uint64), page.BlockInitCost}
}

/*
ID returns the id of this subgraph which is the id of its lead page.
*/
func (sg *SubGraph) ID() uint64 {
	return sg.lead.ID()
}

/*
Lead returns the lead page of this subgraph.
*/
func (sg *SubGraph) Lead() *page.Page {
	return sg.lead
}

/*
Size returns the estimated encoded size of this subgraph.
*/
func (sg *SubGraph) Size() int {
	return sg.size
}

/*
Dirty returns if this subgraph has been modified since it was last written.
*/
func (sg *SubGraph) Dirty() bool {
	return sg.lead.Dirty()
}

/*
Partitioned returns if this subgraph is stored in a chain of several pages.
*/
func (sg *SubGraph) Partitioned() bool {
	return sg.lead.Partitioned()
}

/*
NodeCount returns the number of nodes in this subgraph.
*/
func (sg *SubGraph) NodeCount() int {
	return len(sg.nodes)
}

/*
Nodes returns the ids of all nodes of this subgraph in insertion order.
*/
func (sg *SubGraph) Nodes() []uint64 {
	ret := make([]uint64, len(sg.nodes))
	copy(ret, sg.nodes)
	return ret
}

/*
HasNode checks if a node belongs to this subgraph.
*/
func (sg *SubGraph) HasNode(nid uint64) bool {
	_, ok := sg.nodeSet[nid]
	return ok
}

/*
OutNeighbors returns the ids of the destinations of all outgoing edges of a
node of this subgraph.
*/
func (sg *SubGraph) OutNeighbors(nid uint64) []uint64 {
	return copyIDs(sg.out[nid])
}

/*
InNeighbors returns the ids of the sources of all incoming edges of a node of
this subgraph.
*/
func (sg *SubGraph) InNeighbors(nid uint64) []uint64 {
	return copyIDs(sg.in[nid])
}

/*
String returns a string representation of this subgraph.
*/
func (sg *SubGraph) String() string {
	return fmt.Sprintf("SubGraph %v (nodes: %v, size: %v, dirty: %v, partitioned: %v)",
		sg.ID(), len(sg.nodes), sg.size, sg.Dirty(), sg.Partitioned())
}

/*
addNode adds a node id to this subgraph.
*/
func (sg *SubGraph) addNode(nid uint64) {
	sg.nodeSet[nid] = len(sg.nodes)
	sg.nodes = append(sg.nodes, nid)
}

/*
removeNode removes a node id and its edge lists from this subgraph.
*/
func (sg *SubGraph) removeNode(nid uint64) {
	pos, ok := sg.nodeSet[nid]
	if !ok {
		return
	}

	sg.nodes = append(sg.nodes[:pos], sg.nodes[pos+1:]...)
	delete(sg.nodeSet, nid)

	for i := pos; i < len(sg.nodes); i++ {
		sg.nodeSet[sg.nodes[i]] = i
	}

	delete(sg.out, nid)
	delete(sg.in, nid)
}

/*
copyIDs returns a copy of an id list.
*/
func copyIDs(ids []uint64) []uint64 {
	ret := make([]uint64, len(ids))
	copy(ret, ids)
	return ret
}

/*
removeID removes the first occurrence of an id from a list.
*/
func removeID(ids []uint64, id uint64) ([]uint64, bool) {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...), true
		}
	}
	return ids, false
}
