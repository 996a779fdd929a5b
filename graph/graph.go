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

	"devt.de/krotik/pagegraph/graph/data"
	"devt.de/krotik/pagegraph/graph/util"
	"devt.de/krotik/pagegraph/page"
)

/*
Graph is a named graph which is divided into subgraphs. Only the subgraphs
which are resident in the buffer are held in memory.
*/
type Graph struct {
	gm           *Manager                   // Manager which owns this graph
	id           uint32                     // Id of this graph
	name         string                     // Name of this graph
	nodeIDCount  uint64                     // Next free node id
	nodeCount    uint64                     // Number of nodes
	subgraphs    map[uint64]*SubGraph       // Resident subgraphs by id
	sgList       []*SubGraph                // Resident subgraphs in creation order
	nodeIndex    map[uint64]*SubGraph       // Resident nodes to their subgraph
	nodeProps    map[uint64]*data.Property  // Properties of resident nodes
	edgeProps    map[edgeKey]*data.Property // Properties of edges with a resident endpoint
	edgeSet      map[edgeKey]struct{}       // Edges with a resident endpoint
	selectPolicy SelectPolicy               // Policy for new nodes
	splitPolicy  SplitPolicy                // Policy for overflowing subgraphs
	pins         []*page.Page               // Pinned lead pages of running operations
	deleted      bool                       // Flag if this graph was deleted
}

/*
newGraph creates a new graph object from a graph table entry.
*/
func newGraph(gm *Manager, id uint32, meta *graphMeta, sel SelectPolicy, split SplitPolicy) *Graph {
	return &Graph{
		gm:           gm,
		id:           id,
		name:         meta.Name,
		nodeIDCount:  meta.NodeIDCount,
		nodeCount:    meta.NodeCount,
		subgraphs:    make(map[uint64]*SubGraph),
		nodeIndex:    make(map[uint64]*SubGraph),
		nodeProps:    make(map[uint64]*data.Property),
		edgeProps:    make(map[edgeKey]*data.Property),
		edgeSet:      make(map[edgeKey]struct{}),
		selectPolicy: sel,
		splitPolicy:  split,
	}
}

/*
ID returns the id of this graph.
*/
func (g *Graph) ID() uint32 {
	return g.id
}

/*
Name returns the name of this graph.
*/
func (g *Graph) Name() string {
	return g.name
}

/*
NodeCount returns the number of nodes in this graph.
*/
func (g *Graph) NodeCount() uint64 {
	return g.nodeCount
}

/*
BlockSize returns the maximum encoded size of a subgraph which is not
partitioned.
*/
func (g *Graph) BlockSize() int {
	return g.gm.pm.BlockSize()
}

/*
SetPolicies sets the select and split policy of this graph.
*/
func (g *Graph) SetPolicies(sel SelectPolicy, split SplitPolicy) {
	g.selectPolicy = sel
	g.splitPolicy = split
}

/*
SelectPolicy returns the select policy of this graph.
*/
func (g *Graph) SelectPolicy() SelectPolicy {
	return g.selectPolicy
}

/*
SplitPolicy returns the split policy of this graph.
*/
func (g *Graph) SplitPolicy() SplitPolicy {
	return g.splitPolicy
}

/*
String returns a string representation of this graph.
*/
func (g *Graph) String() string {
	return fmt.Sprintf("Graph %v (id: %v, nodes: %v, resident subgraphs: %v)",
		g.name, g.id, g.nodeCount, len(g.sgList))
}

// Subgraph primitives
// ===================

/*
SubGraphs returns all resident subgraphs in creation order.
*/
func (g *Graph) SubGraphs() []*SubGraph {
	ret := make([]*SubGraph, len(g.sgList))
	copy(ret, g.sgList)
	return ret
}

/*
SubGraphOf returns the subgraph of a resident node or nil if the node is not
resident.
*/
func (g *Graph) SubGraphOf(nid uint64) *SubGraph {
	return g.nodeIndex[nid]
}

/*
IsResident checks if a node is resident.
*/
func (g *Graph) IsResident(nid uint64) bool {
	_, ok := g.nodeIndex[nid]
	return ok
}

/*
Resolve makes sure the subgraph of a node is resident and returns it. The
subgraph is not pinned and may be evicted by any later graph operation.
*/
func (g *Graph) Resolve(nid uint64) (*SubGraph, error) {
	mark := g.pinMark()
	defer g.unpinTo(mark)

	return g.resolve(nid)
}

/*
NewSubGraph creates a new empty subgraph with a new lead page and admits it
to the buffer.
*/
func (g *Graph) NewSubGraph() (*SubGraph, error) {
	if err := g.checkDeleted(); err != nil {
		return nil, err
	}

	lead := g.gm.pm.NewPage(g.id)
	sg := newSubGraph(lead)

	g.addSubGraph(sg)

	if err := g.gm.bm.Admit(lead); err != nil {
		g.removeSubGraph(sg)
		g.gm.pm.Release(lead)
		return nil, err
	}

	g.pin(sg)

	LogDebug(fmt.Sprintf("Created subgraph %v in graph %v", sg.ID(), g.name))

	return sg, nil
}

/*
MoveNode moves a resident node and its edge lists to another resident
subgraph. A subgraph which becomes empty is discarded. Moving does not check
the target for overflow.
*/
func (g *Graph) MoveNode(nid uint64, to *SubGraph) error {
	from, ok := g.nodeIndex[nid]

	if !ok {
		return util.NewGraphError(util.ErrNotFound, "Node %v is not resident", nid)
	} else if from == to {
		return nil
	} else if g.subgraphs[to.ID()] != to {
		return util.NewGraphError(util.ErrInvalidData, "Subgraph %v is not resident", to.ID())
	}

	size := g.RecordSize(nid)

	if out, ok := from.out[nid]; ok {
		to.out[nid] = out
	}
	if in, ok := from.in[nid]; ok {
		to.in[nid] = in
	}

	from.removeNode(nid)
	to.addNode(nid)
	g.nodeIndex[nid] = to

	from.size -= size
	to.size += size

	from.lead.SetDirty(true)
	to.lead.SetDirty(true)

	if from.NodeCount() == 0 {
		g.discardSubGraph(from)
	}

	return nil
}

/*
RecordSize returns the estimated encoded size of a resident node.
*/
func (g *Graph) RecordSize(nid uint64) int {
	sg, ok := g.nodeIndex[nid]
	if !ok {
		return 0
	}

	size := page.NodeCost

	if out := sg.out[nid]; len(out) > 0 {
		size += page.EdgeListCost
		for _, dst := range out {
			size += page.EdgeCost + g.edgePropSize(edgeKey{nid, dst})
		}
	}

	if in := sg.in[nid]; len(in) > 0 {
		size += page.EdgeListCost
		for _, src := range in {
			size += page.EdgeCost + g.edgePropSize(edgeKey{src, nid})
		}
	}

	if p, ok := g.nodeProps[nid]; ok {
		size += page.NodePropertyCost + p.Size()
	}

	return size
}

/*
addSize changes the size estimate of a subgraph without checking it.
*/
func (g *Graph) addSize(sg *SubGraph, delta int) {
	sg.size += delta
	sg.lead.SetDirty(true)
	g.gm.bm.Touch(sg.lead)
}

/*
incByteCount changes the size estimate of a subgraph and checks it for
overflow.
*/
func (g *Graph) incByteCount(sg *SubGraph, delta int) error {
	g.addSize(sg, delta)

	if delta > 0 {
		return g.checkOverflow(sg)
	}

	return nil
}

/*
incByteCounts changes the size estimate of several subgraphs before checking
any of them for overflow. A subgraph may be given more than once.
*/
func (g *Graph) incByteCounts(delta int, sgs ...*SubGraph) error {
	for _, sg := range sgs {
		g.addSize(sg, delta)
	}

	if delta > 0 {
		for _, sg := range sgs {
			if g.subgraphs[sg.ID()] == sg {
				if err := g.checkOverflow(sg); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

/*
checkOverflow splits a subgraph which exceeds the block size. A subgraph which
cannot be split is partitioned.
*/
func (g *Graph) checkOverflow(sg *SubGraph) error {

	if sg.size <= g.BlockSize() {
		return nil
	}

	if sg.Partitioned() || sg.NodeCount() < 2 {
		g.partition(sg)
		return nil
	}

	count := sg.NodeCount()

	LogDebug(fmt.Sprintf("Splitting subgraph %v (%v bytes, %v nodes) with %v",
		sg.ID(), sg.size, count, g.splitPolicy.Name()))

	res, err := g.splitPolicy.Split(g, sg)
	if err != nil {
		return err
	}

	for _, r := range res {

		if g.subgraphs[r.ID()] != r {
			continue
		}

		if r.NodeCount() < count {
			if err := g.checkOverflow(r); err != nil {
				return err
			}
		} else if r.size > g.BlockSize() {

			// The split made no progress

			g.partition(r)
		}
	}

	return nil
}

/*
partition marks a subgraph as partitioned and makes sure its page chain can
hold its estimated size.
*/
func (g *Graph) partition(sg *SubGraph) {
	bs := g.BlockSize()

	if !sg.Partitioned() {
		LogDebug(fmt.Sprintf("Partitioning subgraph %v (%v bytes)", sg.ID(), sg.size))
		sg.lead.SetPartitioned()
	}

	for sg.lead.ChainLen()*bs < sg.size {
		g.gm.pm.NewChainedPage(sg.lead)
	}
}

/*
settle partitions the subgraph of a resident node if it exceeds the block
size without splitting it.
*/
func (g *Graph) settle(nid uint64) {
	if sg, ok := g.nodeIndex[nid]; ok && sg.size > g.BlockSize() {
		g.partition(sg)
	}
}

/*
addSubGraph registers a resident subgraph.
*/
func (g *Graph) addSubGraph(sg *SubGraph) {
	g.subgraphs[sg.ID()] = sg
	g.sgList = append(g.sgList, sg)
}

/*
removeSubGraph unregisters a resident subgraph.
*/
func (g *Graph) removeSubGraph(sg *SubGraph) {
	delete(g.subgraphs, sg.ID())

	for i, s := range g.sgList {
		if s == sg {
			g.sgList = append(g.sgList[:i], g.sgList[i+1:]...)
			break
		}
	}
}

/*
discardSubGraph drops an empty subgraph from the buffer without writing it.
*/
func (g *Graph) discardSubGraph(sg *SubGraph) {
	LogDebug(fmt.Sprintf("Discarding empty subgraph %v", sg.ID()))
	g.gm.bm.Discard(sg.lead)
}

// Buffer owner
// ============

/*
SerializeSubGraph encodes a resident subgraph. Returns the encoded block and
the ids of all nodes in the subgraph.

An incoming edge carries its property only if its source is in a different
subgraph. An edge inside the subgraph stores its property in the outgoing
record.
*/
func (g *Graph) SerializeSubGraph(lead *page.Page) ([]byte, []uint64, error) {
	var err error

	sg, ok := g.subgraphs[lead.ID()]
	if !ok {
		return nil, nil, util.NewGraphError(util.ErrInvalidData,
			"Subgraph %v of graph %v is not resident", lead.ID(), g.name)
	}

	records := make([]page.NodeRecord, 0, len(sg.nodes))

	for _, nid := range sg.nodes {
		rec := page.NodeRecord{ID: nid}

		for _, src := range sg.in[nid] {
			er := page.EdgeRecord{Other: src}

			if !sg.HasNode(src) {
				if er.Prop, err = g.encodeEdgeProp(edgeKey{src, nid}); err != nil {
					return nil, nil, err
				}
			}

			rec.In = append(rec.In, er)
		}

		for _, dst := range sg.out[nid] {
			er := page.EdgeRecord{Other: dst}

			if er.Prop, err = g.encodeEdgeProp(edgeKey{nid, dst}); err != nil {
				return nil, nil, err
			}

			rec.Out = append(rec.Out, er)
		}

		if p, ok := g.nodeProps[nid]; ok {
			if rec.Prop, err = p.Encode(); err != nil {
				return nil, nil, util.NewGraphError(util.ErrInvalidData,
					"Cannot encode property of node %v: %v", nid, err)
			}
		}

		records = append(records, rec)
	}

	// Make sure no written node id is ever allocated again

	if err := g.saveMeta(); err != nil {
		return nil, nil, err
	}

	return page.Encode(records), sg.Nodes(), nil
}

/*
DropSubGraph forgets a subgraph which was evicted or discarded. Properties of
edges are kept as long as one endpoint is resident.
*/
func (g *Graph) DropSubGraph(lead *page.Page) {
	sg, ok := g.subgraphs[lead.ID()]
	if !ok {
		return
	}

	g.removeSubGraph(sg)

	for _, nid := range sg.nodes {
		delete(g.nodeIndex, nid)
		delete(g.nodeProps, nid)
	}

	forget := func(k edgeKey, other uint64) {
		if _, ok := g.nodeIndex[other]; !ok {
			delete(g.edgeSet, k)
			delete(g.edgeProps, k)
		}
	}

	for _, nid := range sg.nodes {
		for _, dst := range sg.out[nid] {
			forget(edgeKey{nid, dst}, dst)
		}
		for _, src := range sg.in[nid] {
			forget(edgeKey{src, nid}, src)
		}
	}
}

/*
loadSubGraph builds a resident subgraph from a fetched block.
*/
func (g *Graph) loadSubGraph(lead *page.Page, block []byte) (*SubGraph, error) {

	records, err := page.Decode(block)
	if err != nil {
		return nil, err
	}

	sg := newSubGraph(lead)
	nodeProps := make(map[uint64]*data.Property)
	edgeProps := make(map[edgeKey]*data.Property)

	decodeProp := func(b []byte) (*data.Property, error) {
		p, err := data.DecodeProperty(b)
		if err != nil {
			return nil, util.NewGraphError(util.ErrCorruption,
				"Cannot decode property in page %v: %v", lead.ID(), err)
		}
		return p, nil
	}

	for _, rec := range records {

		if _, ok := g.nodeIndex[rec.ID]; ok || sg.HasNode(rec.ID) {
			return nil, util.NewGraphError(util.ErrCorruption,
				"Node %v of page %v is already resident", rec.ID, lead.ID())
		}

		sg.addNode(rec.ID)

		for _, e := range rec.In {
			sg.in[rec.ID] = append(sg.in[rec.ID], e.Other)

			if e.Prop != nil {
				if edgeProps[edgeKey{e.Other, rec.ID}], err = decodeProp(e.Prop); err != nil {
					return nil, err
				}
			}
		}

		for _, e := range rec.Out {
			sg.out[rec.ID] = append(sg.out[rec.ID], e.Other)

			if e.Prop != nil {
				if edgeProps[edgeKey{rec.ID, e.Other}], err = decodeProp(e.Prop); err != nil {
					return nil, err
				}
			}
		}

		if rec.Prop != nil {
			if nodeProps[rec.ID], err = decodeProp(rec.Prop); err != nil {
				return nil, err
			}
		}
	}

	// Register the subgraph

	g.addSubGraph(sg)

	for _, nid := range sg.nodes {
		g.nodeIndex[nid] = sg

		for _, dst := range sg.out[nid] {
			g.edgeSet[edgeKey{nid, dst}] = struct{}{}
		}
		for _, src := range sg.in[nid] {
			g.edgeSet[edgeKey{src, nid}] = struct{}{}
		}
	}

	for nid, p := range nodeProps {
		g.nodeProps[nid] = p
	}

	// Properties of resident edges are more recent than the stored ones

	for k, p := range edgeProps {
		if _, ok := g.edgeProps[k]; !ok {
			g.edgeProps[k] = p
		}
	}

	for _, nid := range sg.nodes {
		sg.size += g.RecordSize(nid)
	}

	lead.SetDirty(false)

	LogDebug(fmt.Sprintf("Loaded subgraph %v of graph %v (%v nodes)",
		sg.ID(), g.name, sg.NodeCount()))

	return sg, nil
}
