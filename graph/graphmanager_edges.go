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
Edge is a handle to a directed edge of a graph. There is at most one edge
between an ordered pair of nodes.
*/
type Edge struct {
	gm  *Manager // Manager of the graph
	gid uint32   // Id of the graph
	src uint64   // Id of the source node
	dst uint64   // Id of the destination node
}

/*
Source returns the source node of this edge.
*/
func (e Edge) Source() Node {
	return Node{e.gm, e.gid, e.src}
}

/*
Destination returns the destination node of this edge.
*/
func (e Edge) Destination() Node {
	return Node{e.gm, e.gid, e.dst}
}

/*
Property returns the value of a property key of this edge.
*/
func (e Edge) Property(key string) (interface{}, error) {
	g, err := e.graph()
	if err != nil {
		return nil, err
	}

	p, err := g.edgeProperty(e.key())
	if err != nil || p == nil {
		return nil, err
	}

	return p.Get(key), nil
}

/*
PropertyKeys returns all property keys of this edge in insertion order.
*/
func (e Edge) PropertyKeys() ([]string, error) {
	g, err := e.graph()
	if err != nil {
		return nil, err
	}

	p, err := g.edgeProperty(e.key())
	if err != nil || p == nil {
		return nil, err
	}

	return p.Keys(), nil
}

/*
SetProperty sets the value of a property key of this edge.
*/
func (e Edge) SetProperty(key string, val interface{}) error {
	g, err := e.graph()
	if err != nil {
		return err
	}

	return g.setEdgeProperty(e.key(), key, val)
}

/*
RemoveProperty is not supported.
*/
func (e Edge) RemoveProperty(key string) error {
	return util.NewGraphError(util.ErrUnsupported,
		"Removing property %v of edge %v", key, e.key())
}

/*
String returns a string representation of this edge.
*/
func (e Edge) String() string {
	return fmt.Sprintf("Edge %v -> %v (graph: %v)", e.src, e.dst, e.gid)
}

/*
key returns the key of this edge.
*/
func (e Edge) key() edgeKey {
	return edgeKey{e.src, e.dst}
}

/*
graph returns the graph of this edge.
*/
func (e Edge) graph() (*Graph, error) {
	if e.gm == nil {
		return nil, util.NewGraphError(util.ErrInvalidData, "Invalid edge handle")
	}
	return e.gm.graph(e.gid)
}

// Edge operations
// ===============

/*
AddEdge adds a directed edge between two nodes of this graph. Returns the
existing edge if the nodes are already connected.
*/
func (g *Graph) AddEdge(src Node, dst Node) (Edge, error) {

	if err := g.checkHandle(src); err != nil {
		return Edge{}, err
	} else if err := g.checkHandle(dst); err != nil {
		return Edge{}, err
	}

	mark := g.pinMark()
	defer g.unpinTo(mark)

	if err := g.resolveEdge(src.id, dst.id); err != nil {
		return Edge{}, err
	}

	k := edgeKey{src.id, dst.id}
	e := g.edge(k)

	if _, ok := g.edgeSet[k]; ok {
		return e, nil
	}

	g.edgeSet[k] = struct{}{}

	// Both edge lists are complete before any subgraph is split

	sg := g.nodeIndex[src.id]
	delta := page.EdgeCost
	if len(sg.out[src.id]) == 0 {
		delta += page.EdgeListCost
	}
	sg.out[src.id] = append(sg.out[src.id], dst.id)
	g.addSize(sg, delta)

	sg = g.nodeIndex[dst.id]
	delta = page.EdgeCost
	if len(sg.in[dst.id]) == 0 {
		delta += page.EdgeListCost
	}
	sg.in[dst.id] = append(sg.in[dst.id], src.id)
	g.addSize(sg, delta)

	// The outgoing side is split first. A split may move the target node.

	if err := g.checkOverflow(g.nodeIndex[src.id]); err != nil {
		return e, err
	} else if err := g.checkOverflow(g.nodeIndex[dst.id]); err != nil {
		return e, err
	}

	if err := g.splitPolicy.AddEdgeAction(g, e); err != nil {
		return e, err
	}

	// Relocated nodes never cause a split

	g.settle(src.id)
	g.settle(dst.id)

	return e, nil
}

/*
FindEdge looks up the edge between two nodes.
*/
func (g *Graph) FindEdge(src Node, dst Node) (Edge, bool, error) {

	if err := g.checkHandle(src); err != nil {
		return Edge{}, false, err
	} else if err := g.checkHandle(dst); err != nil {
		return Edge{}, false, err
	}

	mark := g.pinMark()
	defer g.unpinTo(mark)

	if _, err := g.resolve(src.id); err != nil {
		return Edge{}, false, err
	}

	k := edgeKey{src.id, dst.id}
	_, ok := g.edgeSet[k]

	if !ok {
		return Edge{}, false, nil
	}

	return g.edge(k), true, nil
}

/*
RemoveEdge removes an edge from this graph.
*/
func (g *Graph) RemoveEdge(e Edge) error {

	if e.gm != g.gm || e.gid != g.id {
		return util.NewGraphError(util.ErrInvalidData,
			"Edge %v does not belong to graph %v", e.key(), g.name)
	}

	mark := g.pinMark()
	defer g.unpinTo(mark)

	if err := g.resolveEdge(e.src, e.dst); err != nil {
		return err
	}

	return g.removeEdge(e.key())
}

/*
resolveEdge makes sure both endpoints of an edge are resident.
*/
func (g *Graph) resolveEdge(src uint64, dst uint64) error {

	if _, err := g.resolve(src); err != nil {
		return err
	}

	_, err := g.resolve(dst)

	return err
}

/*
removeEdge removes an edge whose endpoints are both resident.
*/
func (g *Graph) removeEdge(k edgeKey) error {

	if _, ok := g.edgeSet[k]; !ok {
		return util.NewGraphError(util.ErrNotFound, "Edge %v", k)
	}

	propSize := g.edgePropSize(k)

	delete(g.edgeSet, k)
	delete(g.edgeProps, k)

	sg := g.nodeIndex[k.src]
	list, _ := removeID(sg.out[k.src], k.dst)
	delta := -(page.EdgeCost + propSize)

	if len(list) == 0 {
		delete(sg.out, k.src)
		delta -= page.EdgeListCost
	} else {
		sg.out[k.src] = list
	}

	if err := g.incByteCount(sg, delta); err != nil {
		return err
	}

	sg = g.nodeIndex[k.dst]
	list, _ = removeID(sg.in[k.dst], k.src)
	delta = -(page.EdgeCost + propSize)

	if len(list) == 0 {
		delete(sg.in, k.dst)
		delta -= page.EdgeListCost
	} else {
		sg.in[k.dst] = list
	}

	return g.incByteCount(sg, delta)
}

/*
edgeProperty returns the property of an edge or nil if the edge has no
property.
*/
func (g *Graph) edgeProperty(k edgeKey) (*data.Property, error) {
	mark := g.pinMark()
	defer g.unpinTo(mark)

	if _, err := g.resolve(k.src); err != nil {
		return nil, err
	}

	if _, ok := g.edgeSet[k]; !ok {
		return nil, util.NewGraphError(util.ErrNotFound, "Edge %v", k)
	}

	return g.edgeProps[k], nil
}

/*
setEdgeProperty sets a property key of an edge and updates the size of the
subgraphs of both endpoints.
*/
func (g *Graph) setEdgeProperty(k edgeKey, key string, val interface{}) error {

	if val == nil {
		return util.NewGraphError(util.ErrInvalidData, "Value of property %v must not be nil", key)
	}

	mark := g.pinMark()
	defer g.unpinTo(mark)

	if err := g.resolveEdge(k.src, k.dst); err != nil {
		return err
	}

	if _, ok := g.edgeSet[k]; !ok {
		return util.NewGraphError(util.ErrNotFound, "Edge %v", k)
	}

	p, ok := g.edgeProps[k]
	if !ok {
		p = data.NewProperty()
	}

	oldSize := 0
	if ok {
		oldSize = p.Size()
	}

	if _, err := p.Set(key, val); err != nil {
		return util.NewGraphError(util.ErrInvalidData, err.Error())
	}

	g.edgeProps[k] = p
	delta := p.Size() - oldSize

	// The property is counted in the records of both endpoints. Both sides
	// must be counted before a split can move one of the records.

	return g.incByteCounts(delta, g.nodeIndex[k.src], g.nodeIndex[k.dst])
}
