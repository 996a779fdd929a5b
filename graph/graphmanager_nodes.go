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
	"errors"
	"fmt"

	"devt.de/krotik/pagegraph/graph/data"
	"devt.de/krotik/pagegraph/graph/util"
	"devt.de/krotik/pagegraph/page"
)

/*
Node is a handle to a node of a graph. A handle of a node which is not
resident is a placeholder. A placeholder is resolved on first use by fetching
the subgraph of the node.
*/
type Node struct {
	gm  *Manager // Manager of the graph
	gid uint32   // Id of the graph
	id  uint64   // Id of the node
}

/*
ID returns the id of this node.
*/
func (n Node) ID() uint64 {
	return n.id
}

/*
GraphID returns the id of the graph of this node.
*/
func (n Node) GraphID() uint32 {
	return n.gid
}

/*
IsPlaceholder returns if the subgraph of this node is not resident.
*/
func (n Node) IsPlaceholder() bool {
	g, err := n.graph()
	return err != nil || !g.IsResident(n.id)
}

/*
Resolve makes sure the subgraph of this node is resident. Calling Resolve on
a resident node has no effect.
*/
func (n Node) Resolve() error {
	g, err := n.graph()
	if err != nil {
		return err
	}

	mark := g.pinMark()
	defer g.unpinTo(mark)

	_, err = g.resolve(n.id)

	return err
}

/*
Property returns the value of a property key of this node.
*/
func (n Node) Property(key string) (interface{}, error) {
	g, err := n.graph()
	if err != nil {
		return nil, err
	}

	p, err := g.nodeProperty(n.id)
	if err != nil || p == nil {
		return nil, err
	}

	return p.Get(key), nil
}

/*
PropertyKeys returns all property keys of this node in insertion order.
*/
func (n Node) PropertyKeys() ([]string, error) {
	g, err := n.graph()
	if err != nil {
		return nil, err
	}

	p, err := g.nodeProperty(n.id)
	if err != nil || p == nil {
		return nil, err
	}

	return p.Keys(), nil
}

/*
SetProperty sets the value of a property key of this node.
*/
func (n Node) SetProperty(key string, val interface{}) error {
	g, err := n.graph()
	if err != nil {
		return err
	}

	return g.setNodeProperty(n.id, key, val)
}

/*
RemoveProperty is not supported.
*/
func (n Node) RemoveProperty(key string) error {
	return util.NewGraphError(util.ErrUnsupported, "Removing property %v of node %v", key, n.id)
}

/*
OutEdges returns all outgoing edges of this node.
*/
func (n Node) OutEdges() ([]Edge, error) {
	return n.edges(true)
}

/*
InEdges returns all incoming edges of this node.
*/
func (n Node) InEdges() ([]Edge, error) {
	return n.edges(false)
}

/*
OutNeighbors returns the destinations of all outgoing edges of this node.
The returned nodes may be placeholders.
*/
func (n Node) OutNeighbors() ([]Node, error) {
	return n.neighbors(true)
}

/*
InNeighbors returns the sources of all incoming edges of this node. The
returned nodes may be placeholders.
*/
func (n Node) InNeighbors() ([]Node, error) {
	return n.neighbors(false)
}

/*
String returns a string representation of this node.
*/
func (n Node) String() string {
	return fmt.Sprintf("Node %v (graph: %v)", n.id, n.gid)
}

/*
graph returns the graph of this node.
*/
func (n Node) graph() (*Graph, error) {
	if n.gm == nil {
		return nil, util.NewGraphError(util.ErrInvalidData, "Invalid node handle")
	}
	return n.gm.graph(n.gid)
}

/*
edges returns the edges of one direction of this node.
*/
func (n Node) edges(out bool) ([]Edge, error) {
	g, err := n.graph()
	if err != nil {
		return nil, err
	}

	ids, err := g.neighborIDs(n.id, out)
	if err != nil {
		return nil, err
	}

	ret := make([]Edge, 0, len(ids))

	for _, other := range ids {
		if out {
			ret = append(ret, g.edge(edgeKey{n.id, other}))
		} else {
			ret = append(ret, g.edge(edgeKey{other, n.id}))
		}
	}

	return ret, nil
}

/*
neighbors returns the neighbors of one direction of this node.
*/
func (n Node) neighbors(out bool) ([]Node, error) {
	g, err := n.graph()
	if err != nil {
		return nil, err
	}

	ids, err := g.neighborIDs(n.id, out)
	if err != nil {
		return nil, err
	}

	ret := make([]Node, 0, len(ids))

	for _, other := range ids {
		ret = append(ret, g.node(other))
	}

	return ret, nil
}

// Node operations
// ===============

/*
AddNode adds a new node to this graph. The subgraph of the new node is chosen
by the select policy of this graph.
*/
func (g *Graph) AddNode() (Node, error) {
	if err := g.checkDeleted(); err != nil {
		return Node{}, err
	}

	mark := g.pinMark()
	defer g.unpinTo(mark)

	sg, err := g.selectPolicy.Select(g)
	if err != nil {
		return Node{}, err
	}

	g.pin(sg)

	nid := g.nodeIDCount
	g.nodeIDCount++
	g.nodeCount++

	sg.addNode(nid)
	g.nodeIndex[nid] = sg

	return g.node(nid), g.incByteCount(sg, page.NodeCost)
}

/*
Node returns a resident node of this graph. The subgraph of the node is
fetched if necessary.
*/
func (g *Graph) Node(nid uint64) (Node, error) {
	mark := g.pinMark()
	defer g.unpinTo(mark)

	if _, err := g.resolve(nid); err != nil {
		return Node{}, err
	}

	return g.node(nid), nil
}

/*
HasNode checks if a node exists in this graph.
*/
func (g *Graph) HasNode(nid uint64) (bool, error) {
	_, err := g.Node(nid)

	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

/*
RemoveNode removes a node and all its edges from this graph.
*/
func (g *Graph) RemoveNode(n Node) error {
	if err := g.checkHandle(n); err != nil {
		return err
	}

	mark := g.pinMark()
	defer g.unpinTo(mark)

	sg, err := g.resolve(n.id)
	if err != nil {
		return err
	}

	// Remove all edges - each neighbor is only pinned while its edge is removed

	for _, dst := range sg.OutNeighbors(n.id) {
		if err := g.removeEdgeOf(edgeKey{n.id, dst}, dst); err != nil {
			return err
		}
	}

	for _, src := range g.nodeIndex[n.id].InNeighbors(n.id) {
		if err := g.removeEdgeOf(edgeKey{src, n.id}, src); err != nil {
			return err
		}
	}

	sg = g.nodeIndex[n.id]
	size := page.NodeCost

	if p, ok := g.nodeProps[n.id]; ok {
		size += page.NodePropertyCost + p.Size()
		delete(g.nodeProps, n.id)
	}

	sg.removeNode(n.id)
	delete(g.nodeIndex, n.id)
	g.nodeCount--

	if err := g.incByteCount(sg, -size); err != nil {
		return err
	}

	if err := g.gm.bm.DeleteNode(g.id, n.id); err != nil {
		return err
	}

	if sg.NodeCount() == 0 {
		g.discardSubGraph(sg)
	}

	return nil
}

/*
removeEdgeOf removes an edge while the subgraph of a given endpoint is
pinned.
*/
func (g *Graph) removeEdgeOf(k edgeKey, other uint64) error {
	mark := g.pinMark()
	defer g.unpinTo(mark)

	if _, err := g.resolve(other); err != nil {
		return err
	}

	return g.removeEdge(k)
}

/*
neighborIDs returns the neighbor ids of one direction of a node.
*/
func (g *Graph) neighborIDs(nid uint64, out bool) ([]uint64, error) {
	mark := g.pinMark()
	defer g.unpinTo(mark)

	sg, err := g.resolve(nid)
	if err != nil {
		return nil, err
	}

	if out {
		return sg.OutNeighbors(nid), nil
	}

	return sg.InNeighbors(nid), nil
}

/*
nodeProperty returns the property of a node or nil if the node has no
property.
*/
func (g *Graph) nodeProperty(nid uint64) (*data.Property, error) {
	mark := g.pinMark()
	defer g.unpinTo(mark)

	if _, err := g.resolve(nid); err != nil {
		return nil, err
	}

	return g.nodeProps[nid], nil
}

/*
setNodeProperty sets a property key of a node and updates the size of its
subgraph.
*/
func (g *Graph) setNodeProperty(nid uint64, key string, val interface{}) error {

	if val == nil {
		return util.NewGraphError(util.ErrInvalidData, "Value of property %v must not be nil", key)
	}

	mark := g.pinMark()
	defer g.unpinTo(mark)

	sg, err := g.resolve(nid)
	if err != nil {
		return err
	}

	p, ok := g.nodeProps[nid]
	delta := 0

	if !ok {
		p = data.NewProperty()
		delta = page.NodePropertyCost + p.Size()
	}

	d, err := p.Set(key, val)
	if err != nil {
		return util.NewGraphError(util.ErrInvalidData, err.Error())
	}

	if !ok {
		g.nodeProps[nid] = p
	}

	return g.incByteCount(sg, delta+d)
}
