/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package policy

import (
	"fmt"
	"math/rand"
	"sync"

	"devt.de/krotik/pagegraph/graph"
)

/*
HalfSplit moves the first half of the nodes of a subgraph to a new subgraph.
*/
type HalfSplit struct {
}

/*
Name returns the name of this policy.
*/
func (s *HalfSplit) Name() string {
	return NameHalf
}

/*
Split divides a given subgraph.
*/
func (s *HalfSplit) Split(g *graph.Graph, sg *graph.SubGraph) ([]*graph.SubGraph, error) {
	nsg, err := g.NewSubGraph()
	if err != nil {
		return nil, err
	}

	nodes := sg.Nodes()

	for _, nid := range nodes[:len(nodes)/2] {
		if err := g.MoveNode(nid, nsg); err != nil {
			return nil, err
		}
	}

	return []*graph.SubGraph{sg, nsg}, nil
}

/*
AddEdgeAction does nothing.
*/
func (s *HalfSplit) AddEdgeAction(g *graph.Graph, e graph.Edge) error {
	return nil
}

/*
RandomSplit moves every node of a subgraph to a new subgraph with a chance
of 50%. At least one node is moved and at least one node stays.
*/
type RandomSplit struct {
	rand  *rand.Rand  // Random number generator
	mutex *sync.Mutex // Mutex to protect the generator
}

/*
NewRandomSplit creates a new RandomSplit policy with a given seed.
*/
func NewRandomSplit(seed int64) *RandomSplit {
	return &RandomSplit{rand.New(rand.NewSource(seed)), &sync.Mutex{}}
}

/*
Name returns the name of this policy.
*/
func (s *RandomSplit) Name() string {
	return NameRandom
}

/*
Split divides a given subgraph.
*/
func (s *RandomSplit) Split(g *graph.Graph, sg *graph.SubGraph) ([]*graph.SubGraph, error) {
	var move []uint64

	nodes := sg.Nodes()

	s.mutex.Lock()
	for _, nid := range nodes {
		if s.rand.Intn(2) == 0 {
			move = append(move, nid)
		}
	}
	s.mutex.Unlock()

	if len(move) == 0 {
		move = nodes[:1]
	} else if len(move) == len(nodes) {
		move = move[1:]
	}

	nsg, err := g.NewSubGraph()
	if err != nil {
		return nil, err
	}

	for _, nid := range move {
		if err := g.MoveNode(nid, nsg); err != nil {
			return nil, err
		}
	}

	return []*graph.SubGraph{sg, nsg}, nil
}

/*
AddEdgeAction does nothing.
*/
func (s *RandomSplit) AddEdgeAction(g *graph.Graph, e graph.Edge) error {
	return nil
}

/*
BFSSplit moves half of the nodes of a subgraph to new subgraphs. The nodes
are moved in breadth first order following outgoing edges inside the
subgraph. Another new subgraph is started if the current one is full.
*/
type BFSSplit struct {
}

/*
Name returns the name of this policy.
*/
func (s *BFSSplit) Name() string {
	return NameBFS
}

/*
Split divides a given subgraph.
*/
func (s *BFSSplit) Split(g *graph.Graph, sg *graph.SubGraph) ([]*graph.SubGraph, error) {
	bs := g.BlockSize()

	to, err := g.NewSubGraph()
	if err != nil {
		return nil, err
	}

	ret := []*graph.SubGraph{sg}
	maxMoved := sg.NodeCount() / 2
	moved := 0

	for moved < maxMoved {

		// Start a new search from any node which is left

		root := sg.Nodes()[0]
		queue := []uint64{root}
		visited := map[uint64]bool{root: true}

		for len(queue) > 0 && moved < maxMoved {
			nid := queue[0]
			queue = queue[1:]

			for _, dst := range sg.OutNeighbors(nid) {
				if !visited[dst] && sg.HasNode(dst) {
					visited[dst] = true
					queue = append(queue, dst)
				}
			}

			if to.NodeCount() > 0 && to.Size()+g.RecordSize(nid) > bs {
				LogDebug(fmt.Sprintf("Subgraph %v is full - starting a new one", to.ID()))

				ret = append(ret, to)

				if to, err = g.NewSubGraph(); err != nil {
					return nil, err
				}
			}

			if err := g.MoveNode(nid, to); err != nil {
				return nil, err
			}

			moved++
		}
	}

	return append(ret, to), nil
}

/*
AddEdgeAction does nothing.
*/
func (s *BFSSplit) AddEdgeAction(g *graph.Graph, e graph.Edge) error {
	return nil
}
