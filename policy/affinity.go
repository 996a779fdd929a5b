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
	"math"

	"devt.de/krotik/pagegraph/graph"
)

/*
Default parameters of the affinity formula
*/
const (
	DefaultAffinityFactor    = 1000.0
	DefaultAffinityThreshold = 0.0
)

/*
AffinitySplit moves the endpoints of every new edge to the resident subgraph
which holds most of their neighbors. Overflowing subgraphs are divided like
HalfSplit does.

The affinity of a node to a subgraph with c of its t edges is:

	1 - exp((t - c) / Factor)

A node moves if the best affinity to another subgraph exceeds the affinity
to its own subgraph by more than Threshold. Neighbors which are not resident
count towards the own subgraph.
*/
type AffinitySplit struct {
	Factor    float64 // Divisor of the affinity formula (0 means default)
	Threshold float64 // Minimum affinity gain for a move
}

/*
NewAffinitySplit creates a new AffinitySplit policy with default parameters.
*/
func NewAffinitySplit() *AffinitySplit {
	return &AffinitySplit{DefaultAffinityFactor, DefaultAffinityThreshold}
}

/*
Name returns the name of this policy.
*/
func (s *AffinitySplit) Name() string {
	return NameAffinity
}

/*
Split divides a given subgraph.
*/
func (s *AffinitySplit) Split(g *graph.Graph, sg *graph.SubGraph) ([]*graph.SubGraph, error) {
	return (&HalfSplit{}).Split(g, sg)
}

/*
AddEdgeAction moves the source and then the destination of a new edge if
another subgraph has a higher affinity.
*/
func (s *AffinitySplit) AddEdgeAction(g *graph.Graph, e graph.Edge) error {

	for _, nid := range []uint64{e.Source().ID(), e.Destination().ID()} {
		if to := s.target(g, nid); to != nil {

			LogDebug(fmt.Sprintf("Moving node %v from subgraph %v to %v",
				nid, g.SubGraphOf(nid).ID(), to.ID()))

			if err := g.MoveNode(nid, to); err != nil {
				return err
			}
		}
	}

	return nil
}

/*
target returns the subgraph a resident node should move to or nil if it
should stay.
*/
func (s *AffinitySplit) target(g *graph.Graph, nid uint64) *graph.SubGraph {
	sg := g.SubGraphOf(nid)
	if sg == nil {
		return nil
	}

	var order []*graph.SubGraph

	cross := make(map[*graph.SubGraph]int)
	inner := 0
	total := 0

	count := func(others []uint64) {
		total += len(others)

		for _, other := range others {
			osg := g.SubGraphOf(other)

			if osg == nil || osg == sg {
				inner++
				continue
			}

			if _, ok := cross[osg]; !ok {
				order = append(order, osg)
			}
			cross[osg]++
		}
	}

	count(sg.OutNeighbors(nid))
	count(sg.InNeighbors(nid))

	selfAff := s.affinity(total, inner)

	var maxSg *graph.SubGraph
	maxAff := math.Inf(-1)

	for _, osg := range order {
		aff := s.affinity(total, cross[osg])

		if aff != 1.0 && aff > maxAff {
			maxAff = aff
			maxSg = osg
		}
	}

	if maxSg != nil && maxAff-selfAff > s.Threshold {
		return maxSg
	}

	return nil
}

/*
affinity calculates the affinity of a node with a given number of edges to a
subgraph with a given number of those edges.
*/
func (s *AffinitySplit) affinity(total int, sgEdges int) float64 {
	factor := s.Factor
	if factor == 0 {
		factor = DefaultAffinityFactor
	}

	return 1 - math.Exp(float64(total-sgEdges)/factor)
}
