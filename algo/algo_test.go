/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package algo

import (
	"fmt"
	"math"
	"testing"

	"devt.de/krotik/pagegraph/graph"
	"devt.de/krotik/pagegraph/policy"
	"devt.de/krotik/pagegraph/storage"
)

/*
newTestManager creates a manager with a small buffer so algorithms have to
page subgraphs in and out.
*/
func newTestManager(t *testing.T) *graph.Manager {
	gm, err := graph.NewManager(storage.NewMemoryConnector("test"), 200, 3,
		&policy.FirstAvailableSelect{}, &policy.HalfSplit{})

	if err != nil {
		t.Fatal(err)
	}

	return gm
}

func buildGraph(t *testing.T, gm *graph.Manager, name string, count int, edges [][2]int) (*graph.Graph, []graph.Node) {
	g, err := gm.CreateGraph(name)
	if err != nil {
		t.Fatal(err)
	}

	var nodes []graph.Node

	for i := 0; i < count; i++ {
		n, err := g.AddNode()
		if err != nil {
			t.Fatal(err)
		}
		nodes = append(nodes, n)
	}

	for _, e := range edges {
		if _, err := g.AddEdge(nodes[e[0]], nodes[e[1]]); err != nil {
			t.Fatal(err)
		}
	}

	return g, nodes
}

var searchEdges = [][2]int{{0, 1}, {0, 2}, {1, 5}, {2, 4}, {2, 5}, {3, 2}, {4, 3},
	{4, 7}, {5, 6}, {5, 7}, {6, 1}, {7, 4}, {8, 7}, {7, 9}}

func TestClusteringCoefficient(t *testing.T) {
	gm := newTestManager(t)

	g1, _ := buildGraph(t, gm, "g1", 4, [][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 0},
		{2, 0}, {2, 3}, {3, 0}, {3, 2}, {1, 2}, {1, 3}, {2, 1}, {3, 1}})

	g2, _ := buildGraph(t, gm, "g2", 4, [][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 0},
		{2, 0}, {2, 3}, {3, 0}, {3, 2}})

	g3, _ := buildGraph(t, gm, "g3", 7, [][2]int{{0, 1}, {1, 2}, {1, 4}, {1, 5},
		{2, 1}, {2, 3}, {3, 2}, {3, 4}, {3, 6}, {4, 3}, {4, 6}, {4, 1}, {4, 5},
		{5, 1}, {5, 4}, {5, 6}, {6, 5}, {6, 4}, {6, 3}})

	if cc, err := ClusteringCoefficient(g1, false); err != nil || cc != 1.0 {
		t.Error("Unexpected result:", cc, err)
		return
	}

	if cc, err := ClusteringCoefficient(g2, false); err != nil || cc != 0.5833333333333333 {
		t.Error("Unexpected result:", cc, err)
		return
	}

	if cc, err := ClusteringCoefficient(g3, false); err != nil || cc != 0.3571428571428571 {
		t.Error("Unexpected result:", cc, err)
		return
	}

	// In a clique every neighbor is connected in both directions

	if cc, err := ClusteringCoefficient(g1, true); err != nil || cc != 1.0 {
		t.Error("Unexpected result:", cc, err)
		return
	}

	// The result does not depend on the buffer

	if err := gm.Flush(); err != nil {
		t.Error(err)
		return
	}

	if cc, err := ClusteringCoefficient(g3, false); err != nil || cc != 0.3571428571428571 {
		t.Error("Unexpected result:", cc, err)
		return
	}

	empty, _ := gm.CreateGraph("empty")

	if cc, err := ClusteringCoefficient(empty, false); err != nil || cc != 0 {
		t.Error("Unexpected result:", cc, err)
		return
	}
}

func TestPageRank(t *testing.T) {
	gm := newTestManager(t)

	cycle, _ := buildGraph(t, gm, "cycle", 3, [][2]int{{0, 1}, {1, 2}, {2, 0}})

	ranks, err := PageRank(cycle, 0.85, 100)
	if err != nil || len(ranks) != 3 {
		t.Error("Unexpected result:", ranks, err)
		return
	}

	for nid, r := range ranks {
		if math.Abs(r-1.0/3) > 1e-9 {
			t.Error("Unexpected rank:", nid, r)
			return
		}
	}

	g, _ := buildGraph(t, gm, "g", 3, [][2]int{{0, 1}, {2, 1}, {1, 0}})

	ranks, err = PageRank(g, 0.85, 1000)
	if err != nil {
		t.Error(err)
		return
	}

	if !(ranks[1] > ranks[0] && ranks[0] > ranks[2]) {
		t.Error("Unexpected ranks:", ranks)
		return
	}

	if math.Abs(ranks[2]-0.05) > 1e-9 || math.Abs(ranks[0]+ranks[1]+ranks[2]-1) > 1e-4 {
		t.Error("Unexpected ranks:", ranks)
		return
	}

	empty, _ := gm.CreateGraph("empty")

	if ranks, err := PageRank(empty, 0.85, 10); err != nil || len(ranks) != 0 {
		t.Error("Unexpected result:", ranks, err)
		return
	}
}

func TestKHopBFS(t *testing.T) {
	gm := newTestManager(t)

	_, nodes := buildGraph(t, gm, "search", 10, searchEdges)

	for i, n := range nodes {
		n.SetProperty("name", fmt.Sprint("node", i))
	}

	gm.Flush()

	if n, ok, err := KHopBFS(nodes[0], 3, MatchID(7)); err != nil || !ok || n.ID() != 7 {
		t.Error("Unexpected result:", n, ok, err)
		return
	}

	if n, ok, err := KHopBFS(nodes[0], 2, MatchID(7)); err != nil || ok {
		t.Error("Unexpected result:", n, ok, err)
		return
	}

	if n, ok, err := KHopBFS(nodes[0], 0, MatchID(0)); err != nil || !ok || n.ID() != 0 {
		t.Error("Unexpected result:", n, ok, err)
		return
	}

	if n, ok, err := KHopBFS(nodes[0], 1, MatchProperty("name", "node2")); err != nil || !ok || n.ID() != 2 {
		t.Error("Unexpected result:", n, ok, err)
		return
	}

	if n, ok, err := KHopBFS(nodes[9], 5, MatchProperty("name", "node0")); err != nil || ok {
		t.Error("Unexpected result:", n, ok, err)
		return
	}

	if _, _, err := KHopBFS(graph.Node{}, 5, MatchID(3)); err == nil {
		t.Error("Invalid root should give an error")
		return
	}
}

func TestKHopRandomWalk(t *testing.T) {
	gm := newTestManager(t)

	_, nodes := buildGraph(t, gm, "search", 10, searchEdges)

	gm.Flush()

	if n, ok, err := KHopRandomWalk(nodes[3], 0, MatchID(3), 1); err != nil || !ok || n.ID() != 3 {
		t.Error("Unexpected result:", n, ok, err)
		return
	}

	// Node 8 has only one way to go

	if n, ok, err := KHopRandomWalk(nodes[8], 2, MatchID(9), 1); err != nil || !ok || n.ID() != 9 {
		t.Error("Unexpected result:", n, ok, err)
		return
	}

	if n, ok, err := KHopRandomWalk(nodes[8], 1, MatchID(9), 1); err != nil || ok {
		t.Error("Unexpected result:", n, ok, err)
		return
	}

	// Node 9 has no outgoing edges

	if n, ok, err := KHopRandomWalk(nodes[9], 5, MatchID(0), 1); err != nil || ok {
		t.Error("Unexpected result:", n, ok, err)
		return
	}

	// The same seed gives the same walk

	for seed := int64(0); seed < 10; seed++ {
		n1, ok1, err1 := KHopRandomWalk(nodes[0], 6, MatchID(3), seed)
		n2, ok2, err2 := KHopRandomWalk(nodes[0], 6, MatchID(3), seed)

		if n1 != n2 || ok1 != ok2 || err1 != nil || err2 != nil {
			t.Error("Unexpected result:", n1, n2)
			return
		}
	}
}
