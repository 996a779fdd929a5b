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
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"devt.de/krotik/pagegraph/graph"
	"devt.de/krotik/pagegraph/graph/util"
	"devt.de/krotik/pagegraph/page"
	"devt.de/krotik/pagegraph/storage"
)

func newTestGraph(t *testing.T, conn storage.Connector, blockSize int, maxSubGraphs int,
	sel graph.SelectPolicy, split graph.SplitPolicy) (*graph.Manager, *graph.Graph) {

	gm, err := graph.NewManager(conn, blockSize, maxSubGraphs, sel, split)
	if err != nil {
		t.Fatal(err)
	}

	g, err := gm.GraphByName("test")
	if err != nil {
		if g, err = gm.CreateGraph("test"); err != nil {
			t.Fatal(err)
		}
	}

	return gm, g
}

func addNodes(t *testing.T, g *graph.Graph, count int) []graph.Node {
	var ret []graph.Node

	for i := 0; i < count; i++ {
		n, err := g.AddNode()
		if err != nil {
			t.Fatal(err)
		}
		ret = append(ret, n)
	}

	return ret
}

func adjacency(t *testing.T, g *graph.Graph) map[uint64][]uint64 {
	ret := make(map[uint64][]uint64)

	it, err := g.Nodes()
	if err != nil {
		t.Fatal(err)
	}

	for it.HasNext() {
		n := it.Next()

		outs, err := n.OutNeighbors()
		if err != nil {
			t.Fatal(err)
		}

		ids := []uint64{}
		for _, o := range outs {
			ids = append(ids, o.ID())
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		ret[n.ID()] = ids
	}

	return ret
}

func TestByName(t *testing.T) {

	if res := fmt.Sprint(SelectNames()); res != "[firstavailable random]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := fmt.Sprint(SplitNames()); res != "[affinity bfs half random]" {
		t.Error("Unexpected result:", res)
		return
	}

	for _, name := range SelectNames() {
		if p, err := SelectByName(name, 1); err != nil || p.Name() != name {
			t.Error("Unexpected result:", p, err)
			return
		}
	}

	for _, name := range SplitNames() {
		if p, err := SplitByName(name, 1); err != nil || p.Name() != name {
			t.Error("Unexpected result:", p, err)
			return
		}
	}

	if _, err := SelectByName("foo", 1); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := SplitByName("foo", 1); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestFirstAvailableSelect(t *testing.T) {

	// A subgraph of 64 bytes can hold 4 nodes without edges

	_, g := newTestGraph(t, storage.NewMemoryConnector("test"), 64, 10,
		&FirstAvailableSelect{}, &HalfSplit{})

	addNodes(t, g, 10)

	var counts []int
	for _, sg := range g.SubGraphs() {
		counts = append(counts, sg.NodeCount())
	}

	if !reflect.DeepEqual(counts, []int{4, 4, 2}) {
		t.Error("Unexpected node distribution:", counts)
		return
	}

	// Free space is used again

	sg := g.SubGraphs()[0]
	n0, _ := g.Node(0)

	if err := g.RemoveNode(n0); err != nil {
		t.Error(err)
		return
	}

	n, _ := g.AddNode()

	if g.SubGraphOf(n.ID()) != sg || n.ID() != 10 {
		t.Error("Unexpected subgraph:", g.SubGraphOf(n.ID()))
		return
	}
}

func TestRandomSelect(t *testing.T) {

	distribution := func(seed int64) []uint64 {
		_, g := newTestGraph(t, storage.NewMemoryConnector("test"), 64, 10,
			NewRandomSelect(seed), &HalfSplit{})

		nodes := addNodes(t, g, 20)

		var ret []uint64
		for _, n := range nodes {
			ret = append(ret, g.SubGraphOf(n.ID()).ID())
		}

		for _, sg := range g.SubGraphs() {
			if sg.Size() > g.BlockSize() && !sg.Partitioned() {
				t.Error("Subgraph too big:", sg)
			}
		}

		return ret
	}

	if d1, d2 := distribution(5), distribution(5); !reflect.DeepEqual(d1, d2) {
		t.Error("Same seed should give the same distribution:", d1, d2)
		return
	}

	// A partitioned subgraph is never chosen

	_, g := newTestGraph(t, storage.NewMemoryConnector("test"), 64, 10,
		NewRandomSelect(1), &HalfSplit{})

	n := addNodes(t, g, 1)[0]
	n.SetProperty("data", make([]byte, 200))

	sg := g.SubGraphOf(n.ID())

	if !sg.Partitioned() {
		t.Error("Subgraph should be partitioned:", sg)
		return
	}

	for _, n := range addNodes(t, g, 3) {
		if g.SubGraphOf(n.ID()) == sg {
			t.Error("Node was added to a partitioned subgraph")
			return
		}
	}

	// The choice is only made among the other subgraphs

	if res := len(g.SubGraphs()); res != 2 {
		t.Error("Unexpected number of subgraphs:", res, g.SubGraphs())
		return
	}
}

func TestHalfSplit(t *testing.T) {
	_, g := newTestGraph(t, storage.NewMemoryConnector("test"), page.DefaultBlockSize, 10,
		&FirstAvailableSelect{}, &HalfSplit{})

	addNodes(t, g, 7)

	sg := g.SubGraphOf(0)

	res, err := (&HalfSplit{}).Split(g, sg)
	if err != nil || len(res) != 2 || res[0] != sg {
		t.Error("Unexpected result:", res, err)
		return
	}

	if n := res[0].Nodes(); !reflect.DeepEqual(n, []uint64{3, 4, 5, 6}) {
		t.Error("Unexpected nodes:", n)
		return
	}

	if n := res[1].Nodes(); !reflect.DeepEqual(n, []uint64{0, 1, 2}) {
		t.Error("Unexpected nodes:", n)
		return
	}

	if res[0].Size()+res[1].Size() != 2*page.BlockInitCost+7*page.NodeCost {
		t.Error("Unexpected sizes:", res[0].Size(), res[1].Size())
		return
	}
}

func TestRandomSplit(t *testing.T) {
	_, g := newTestGraph(t, storage.NewMemoryConnector("test"), page.DefaultBlockSize, 10,
		&FirstAvailableSelect{}, &HalfSplit{})

	addNodes(t, g, 2)

	// Both sides of a split are never empty

	for seed := int64(0); seed < 20; seed++ {
		sg := g.SubGraphOf(0)

		if g.SubGraphOf(1) != sg {
			if err := g.MoveNode(1, sg); err != nil {
				t.Error(err)
				return
			}
		}

		res, err := NewRandomSplit(seed).Split(g, sg)
		if err != nil || len(res) != 2 {
			t.Error("Unexpected result:", res, err)
			return
		}

		if res[0].NodeCount() != 1 || res[1].NodeCount() != 1 {
			t.Error("Unexpected split:", res)
			return
		}
	}
}

func TestBFSSplit(t *testing.T) {
	_, g := newTestGraph(t, storage.NewMemoryConnector("test"), page.DefaultBlockSize, 10,
		&FirstAvailableSelect{}, &HalfSplit{})

	nodes := addNodes(t, g, 8)

	// Two chains: 7 -> 5 -> 3 -> 1 and 6 -> 4 -> 2 -> 0

	for i := 7; i > 1; i-- {
		g.AddEdge(nodes[i], nodes[i-2])
	}

	sg := g.SubGraphOf(0)

	res, err := (&BFSSplit{}).Split(g, sg)
	if err != nil || len(res) != 2 {
		t.Error("Unexpected result:", res, err)
		return
	}

	// Node 0 has no outgoing edges so every node is a new search root

	if n := res[1].Nodes(); !reflect.DeepEqual(n, []uint64{0, 1, 2, 3}) {
		t.Error("Unexpected nodes:", n)
		return
	}

	// Searches follow outgoing edges

	_, g = newTestGraph(t, storage.NewMemoryConnector("test"), page.DefaultBlockSize, 10,
		&FirstAvailableSelect{}, &HalfSplit{})

	nodes = addNodes(t, g, 8)

	for i := 0; i < 6; i++ {
		g.AddEdge(nodes[i], nodes[i+2])
	}

	res, err = (&BFSSplit{}).Split(g, g.SubGraphOf(0))
	if err != nil || len(res) != 2 {
		t.Error("Unexpected result:", res, err)
		return
	}

	if n := res[1].Nodes(); !reflect.DeepEqual(n, []uint64{0, 2, 4, 6}) {
		t.Error("Unexpected nodes:", n)
		return
	}
}

func TestBFSSplitFull(t *testing.T) {

	// Each node with a self loop needs 12 + 2 * (12 + 12) = 60 bytes

	_, g := newTestGraph(t, storage.NewMemoryConnector("test"), 120, 100,
		&FirstAvailableSelect{}, &BFSSplit{})

	nodes := addNodes(t, g, 6)

	for _, n := range nodes {
		if _, err := g.AddEdge(n, n); err != nil {
			t.Error(err)
			return
		}
	}

	for _, sg := range g.SubGraphs() {
		if sg.Size() > g.BlockSize() || sg.Partitioned() {
			t.Error("Unexpected subgraph:", sg, sg.Size())
			return
		}
	}

	// Move 4 nodes into one subgraph and split it

	big, _ := g.NewSubGraph()
	for i := uint64(0); i < 4; i++ {
		if err := g.MoveNode(i, big); err != nil {
			t.Error(err)
			return
		}
	}

	if big.Size() != page.BlockInitCost+4*60 {
		t.Error("Unexpected size:", big.Size())
		return
	}

	res, err := (&BFSSplit{}).Split(g, big)
	if err != nil || len(res) != 3 {
		t.Error("Unexpected result:", res, err)
		return
	}

	if res[0].NodeCount() != 2 || res[1].NodeCount() != 1 || res[2].NodeCount() != 1 {
		t.Error("Unexpected split:", res)
		return
	}
}

func TestAffinitySplit(t *testing.T) {
	aff := NewAffinitySplit()

	_, g := newTestGraph(t, storage.NewMemoryConnector("test"), page.DefaultBlockSize, 10,
		&FirstAvailableSelect{}, aff)

	nodes := addNodes(t, g, 6)

	res, err := aff.Split(g, g.SubGraphOf(0))
	if err != nil || len(res) != 2 {
		t.Error("Unexpected result:", res, err)
		return
	}

	sgA, sgB := res[1], res[0]

	if g.SubGraphOf(0) != sgA || g.SubGraphOf(3) != sgB {
		t.Error("Unexpected subgraphs")
		return
	}

	// Node 0 moves to the subgraph of its only neighbor

	if _, err := g.AddEdge(nodes[0], nodes[3]); err != nil {
		t.Error(err)
		return
	}

	if g.SubGraphOf(0) != sgB || g.SubGraphOf(3) != sgB {
		t.Error("Node 0 should have moved:", g.SubGraphOf(0))
		return
	}

	// Node 1 has two neighbors in its own subgraph and one in the other

	g.AddEdge(nodes[1], nodes[2])
	g.AddEdge(nodes[2], nodes[1])

	if g.SubGraphOf(1) != sgA || g.SubGraphOf(2) != sgA {
		t.Error("Nodes should stay")
		return
	}

	// Node 1 has most of its edges in its own subgraph while node 4 follows
	// its only neighbor

	g.AddEdge(nodes[1], nodes[4])

	if g.SubGraphOf(1) != sgA || g.SubGraphOf(4) != sgA {
		t.Error("Unexpected subgraphs:", g.SubGraphOf(1), g.SubGraphOf(4))
		return
	}

	// Node 0 has one edge into each subgraph and stays

	g.AddEdge(nodes[1], nodes[0])

	if g.SubGraphOf(1) != sgA || g.SubGraphOf(0) != sgB {
		t.Error("Nodes should stay")
		return
	}

	if res := aff.affinity(10, 10); res != 0 {
		t.Error("Unexpected affinity:", res)
		return
	}

	if res := (&AffinitySplit{}).affinity(3, 1); res >= 0 {
		t.Error("Unexpected affinity:", res)
		return
	}
}

func TestPoliciesRoundTrip(t *testing.T) {

	for _, name := range SplitNames() {
		conn := storage.NewMemoryConnector("test")

		split, _ := SplitByName(name, 42)
		gm, g := newTestGraph(t, conn, 400, 3, &FirstAvailableSelect{}, split)

		nodes := addNodes(t, g, 30)

		for i, n := range nodes {
			if err := n.SetProperty("name", fmt.Sprint("node", i)); err != nil {
				t.Error(err)
				return
			}
		}

		for i := 0; i < 45; i++ {
			src, dst := nodes[(i*7)%30], nodes[(i*11+3)%30]

			if _, err := g.AddEdge(src, dst); err != nil {
				t.Error(name, err)
				return
			}

			for _, sg := range g.SubGraphs() {
				if sg.Size() > g.BlockSize() && !sg.Partitioned() {
					t.Error(name, "Subgraph too big:", sg, sg.Size())
					return
				}
			}
		}

		expected := adjacency(t, g)

		if err := gm.Flush(); err != nil {
			t.Error(err)
			return
		}

		_, g2 := newTestGraph(t, conn, 400, 3, &FirstAvailableSelect{}, split)

		if res := adjacency(t, g2); !reflect.DeepEqual(res, expected) || len(res) != 30 {
			t.Error(name, "Unexpected adjacency:", res, expected)
			return
		}

		n, _ := g2.Node(17)

		if res, err := n.Property("name"); err != nil || res != "node17" {
			t.Error(name, "Unexpected property:", res, err)
			return
		}
	}
}
