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

	"devt.de/krotik/pagegraph/graph"
)

/*
ClusteringCoefficient calculates the average local clustering coefficient of
all nodes of a graph. The coefficient of a node with k neighbors is the
number of edges between its neighbors divided by k(k-1).

In undirected mode the neighbors of a node are its outgoing neighbors. Only
edges from an earlier to a later neighbor in edge order are counted and the
result is doubled. In directed mode the neighbors are all outgoing and
incoming neighbors and edges are counted in both directions.
*/
func ClusteringCoefficient(g *graph.Graph, directed bool) (float64, error) {
	var sum float64
	var count int

	it, err := g.Nodes()
	if err != nil {
		return 0, err
	}

	for it.HasNext() {
		n := it.Next()

		cc, err := nodeClusteringCoefficient(g, n, directed)
		if err != nil {
			return 0, err
		}

		sum += cc
		count++
	}

	if err := it.Error(); err != nil {
		return 0, err
	}

	if count == 0 {
		return 0, nil
	}

	LogDebug(fmt.Sprintf("Clustering coefficient sum of %v nodes: %v", count, sum))

	return sum / float64(count), nil
}

/*
nodeClusteringCoefficient calculates the local clustering coefficient of a
node.
*/
func nodeClusteringCoefficient(g *graph.Graph, n graph.Node, directed bool) (float64, error) {

	nhood, err := neighborIDs(n)
	if err != nil {
		return 0, err
	}

	if directed {
		ins, err := n.InNeighbors()
		if err != nil {
			return 0, err
		}

		seen := make(map[uint64]bool)
		for _, id := range nhood {
			seen[id] = true
		}

		for _, in := range ins {
			if !seen[in.ID()] {
				seen[in.ID()] = true
				nhood = append(nhood, in.ID())
			}
		}
	}

	if len(nhood) < 2 {
		return 0, nil
	}

	size := float64(len(nhood) * (len(nhood) - 1))

	// Outgoing neighbors of each neighbor

	outs := make(map[uint64]map[uint64]int)

	connections := func(from uint64, to uint64) (int, error) {
		m, ok := outs[from]

		if !ok {
			fn, err := g.Node(from)
			if err != nil {
				return 0, err
			}

			ids, err := neighborIDs(fn)
			if err != nil {
				return 0, err
			}

			m = make(map[uint64]int)
			for _, id := range ids {
				m[id]++
			}
			outs[from] = m
		}

		return m[to], nil
	}

	numEdges := 0

	for i, n1 := range nhood {
		for _, nn := range nhood[i+1:] {

			c, err := connections(n1, nn)
			if err != nil {
				return 0, err
			}
			numEdges += c

			if directed {
				if c, err = connections(nn, n1); err != nil {
					return 0, err
				}
				numEdges += c
			}
		}
	}

	if !directed {
		numEdges *= 2
	}

	return float64(numEdges) / size, nil
}
