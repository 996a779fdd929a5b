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

	"devt.de/krotik/pagegraph/graph"
)

/*
PageRankPrecision is the change of all ranks below which the iteration stops
*/
const PageRankPrecision = 0.00001

/*
PageRank calculates the rank of all nodes of a graph. The rank of a node is

	(1 - damping) / N + damping * sum(rank(s) / outdegree(s))

for all sources s of incoming edges except the node itself. The iteration
stops after maxIterations steps or if the ranks do not change anymore.
*/
func PageRank(g *graph.Graph, damping float64, maxIterations int) (map[uint64]float64, error) {

	// Read the structure of the graph once

	var ids []uint64

	ins := make(map[uint64][]uint64)
	outDegree := make(map[uint64]int)

	it, err := g.Nodes()
	if err != nil {
		return nil, err
	}

	for it.HasNext() {
		n := it.Next()

		outs, err := neighborIDs(n)
		if err != nil {
			return nil, err
		}

		ids = append(ids, n.ID())

		for _, dst := range outs {
			if dst != n.ID() {
				ins[dst] = append(ins[dst], n.ID())
				outDegree[n.ID()]++
			}
		}
	}

	if err := it.Error(); err != nil {
		return nil, err
	}

	rank := make(map[uint64]float64, len(ids))

	if len(ids) == 0 {
		return rank, nil
	}

	num := float64(len(ids))

	for _, nid := range ids {
		rank[nid] = 1 / num
	}

	for i := 0; i < maxIterations; i++ {
		next := make(map[uint64]float64, len(ids))
		diff := 0.0

		for _, nid := range ids {
			sum := 0.0

			for _, src := range ins[nid] {
				sum += rank[src] / float64(outDegree[src])
			}

			next[nid] = (1-damping)/num + damping*sum
			diff += math.Abs(next[nid] - rank[nid])
		}

		rank = next

		LogDebug(fmt.Sprintf("PageRank iteration %v change: %v", i+1, diff))

		if diff < PageRankPrecision {
			break
		}
	}

	return rank, nil
}
