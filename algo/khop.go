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
	"math/rand"

	"devt.de/krotik/pagegraph/graph"
)

/*
KHopBFS searches breadth first along outgoing edges for a node which is at
most maxHops hops away from a given root node. Returns the found node and if
a node was found.
*/
func KHopBFS(root graph.Node, maxHops int, match Matcher) (graph.Node, bool, error) {

	type entry struct {
		n    graph.Node
		hops int
	}

	queue := []entry{{root, 0}}
	visited := map[uint64]bool{root.ID(): true}

	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		ok, err := match(e.n)
		if err != nil {
			return graph.Node{}, false, err
		} else if ok {
			return e.n, true, nil
		}

		if e.hops == maxHops {
			continue
		}

		outs, err := e.n.OutNeighbors()
		if err != nil {
			return graph.Node{}, false, err
		}

		for _, u := range outs {
			if !visited[u.ID()] {
				visited[u.ID()] = true
				queue = append(queue, entry{u, e.hops + 1})
			}
		}
	}

	LogDebug(fmt.Sprintf("BFS from %v found nothing within %v hops", root, maxHops))

	return graph.Node{}, false, nil
}

/*
KHopRandomWalk walks randomly along outgoing edges for at most maxHops hops
from a given root node. All outgoing neighbors of each visited node are
checked before the walk continues. Returns the found node and if a node was
found. The walk ends early at a node without outgoing edges.
*/
func KHopRandomWalk(root graph.Node, maxHops int, match Matcher, seed int64) (graph.Node, bool, error) {
	r := rand.New(rand.NewSource(seed))

	ok, err := match(root)
	if err != nil || ok {
		return root, ok, err
	}

	current := root

	for hop := 1; hop <= maxHops; hop++ {

		outs, err := current.OutNeighbors()
		if err != nil {
			return graph.Node{}, false, err
		}

		for _, u := range outs {
			if ok, err := match(u); err != nil {
				return graph.Node{}, false, err
			} else if ok {
				return u, true, nil
			}
		}

		if len(outs) == 0 {
			LogDebug(fmt.Sprintf("Random walk stopped at %v after %v hops", current, hop-1))
			break
		}

		current = outs[r.Intn(len(outs))]
	}

	return graph.Node{}, false, nil
}
