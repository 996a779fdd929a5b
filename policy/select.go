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
	"devt.de/krotik/pagegraph/page"
)

/*
FirstAvailableSelect selects the first resident subgraph which is not
partitioned and has room for another node.
*/
type FirstAvailableSelect struct {
}

/*
Name returns the name of this policy.
*/
func (s *FirstAvailableSelect) Name() string {
	return NameFirstAvailable
}

/*
Select returns a subgraph for a new node.
*/
func (s *FirstAvailableSelect) Select(g *graph.Graph) (*graph.SubGraph, error) {
	bs := g.BlockSize()

	for _, sg := range g.SubGraphs() {
		if !sg.Partitioned() && bs-sg.Size() > page.NodeCost {
			return sg, nil
		}
	}

	LogDebug("No subgraph with free space in ", g.Name())

	return g.NewSubGraph()
}

/*
RandomSelect selects a random resident subgraph which is not partitioned. A
new subgraph is created if all resident subgraphs are partitioned.
*/
type RandomSelect struct {
	rand  *rand.Rand  // Random number generator
	mutex *sync.Mutex // Mutex to protect the generator
}

/*
NewRandomSelect creates a new RandomSelect policy with a given seed.
*/
func NewRandomSelect(seed int64) *RandomSelect {
	return &RandomSelect{rand.New(rand.NewSource(seed)), &sync.Mutex{}}
}

/*
Name returns the name of this policy.
*/
func (s *RandomSelect) Name() string {
	return NameRandom
}

/*
Select returns a subgraph for a new node.
*/
func (s *RandomSelect) Select(g *graph.Graph) (*graph.SubGraph, error) {
	var sgs []*graph.SubGraph

	for _, sg := range g.SubGraphs() {
		if !sg.Partitioned() {
			sgs = append(sgs, sg)
		}
	}

	if len(sgs) == 0 {
		LogDebug(fmt.Sprintf("No unpartitioned subgraph in graph %v", g.Name()))
		return g.NewSubGraph()
	}

	s.mutex.Lock()
	sg := sgs[s.rand.Intn(len(sgs))]
	s.mutex.Unlock()

	return sg, nil
}
