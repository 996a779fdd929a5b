/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package policy contains the partition policies of the graph store.

Select policies decide which subgraph receives a new node:

	firstavailable - first resident subgraph which has room for a node
	random         - random resident subgraph

Split policies decide how an overflowing subgraph is divided:

	half     - the first half of the nodes is moved to a new subgraph
	random   - every node is moved to a new subgraph with a chance of 50%
	bfs      - half of the nodes is moved in breadth first order so
	           neighbors stay together
	affinity - like half but nodes are also moved to the subgraph of
	           their neighbors whenever an edge is added

Policies can be looked up by name with SelectByName() and SplitByName().
*/
package policy

import (
	"sort"

	"devt.de/krotik/common/logutil"
	"devt.de/krotik/pagegraph/graph"
	"devt.de/krotik/pagegraph/graph/util"
)

/*
Logger is a function which processes log messages
*/
type Logger func(v ...interface{})

/*
LogInfo is called if an info message is logged
*/
var LogInfo = Logger(logutil.GetLogger("pagegraph.policy").Info)

/*
LogDebug is called if a debug message is logged (by default disabled)
*/
var LogDebug = Logger(LogNull)

/*
LogNull is a discarding logger to be used for disabling loggers
*/
var LogNull = func(v ...interface{}) {
}

/*
Known policy names
*/
const (
	NameFirstAvailable = "firstavailable"
	NameRandom         = "random"
	NameHalf           = "half"
	NameBFS            = "bfs"
	NameAffinity       = "affinity"
)

/*
selectPolicies maps names to constructors of select policies
*/
var selectPolicies = map[string]func(seed int64) graph.SelectPolicy{
	NameFirstAvailable: func(seed int64) graph.SelectPolicy { return &FirstAvailableSelect{} },
	NameRandom:         func(seed int64) graph.SelectPolicy { return NewRandomSelect(seed) },
}

/*
splitPolicies maps names to constructors of split policies
*/
var splitPolicies = map[string]func(seed int64) graph.SplitPolicy{
	NameHalf:     func(seed int64) graph.SplitPolicy { return &HalfSplit{} },
	NameRandom:   func(seed int64) graph.SplitPolicy { return NewRandomSplit(seed) },
	NameBFS:      func(seed int64) graph.SplitPolicy { return &BFSSplit{} },
	NameAffinity: func(seed int64) graph.SplitPolicy { return NewAffinitySplit() },
}

/*
SelectByName returns a new select policy by its name. The seed is used by
random policies.
*/
func SelectByName(name string, seed int64) (graph.SelectPolicy, error) {
	c, ok := selectPolicies[name]
	if !ok {
		return nil, util.NewGraphError(util.ErrInvalidData,
			"Unknown select policy %v - known policies: %v", name, SelectNames())
	}
	return c(seed), nil
}

/*
SplitByName returns a new split policy by its name. The seed is used by
random policies.
*/
func SplitByName(name string, seed int64) (graph.SplitPolicy, error) {
	c, ok := splitPolicies[name]
	if !ok {
		return nil, util.NewGraphError(util.ErrInvalidData,
			"Unknown split policy %v - known policies: %v", name, SplitNames())
	}
	return c(seed), nil
}

/*
SelectNames returns the names of all select policies.
*/
func SelectNames() []string {
	var ret []string
	for k := range selectPolicies {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

/*
SplitNames returns the names of all split policies.
*/
func SplitNames() []string {
	var ret []string
	for k := range splitPolicies {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
