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
Package algo contains graph algorithms which run on top of the graph API.

The algorithms only use node handles and their neighbors. Subgraphs are
paged in and out by the buffer while an algorithm is running so graphs which
do not fit into memory can be processed.

ClusteringCoefficient

Average local clustering coefficient of all nodes of a graph.

PageRank

Iterative PageRank of all nodes of a graph.

KHopBFS / KHopRandomWalk

Search for a node within a given number of hops from a start node.
*/
package algo

import (
	"reflect"

	"devt.de/krotik/common/logutil"
	"devt.de/krotik/pagegraph/graph"
)

/*
Logger is a function which processes log messages
*/
type Logger func(v ...interface{})

/*
LogInfo is called if an info message is logged
*/
var LogInfo = Logger(logutil.GetLogger("pagegraph.algo").Info)

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
Matcher decides if a node is the target of a search.
*/
type Matcher func(n graph.Node) (bool, error)

/*
MatchID returns a matcher which matches a node by its id.
*/
func MatchID(nid uint64) Matcher {
	return func(n graph.Node) (bool, error) {
		return n.ID() == nid, nil
	}
}

/*
MatchProperty returns a matcher which matches nodes which have a given
property value.
*/
func MatchProperty(key string, val interface{}) Matcher {
	return func(n graph.Node) (bool, error) {
		v, err := n.Property(key)
		if err != nil || v == nil {
			return false, err
		}
		return reflect.DeepEqual(v, val), nil
	}
}

/*
neighborIDs returns the ids of all outgoing neighbors of a node.
*/
func neighborIDs(n graph.Node) ([]uint64, error) {
	outs, err := n.OutNeighbors()
	if err != nil {
		return nil, err
	}

	ret := make([]uint64, len(outs))
	for i, o := range outs {
		ret[i] = o.ID()
	}

	return ret, nil
}
