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
Package graph contains the main API to the paged graph store.

Manager API

The main API is provided by a Manager object which can be created with the
NewManager() constructor function. The manager keeps a directory of named
graphs. All graphs of a manager share one page manager and one buffer.

Graphs and subgraphs

A graph is divided into subgraphs. Each subgraph is a group of nodes which is
stored together in one page chain. The id of a subgraph is the id of its lead
page. Only a bounded number of subgraphs is resident in memory at any time.
Nodes of subgraphs which are not resident are represented by placeholder
handles which are resolved on first use.

Each subgraph keeps an estimate of its encoded size. If the estimate grows
above the block size the subgraph is split according to the split policy of
the graph. A subgraph which cannot be split further (a single node) is marked
as partitioned and stored in a chain of several pages.

Policies

A SelectPolicy decides which subgraph receives a new node. A SplitPolicy
decides how an overflowing subgraph is divided and may react to new edges.
The policy package contains the available implementations.

Graph storage

A graph manager stores its data with a storage.Connector:

	graph table: graph id -> {"name", "nodeIdCount", "nodeCount"}
	node table:  graph id + node id -> packed list of page ids
	block table: page id -> encoded page content

The graph table entry with id 0 holds the system properties of the page
manager.

Concurrency

A graph is not safe for concurrent use. The directory of the manager and the
buffer are protected by locks.
*/
package graph

import (
	"devt.de/krotik/common/logutil"
)

/*
Logger is a function which processes log messages
*/
type Logger func(v ...interface{})

/*
LogInfo is called if an info message is logged
*/
var LogInfo = Logger(logutil.GetLogger("pagegraph.graph").Info)

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
SelectPolicy decides which subgraph receives a new node.
*/
type SelectPolicy interface {

	/*
		Name returns the name of this policy.
	*/
	Name() string

	/*
		Select returns a resident subgraph of a given graph which should
		receive a new node. The policy may create a new subgraph with
		Graph.NewSubGraph().
	*/
	Select(g *Graph) (*SubGraph, error)
}

/*
SplitPolicy decides how an overflowing subgraph is divided.
*/
type SplitPolicy interface {

	/*
		Name returns the name of this policy.
	*/
	Name() string

	/*
		Split divides a given subgraph by moving some of its nodes to new
		subgraphs. Returns all resulting subgraphs including the given one.
	*/
	Split(g *Graph, sg *SubGraph) ([]*SubGraph, error)

	/*
		AddEdgeAction is called after an edge was added. Both endpoints are
		resident when this is called.
	*/
	AddEdgeAction(g *Graph, e Edge) error
}

/*
graphMeta is the graph table entry of a graph.
*/
type graphMeta struct {
	Name        string `json:"name"`
	NodeIDCount uint64 `json:"nodeIdCount"`
	NodeCount   uint64 `json:"nodeCount"`
}

/*
edgeKey identifies an edge by its endpoints.
*/
type edgeKey struct {
	src uint64
	dst uint64
}
