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
Package buffer contains the buffer manager which keeps a bounded number of
subgraphs resident in memory.

The buffer tracks the lead pages of all resident subgraphs in a LRU list.
Every read or write access to a subgraph must touch its lead page. If a new
subgraph is admitted while the buffer is full the least recently used
subgraph is evicted:

	dirty subgraph - the subgraph is encoded by its owner, the resulting
	                 blocks are written to the connector and the node table
	                 entries of all its nodes point to the written pages

	clean subgraph - the subgraph is dropped since the connector already
	                 holds its current state

In both cases the owner detaches the subgraph and all its pages are released.

The buffer keeps counters of read and written bytes and the time spent on
reading, writing and invalidating pages. The counters can also be exported as
prometheus metrics with RegisterMetrics().
*/
package buffer

import (
	"devt.de/krotik/common/logutil"
	"devt.de/krotik/pagegraph/page"
)

/*
DefaultMaxSubGraphs is the default number of resident subgraphs.
*/
const DefaultMaxSubGraphs = 100

/*
Owner is the owner of the subgraphs of a graph. A graph registers itself as
owner with the buffer.
*/
type Owner interface {

	/*
		SerializeSubGraph encodes the subgraph of a given lead page and returns
		the encoded data together with the ids of all encoded nodes.
	*/
	SerializeSubGraph(lead *page.Page) ([]byte, []uint64, error)

	/*
		DropSubGraph detaches the subgraph of a given lead page. All nodes of
		the subgraph are not resident afterwards.
	*/
	DropSubGraph(lead *page.Page)
}

/*
Logger is a function which processes log messages
*/
type Logger func(v ...interface{})

/*
LogInfo is called if an info message is logged
*/
var LogInfo = Logger(logutil.GetLogger("pagegraph.buffer").Info)

/*
LogDebug is called if a debug message is logged
(by default disabled)
*/
var LogDebug = Logger(LogNull)

/*
LogNull is a discarding logger to be used for disabling loggers
*/
var LogNull = func(v ...interface{}) {}
