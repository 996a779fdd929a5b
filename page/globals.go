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
Package page contains the page management of the graph storage. A subgraph
is stored in one or more fixed size pages. Pages of one subgraph form a chain
which starts with a lead page.

Manager

The page manager allocates unique page ids and keeps track of all resident
pages. The page id counter is persisted together with a store id in the
system properties of the connector.

Block codec

The content of a subgraph is encoded into a byte stream of tagged records.
All numbers are big endian:

	1 (int32), node id (uint64)
	(start of a node record)

	2 (int32), count (int64), [source id (uint64), length (int32), property]
	(incoming edges of the node, length -1 means no property)

	3 (int32), count (int64), [destination id (uint64), length (int32), property]
	(outgoing edges of the node, length -1 means no property)

	4 (int32), length (int32), property
	(property of the node)

	0 (int32)
	(end of block)

A stream which is larger than the block size is sliced into block size chunks
which are stored in the pages of the subgraph's chain.
*/
package page

import (
	"devt.de/krotik/common/logutil"
	"devt.de/krotik/common/pools"
)

/*
Record tags of the block codec
*/
const (
	TagEnd           = 0
	TagNode          = 1
	TagIncoming      = 2
	TagOutgoing      = 3
	TagNodeProperty  = 4
	NoPropertyLength = -1
)

/*
Estimated byte costs of the block codec which are used for the size
accounting of subgraphs
*/
const (
	BlockInitCost    = 4  // End tag of a block
	NodeCost         = 12 // Tag and id of a node record
	EdgeListCost     = 12 // Tag and count of an edge list
	EdgeCost         = 12 // Id and property length of an edge
	NodePropertyCost = 8  // Tag and length of a node property
)

/*
DefaultBlockSize is the default maximum size of a page in bytes.
*/
const DefaultBlockSize = 8 * 1024 * 1024

/*
MinBlockSize is the smallest block size which can hold a single node.
*/
const MinBlockSize = BlockInitCost + NodeCost

/*
bufferPool is a pool of byte buffers used for encoding.
*/
var bufferPool = pools.NewByteBufferPool()

/*
Logger is a function which processes log messages
*/
type Logger func(v ...interface{})

/*
LogInfo is called if an info message is logged
*/
var LogInfo = Logger(logutil.GetLogger("pagegraph.page").Info)

/*
LogDebug is called if a debug message is logged
(by default disabled)
*/
var LogDebug = Logger(LogNull)

/*
LogNull is a discarding logger to be used for disabling loggers
*/
var LogNull = func(v ...interface{}) {}
