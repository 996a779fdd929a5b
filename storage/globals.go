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
Package storage contains the key-value connectors which persist the paged
graph data. A connector stores byte strings in 3 tables:

Graph table

	4 byte graph id -> graph metadata
	(graph id 0 is reserved for the system properties of the store)

Node table

	4 byte graph id + 8 byte node id -> packed list of page ids
	(the pages which hold the subgraph of a node)

Block table

	8 byte page id -> raw page bytes

All keys are big endian so a scan over a table returns the entries of one
graph in ascending node id order. There are 3 main implementations:

MemoryConnector

A connector which keeps all its data in ordered in-memory trees and provides
several error simulation facilities.

BoltConnector

A connector which stores its tables as buckets of a single bolt database file.

SQLConnector

A connector which stores its tables in an embedded SQLite database.
*/
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"

	"devt.de/krotik/common/logutil"
)

/*
Table is the name of a connector table.
*/
type Table string

/*
Known connector tables
*/
const (
	TableGraph Table = "graph"
	TableNode  Table = "node"
	TableBlock Table = "block"
)

/*
Tables is the list of all tables a connector must provide.
*/
var Tables = []Table{TableGraph, TableNode, TableBlock}

/*
SysPropsGraphID is the graph table key which holds the system properties.
*/
const SysPropsGraphID = 0

/*
Common connector related errors.
*/
var (
	ErrOpen         = errors.New("Could not open connector")
	ErrClose        = errors.New("Could not close connector")
	ErrRead         = errors.New("Could not read from connector")
	ErrWrite        = errors.New("Could not write to connector")
	ErrUnknownTable = errors.New("Unknown table")
	ErrUnknownType  = errors.New("Unknown connector type")
)

/*
ConnectorError is a connector related error.
*/
type ConnectorError struct {
	Type      error
	Detail    string
	Connector string
}

/*
NewConnectorError returns a new connector specific error.
*/
func NewConnectorError(ceType error, ceDetail string, ceConnector string) *ConnectorError {
	return &ConnectorError{ceType, ceDetail, ceConnector}
}

/*
Error returns a string representation of the error.
*/
func (e *ConnectorError) Error() string {
	return fmt.Sprintf("%s (%s - %s)", e.Type.Error(), e.Connector, e.Detail)
}

/*
Is reports whether the given target is the type of this error.
*/
func (e *ConnectorError) Is(target error) bool {
	return e.Type == target
}

/*
Logger is a function which processes log messages
*/
type Logger func(v ...interface{})

/*
LogInfo is called if an info message is logged
*/
var LogInfo = Logger(logutil.GetLogger("pagegraph.storage").Info)

/*
LogDebug is called if a debug message is logged
(by default disabled)
*/
var LogDebug = Logger(LogNull)

/*
LogNull is a discarding logger to be used for disabling loggers
*/
var LogNull = func(v ...interface{}) {}

/*
LogStd logs to the standard logger (useful for debugging).
*/
var LogStd = Logger(log.Print)

// Key layout
// ==========

/*
GraphKey returns the graph table key for a given graph id.
*/
func GraphKey(gid uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, gid)
	return key
}

/*
NodeKey returns the node table key for a given graph and node id.
*/
func NodeKey(gid uint32, nid uint64) []byte {
	key := make([]byte, 12)
	binary.BigEndian.PutUint32(key, gid)
	binary.BigEndian.PutUint64(key[4:], nid)
	return key
}

/*
ParseNodeKey splits a node table key into graph and node id.
*/
func ParseNodeKey(key []byte) (uint32, uint64, bool) {
	if len(key) != 12 {
		return 0, 0, false
	}
	return binary.BigEndian.Uint32(key), binary.BigEndian.Uint64(key[4:]), true
}

/*
ParseGraphKey returns the graph id of a graph table key.
*/
func ParseGraphKey(key []byte) (uint32, bool) {
	if len(key) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(key), true
}

/*
BlockKey returns the block table key for a given page id.
*/
func BlockKey(pid uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, pid)
	return key
}

/*
GraphPrefixRange returns the scan range which covers all node table entries
of a given graph.
*/
func GraphPrefixRange(gid uint32) ([]byte, []byte) {
	start := NodeKey(gid, 0)

	if gid == ^uint32(0) {
		return start, nil
	}

	return start, NodeKey(gid+1, 0)
}
