/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package page

import (
	"bytes"
	"encoding/binary"

	"devt.de/krotik/common/bitutil"
	"devt.de/krotik/pagegraph/graph/util"
)

/*
EdgeRecord is an encoded edge of a node. Other is the id of the node on the
other side of the edge. A nil Prop means the edge has no stored property.
*/
type EdgeRecord struct {
	Other uint64
	Prop  []byte
}

/*
NodeRecord is an encoded node with its edges and its property. A nil Prop
means the node has no property.
*/
type NodeRecord struct {
	ID   uint64
	In   []EdgeRecord
	Out  []EdgeRecord
	Prop []byte
}

/*
Size returns the number of bytes this record occupies in an encoded block.
*/
func (nr *NodeRecord) Size() int {
	size := NodeCost

	edgeListSize := func(l []EdgeRecord) int {
		if len(l) == 0 {
			return 0
		}
		s := EdgeListCost
		for _, e := range l {
			s += EdgeCost + len(e.Prop)
		}
		return s
	}

	size += edgeListSize(nr.In) + edgeListSize(nr.Out)

	if nr.Prop != nil {
		size += NodePropertyCost + len(nr.Prop)
	}

	return size
}

/*
Encode encodes a list of node records into a block stream.
*/
func Encode(records []NodeRecord) []byte {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	var b4 [4]byte
	var b8 [8]byte

	writeInt32 := func(v int32) {
		binary.BigEndian.PutUint32(b4[:], uint32(v))
		buf.Write(b4[:])
	}
	writeUint64 := func(v uint64) {
		binary.BigEndian.PutUint64(b8[:], v)
		buf.Write(b8[:])
	}
	writeProp := func(prop []byte) {
		if prop == nil {
			writeInt32(NoPropertyLength)
			return
		}
		writeInt32(int32(len(prop)))
		buf.Write(prop)
	}
	writeEdges := func(tag int32, edges []EdgeRecord) {
		if len(edges) == 0 {
			return
		}
		writeInt32(tag)
		writeUint64(uint64(len(edges)))
		for _, e := range edges {
			writeUint64(e.Other)
			writeProp(e.Prop)
		}
	}

	for _, r := range records {
		writeInt32(TagNode)
		writeUint64(r.ID)
		writeEdges(TagIncoming, r.In)
		writeEdges(TagOutgoing, r.Out)

		if r.Prop != nil {
			writeInt32(TagNodeProperty)
			writeProp(r.Prop)
		}
	}

	writeInt32(TagEnd)

	ret := make([]byte, buf.Len())
	copy(ret, buf.Bytes())

	return ret
}

/*
Decode decodes a block stream into a list of node records. A malformed or
truncated stream results in an ErrCorruption error.
*/
func Decode(data []byte) ([]NodeRecord, error) {
	var records []NodeRecord
	var current *NodeRecord

	pos := 0

	corrupt := func(msg string, args ...interface{}) error {
		return util.NewGraphError(util.ErrCorruption, "Block offset %v: "+msg,
			append([]interface{}{pos}, args...)...)
	}

	readInt32 := func() (int32, bool) {
		if pos+4 > len(data) {
			return 0, false
		}
		v := int32(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		return v, true
	}
	readUint64 := func() (uint64, bool) {
		if pos+8 > len(data) {
			return 0, false
		}
		v := binary.BigEndian.Uint64(data[pos:])
		pos += 8
		return v, true
	}
	readProp := func() ([]byte, error) {
		l, ok := readInt32()
		if !ok {
			return nil, corrupt("Truncated property length")
		}
		if l == NoPropertyLength {
			return nil, nil
		}
		if l < 0 || pos+int(l) > len(data) {
			return nil, corrupt("Invalid property length %v", l)
		}
		prop := make([]byte, l)
		copy(prop, data[pos:pos+int(l)])
		pos += int(l)
		return prop, nil
	}
	readEdges := func() ([]EdgeRecord, error) {
		count, ok := readUint64()
		if !ok {
			return nil, corrupt("Truncated edge count")
		}

		// Every edge needs at least 12 bytes

		if count > uint64(len(data)-pos)/EdgeCost {
			return nil, corrupt("Invalid edge count %v", count)
		}

		edges := make([]EdgeRecord, 0, count)
		for i := uint64(0); i < count; i++ {
			other, ok := readUint64()
			if !ok {
				return nil, corrupt("Truncated edge")
			}
			prop, err := readProp()
			if err != nil {
				return nil, err
			}
			edges = append(edges, EdgeRecord{other, prop})
		}
		return edges, nil
	}

	for {
		tag, ok := readInt32()
		if !ok {
			return nil, corrupt("Missing end of block")
		}

		if tag <= TagEnd {
			break
		}

		if tag != TagNode && current == nil {
			return nil, corrupt("Record with tag %v before first node", tag)
		}

		var err error

		switch tag {

		case TagNode:
			id, ok := readUint64()
			if !ok {
				return nil, corrupt("Truncated node id")
			}
			records = append(records, NodeRecord{ID: id})
			current = &records[len(records)-1]

		case TagIncoming:
			current.In, err = readEdges()

		case TagOutgoing:
			current.Out, err = readEdges()

		case TagNodeProperty:
			current.Prop, err = readProp()

		default:
			err = corrupt("Unknown tag %v", tag)
		}

		if err != nil {
			return nil, err
		}
	}

	return records, nil
}

/*
EncodePageList encodes a list of page ids for the node table. The first byte
holds the partitioned flag of the subgraph.
*/
func EncodePageList(pids []uint64, partitioned bool) []byte {
	var highest uint64

	for _, pid := range pids {
		if pid > highest {
			highest = pid
		}
	}

	flag := byte(0)
	if partitioned {
		flag = 1
	}

	return append([]byte{flag}, bitutil.PackList(pids, highest)...)
}

/*
DecodePageList decodes a list of page ids and the partitioned flag from the
node table.
*/
func DecodePageList(val []byte) ([]uint64, bool) {
	if len(val) == 0 {
		return nil, false
	}
	return bitutil.UnpackList(string(val[1:])), val[0] == 1
}
