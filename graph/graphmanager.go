/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"fmt"
	"sort"
	"sync"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/pagegraph/buffer"
	"devt.de/krotik/pagegraph/graph/data"
	"devt.de/krotik/pagegraph/graph/util"
	"devt.de/krotik/pagegraph/page"
	"devt.de/krotik/pagegraph/storage"
)

/*
Manager data structure
*/
type Manager struct {
	conn   storage.Connector // Connector which stores all data
	pm     *page.Manager     // Page manager
	bm     *buffer.Manager   // Buffer manager
	sel    SelectPolicy      // Select policy for new graphs
	split  SplitPolicy       // Split policy for new graphs
	graphs map[uint32]*Graph // Graphs by id
	names  map[string]*Graph // Graphs by name
	mutex  *sync.RWMutex     // Mutex to protect the graph directory
}

/*
NewManager returns a new Manager instance which stores its data with a given
connector. All known graphs are loaded from the connector. Graphs use the
given policies unless they are changed with Graph.SetPolicies().
*/
func NewManager(conn storage.Connector, blockSize int, maxSubGraphs int,
	sel SelectPolicy, split SplitPolicy) (*Manager, error) {

	if sel == nil || split == nil {
		return nil, util.NewGraphError(util.ErrInvalidData, "Select and split policy are required")
	}

	pm, err := page.NewManager(conn, blockSize)
	if err != nil {
		return nil, err
	}

	bm, err := buffer.NewManager(conn, pm, maxSubGraphs)
	if err != nil {
		return nil, err
	}

	gm := &Manager{conn, pm, bm, sel, split, make(map[uint32]*Graph),
		make(map[string]*Graph), &sync.RWMutex{}}

	// Load the graph directory

	var loadErr error

	err = conn.Scan(storage.TableGraph, nil, nil, func(key []byte, value []byte) bool {
		gid, ok := storage.ParseGraphKey(key)

		if !ok {
			loadErr = util.NewGraphError(util.ErrCorruption, "Invalid graph key %x", key)
			return false
		} else if gid == storage.SysPropsGraphID {
			return true
		}

		meta, err := decodeGraphMeta(gid, value)
		if err != nil {
			loadErr = err
			return false
		}

		gm.register(newGraph(gm, gid, meta, sel, split))
		pm.EnsureGraphID(gid)

		return true
	})

	if err != nil {
		return nil, util.NewGraphError(util.ErrOpening, err.Error())
	} else if loadErr != nil {
		return nil, loadErr
	}

	LogInfo(fmt.Sprintf("Opened store %v with %v graphs (block size: %v, buffer: %v subgraphs)",
		pm.StoreID(), len(gm.graphs), pm.BlockSize(), bm.MaxSubGraphs()))

	return gm, nil
}

/*
StoreID returns the unique id of the store.
*/
func (gm *Manager) StoreID() string {
	return gm.pm.StoreID()
}

/*
BlockSize returns the block size of the store.
*/
func (gm *Manager) BlockSize() int {
	return gm.pm.BlockSize()
}

/*
Stats returns the counters of the buffer.
*/
func (gm *Manager) Stats() buffer.Stats {
	return gm.bm.Stats()
}

/*
CreateGraph creates a new empty graph.
*/
func (gm *Manager) CreateGraph(name string) (*Graph, error) {

	if err := checkGraphName(name); err != nil {
		return nil, err
	}

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	if _, ok := gm.names[name]; ok {
		return nil, util.NewGraphError(util.ErrInvalidData, "Graph %v exists already", name)
	}

	g := newGraph(gm, gm.pm.NextGraphID(), &graphMeta{Name: name}, gm.sel, gm.split)

	if err := g.saveMeta(); err != nil {
		return nil, err
	} else if err := gm.pm.SaveSysProps(); err != nil {
		return nil, err
	}

	gm.register(g)

	LogDebug(fmt.Sprintf("Created graph %v (id: %v)", name, g.id))

	return g, nil
}

/*
Graph returns a graph by its id.
*/
func (gm *Manager) Graph(gid uint32) (*Graph, error) {
	return gm.graph(gid)
}

/*
GraphByName returns a graph by its name.
*/
func (gm *Manager) GraphByName(name string) (*Graph, error) {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	g, ok := gm.names[name]
	if !ok {
		return nil, util.NewGraphError(util.ErrNotFound, "Graph %v", name)
	}

	return g, nil
}

/*
Graphs returns all graphs ordered by id.
*/
func (gm *Manager) Graphs() []*Graph {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	ret := make([]*Graph, 0, len(gm.graphs))
	for _, g := range gm.graphs {
		ret = append(ret, g)
	}

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].id < ret[j].id
	})

	return ret
}

/*
CopyGraph copies all nodes, edges and properties of a graph into a new graph.
Node ids are assigned anew in the order of the source node ids.
*/
func (gm *Manager) CopyGraph(src *Graph, name string) (*Graph, error) {

	dst, err := gm.CreateGraph(name)
	if err != nil {
		return nil, err
	}

	it, err := src.Nodes()
	if err != nil {
		return nil, err
	}

	var order []uint64
	mapping := make(map[uint64]Node)

	for it.HasNext() {
		n := it.Next()

		nn, err := dst.AddNode()
		if err != nil {
			return nil, err
		}

		order = append(order, n.id)
		mapping[n.id] = nn

		p, err := src.nodeProperty(n.id)
		if err != nil {
			return nil, err
		}

		if err := copyProperty(p, nn.SetProperty); err != nil {
			return nil, err
		}
	}

	if err := it.Error(); err != nil {
		return nil, err
	}

	for _, nid := range order {

		outs, err := src.neighborIDs(nid, true)
		if err != nil {
			return nil, err
		}

		for _, other := range outs {

			e, err := dst.AddEdge(mapping[nid], mapping[other])
			if err != nil {
				return nil, err
			}

			p, err := src.edgeProperty(edgeKey{nid, other})
			if err != nil {
				return nil, err
			}

			if err := copyProperty(p, e.SetProperty); err != nil {
				return nil, err
			}
		}
	}

	LogDebug(fmt.Sprintf("Copied graph %v to %v (%v nodes)", src.name, name, len(order)))

	return dst, nil
}

/*
copyProperty copies all keys of a property with a given setter.
*/
func copyProperty(p *data.Property, set func(string, interface{}) error) error {
	if p == nil {
		return nil
	}

	c := data.NewPropertyCopy(p)

	for _, k := range c.Keys() {
		if err := set(k, c.Get(k)); err != nil {
			return err
		}
	}

	return nil
}

/*
DeleteGraph removes a graph and all its stored data.
*/
func (gm *Manager) DeleteGraph(g *Graph) error {
	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	if gm.graphs[g.id] != g {
		return util.NewGraphError(util.ErrNotFound, "Graph %v", g.name)
	}

	for _, lead := range gm.bm.ResidentPages(g.id) {
		gm.bm.Discard(lead)
	}

	// Collect the node table entries and the pages they point to

	var keys [][]byte
	pids := make(map[uint64]bool)

	start, end := storage.GraphPrefixRange(g.id)

	err := gm.conn.Scan(storage.TableNode, start, end, func(key []byte, value []byte) bool {
		k := make([]byte, len(key))
		copy(k, key)
		keys = append(keys, k)

		list, _ := page.DecodePageList(value)

		for _, pid := range list {
			pids[pid] = true
		}

		return true
	})

	if err != nil {
		return util.NewGraphError(util.ErrReading, err.Error())
	}

	ce := errorutil.NewCompositeError()

	for _, k := range keys {
		if err := gm.conn.Delete(storage.TableNode, k); err != nil {
			ce.Add(err)
		}
	}

	for pid := range pids {
		if err := gm.conn.Delete(storage.TableBlock, storage.BlockKey(pid)); err != nil {
			ce.Add(err)
		}
	}

	if err := gm.conn.Delete(storage.TableGraph, storage.GraphKey(g.id)); err != nil {
		ce.Add(err)
	}

	gm.unregister(g)

	if ce.HasErrors() {
		return util.NewGraphError(util.ErrWriting, ce.Error())
	}

	LogDebug(fmt.Sprintf("Deleted graph %v (id: %v)", g.name, g.id))

	return nil
}

/*
DeleteEverything removes all graphs and all stored data. The counters of the
page manager are kept so no id is ever reused.
*/
func (gm *Manager) DeleteEverything() error {
	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	for _, g := range gm.graphs {
		for _, lead := range gm.bm.ResidentPages(g.id) {
			gm.bm.Discard(lead)
		}
		gm.unregister(g)
	}

	for _, t := range storage.Tables {
		if err := gm.conn.DropTable(t); err != nil {
			return util.NewGraphError(util.ErrWriting, err.Error())
		} else if err := gm.conn.CreateTable(t); err != nil {
			return util.NewGraphError(util.ErrWriting, err.Error())
		}
	}

	return gm.pm.SaveSysProps()
}

/*
Flush writes all resident subgraphs and the graph directory.
*/
func (gm *Manager) Flush() error {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	ce := errorutil.NewCompositeError()

	if err := gm.bm.FlushAll(); err != nil {
		ce.Add(err)
	}

	for _, g := range gm.graphs {
		if err := g.saveMeta(); err != nil {
			ce.Add(err)
		}
	}

	if err := gm.pm.SaveSysProps(); err != nil {
		ce.Add(err)
	}

	if ce.HasErrors() {
		return util.NewGraphError(util.ErrFlushing, ce.Error())
	}

	return nil
}

/*
Shutdown flushes all data and closes the connector.
*/
func (gm *Manager) Shutdown() error {

	if err := gm.Flush(); err != nil {
		return err
	}

	if err := gm.conn.Close(); err != nil {
		return util.NewGraphError(util.ErrClosing, err.Error())
	}

	LogInfo(fmt.Sprintf("Closed store %v", gm.pm.StoreID()))

	return nil
}

/*
graph returns a graph by its id.
*/
func (gm *Manager) graph(gid uint32) (*Graph, error) {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	g, ok := gm.graphs[gid]
	if !ok {
		return nil, util.NewGraphError(util.ErrNotFound, "Graph %v", gid)
	}

	return g, nil
}

/*
register adds a graph to the directory. The caller must hold the mutex or
have exclusive access.
*/
func (gm *Manager) register(g *Graph) {
	gm.graphs[g.id] = g
	gm.names[g.name] = g
	gm.bm.Register(g.id, g)
}

/*
unregister removes a graph from the directory. The caller must hold the
mutex.
*/
func (gm *Manager) unregister(g *Graph) {
	delete(gm.graphs, g.id)
	delete(gm.names, g.name)
	gm.bm.Unregister(g.id)
	g.deleted = true
}
