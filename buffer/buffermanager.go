/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package buffer

import (
	"fmt"
	"sync"
	"time"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/pagegraph/graph/util"
	"devt.de/krotik/pagegraph/page"
	"devt.de/krotik/pagegraph/storage"
)

/*
Stats are the counters of a buffer manager.
*/
type Stats struct {
	BytesRead      uint64        // Bytes read from the connector
	BytesWritten   uint64        // Bytes written to the connector
	ReadTime       time.Duration // Time spent reading pages
	WriteTime      time.Duration // Time spent writing pages
	InvalidateTime time.Duration // Time spent evicting subgraphs
	Fetches        uint64        // Number of fetched subgraphs
	Evictions      uint64        // Number of evicted subgraphs
	Resident       int           // Number of resident subgraphs
}

/*
String returns a string representation of the counters.
*/
func (s Stats) String() string {
	return fmt.Sprintf("resident: %v, fetches: %v, evictions: %v, read: %v bytes in %v, "+
		"written: %v bytes in %v, invalidate: %v", s.Resident, s.Fetches, s.Evictions,
		s.BytesRead, s.ReadTime, s.BytesWritten, s.WriteTime, s.InvalidateTime)
}

/*
Manager data structure
*/
type Manager struct {
	conn         storage.Connector // Connector which stores pages and the node table
	pm           *page.Manager     // Page manager
	maxSubGraphs int               // Maximum number of resident subgraphs
	owners       map[uint32]Owner  // Owners of subgraphs by graph id
	lru          *lruList          // LRU list of resident lead pages
	stats        Stats             // Counters
	mutex        *sync.Mutex       // Mutex to protect the LRU list and counters
}

/*
NewManager creates a new buffer manager. A buffer must be able to hold at
least 2 subgraphs since an edge may connect two different subgraphs.
*/
func NewManager(conn storage.Connector, pm *page.Manager, maxSubGraphs int) (*Manager, error) {

	if maxSubGraphs < 2 {
		return nil, util.NewGraphError(util.ErrCapacityExceeded,
			"Buffer must hold at least 2 subgraphs - got %v", maxSubGraphs)
	}

	return &Manager{conn, pm, maxSubGraphs, make(map[uint32]Owner),
		newLRUList(), Stats{}, &sync.Mutex{}}, nil
}

/*
MaxSubGraphs returns the maximum number of resident subgraphs.
*/
func (bm *Manager) MaxSubGraphs() int {
	return bm.maxSubGraphs
}

/*
PageManager returns the page manager of this buffer.
*/
func (bm *Manager) PageManager() *page.Manager {
	return bm.pm
}

/*
Register registers the owner of all subgraphs of a graph.
*/
func (bm *Manager) Register(gid uint32, owner Owner) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.owners[gid] = owner
}

/*
Unregister removes the owner of a graph. All subgraphs of the graph must
have been evicted or discarded before.
*/
func (bm *Manager) Unregister(gid uint32) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	delete(bm.owners, gid)
}

/*
Touch marks the subgraph of a given page as most recently used.
*/
func (bm *Manager) Touch(p *page.Page) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.lru.touch(p.Lead())
}

/*
IsResident checks if the subgraph of a given page is in the buffer.
*/
func (bm *Manager) IsResident(p *page.Page) bool {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	return bm.lru.contains(p.Lead())
}

/*
Admit adds the subgraph of a given page to the buffer. If the buffer is full
the least recently used subgraphs are evicted first. Admitting a resident
subgraph touches it.
*/
func (bm *Manager) Admit(p *page.Page) error {
	lead := p.Lead()

	bm.mutex.Lock()

	if bm.lru.touch(lead) {
		bm.mutex.Unlock()
		return nil
	}

	for bm.lru.len() >= bm.maxSubGraphs {
		victim := bm.lru.oldest()
		bm.mutex.Unlock()

		if victim == nil {

			// All resident subgraphs are pinned - the buffer grows until
			// the pins are released

			LogDebug(fmt.Sprintf("Buffer exceeds %v subgraphs", bm.maxSubGraphs))
			bm.mutex.Lock()
			break
		}

		if err := bm.Evict(victim); err != nil {
			return err
		}

		bm.mutex.Lock()
	}

	bm.lru.add(lead)
	bm.stats.Resident = bm.lru.len()

	bm.mutex.Unlock()

	metricResident.Inc()

	return nil
}

/*
Pin prevents the subgraph of a given page from being evicted by EvictOne.
Pins are counted.
*/
func (bm *Manager) Pin(p *page.Page) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.lru.pin(p.Lead(), 1)
}

/*
Unpin releases a pin of the subgraph of a given page.
*/
func (bm *Manager) Unpin(p *page.Page) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.lru.pin(p.Lead(), -1)
}

/*
EvictOne evicts the least recently used subgraph which is not pinned.
*/
func (bm *Manager) EvictOne() error {
	bm.mutex.Lock()
	lead := bm.lru.oldest()
	bm.mutex.Unlock()

	if lead == nil {
		return nil
	}

	return bm.Evict(lead)
}

/*
Evict evicts the subgraph of a given page. A dirty subgraph is written to the
connector before it is dropped. If writing fails the subgraph stays resident.
*/
func (bm *Manager) Evict(p *page.Page) error {
	lead := p.Lead()
	start := time.Now()

	bm.mutex.Lock()

	if !bm.lru.remove(lead) {
		bm.mutex.Unlock()
		return nil
	}

	owner, ok := bm.owners[lead.GraphID()]

	bm.mutex.Unlock()

	if !ok {

		// The graph of the page was deleted - there is nothing to write to

		bm.pm.Release(lead)

		bm.mutex.Lock()
		bm.stats.Resident = bm.lru.len()
		bm.mutex.Unlock()

		metricResident.Dec()

		LogInfo(fmt.Sprintf("Dropped subgraph %v of unknown graph %v", lead.ID(), lead.GraphID()))

		return nil
	}

	dirty := lead.Dirty()

	if dirty {
		if err := bm.writeOut(lead, owner); err != nil {

			bm.mutex.Lock()
			bm.lru.add(lead)
			bm.mutex.Unlock()

			return err
		}
	}

	owner.DropSubGraph(lead)
	bm.pm.Release(lead)

	bm.mutex.Lock()
	bm.stats.Evictions++
	bm.stats.InvalidateTime += time.Since(start)
	bm.stats.Resident = bm.lru.len()
	bm.mutex.Unlock()

	state := "clean"
	if dirty {
		state = "dirty"
	}

	metricEvictions.WithLabelValues(state).Inc()
	metricResident.Dec()

	LogDebug(fmt.Sprintf("Evicted %v subgraph %v of graph %v", state, lead.ID(), lead.GraphID()))

	return nil
}

/*
Discard drops the subgraph of a given page without writing it.
*/
func (bm *Manager) Discard(p *page.Page) {
	lead := p.Lead()

	bm.mutex.Lock()
	removed := bm.lru.remove(lead)
	bm.stats.Resident = bm.lru.len()
	owner := bm.owners[lead.GraphID()]
	bm.mutex.Unlock()

	if removed {
		metricResident.Dec()
	}

	if owner != nil {
		owner.DropSubGraph(lead)
	}

	bm.pm.Release(lead)
}

/*
FlushAll evicts all resident subgraphs.
*/
func (bm *Manager) FlushAll() error {
	return bm.flush(func(p *page.Page) bool { return true })
}

/*
FlushGraph evicts all resident subgraphs of a given graph.
*/
func (bm *Manager) FlushGraph(gid uint32) error {
	return bm.flush(func(p *page.Page) bool { return p.GraphID() == gid })
}

/*
flush evicts all resident subgraphs which match a given filter.
*/
func (bm *Manager) flush(filter func(p *page.Page) bool) error {
	bm.mutex.Lock()
	pages := bm.lru.pages()
	bm.mutex.Unlock()

	ce := errorutil.NewCompositeError()

	for _, p := range pages {
		if filter(p) {
			if err := bm.Evict(p); err != nil {
				ce.Add(err)
			}
		}
	}

	if ce.HasErrors() {
		return util.NewGraphError(util.ErrFlushing, ce.Error())
	}

	return nil
}

/*
ResidentPages returns the lead pages of all resident subgraphs of a given
graph from the least to the most recently used.
*/
func (bm *Manager) ResidentPages(gid uint32) []*page.Page {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	var ret []*page.Page

	for _, p := range bm.lru.pages() {
		if p.GraphID() == gid {
			ret = append(ret, p)
		}
	}

	return ret
}

/*
PageList looks up the list of pages which hold the subgraph of a given node.
Also returns if the subgraph is partitioned.
*/
func (bm *Manager) PageList(gid uint32, nid uint64) ([]uint64, bool, error) {
	val, err := bm.conn.Get(storage.TableNode, storage.NodeKey(gid, nid))

	if err != nil {
		return nil, false, util.NewGraphError(util.ErrReading, err.Error())
	} else if val == nil {
		return nil, false, util.NewGraphError(util.ErrNotFound,
			"Node %v of graph %v", nid, gid)
	}

	pids, partitioned := page.DecodePageList(val)
	if len(pids) == 0 {
		return nil, false, util.NewGraphError(util.ErrCorruption,
			"Empty page list for node %v of graph %v", nid, gid)
	}

	return pids, partitioned, nil
}

/*
Fetch reads the pages of a subgraph from the connector and admits the
subgraph to the buffer. Returns the lead page and the encoded subgraph.
*/
func (bm *Manager) Fetch(gid uint32, pids []uint64, partitioned bool) (*page.Page, []byte, error) {
	start := time.Now()

	lead, err := bm.pm.ChainFromIDs(gid, pids, partitioned)
	if err != nil {
		return nil, nil, err
	}

	var read uint64

	for _, c := range lead.Chain() {
		val, err := bm.conn.Get(storage.TableBlock, storage.BlockKey(c.ID()))

		if err == nil && val == nil {
			err = util.NewGraphError(util.ErrCorruption, "Missing page %v", c.ID())
		} else if err != nil {
			err = util.NewGraphError(util.ErrReading, err.Error())
		}

		if err != nil {
			bm.pm.Release(lead)
			return nil, nil, err
		}

		c.SetData(val)
		read += uint64(len(val))
	}

	elapsed := time.Since(start)

	bm.mutex.Lock()
	bm.stats.BytesRead += read
	bm.stats.ReadTime += elapsed
	bm.stats.Fetches++
	bm.mutex.Unlock()

	metricBytesRead.Add(float64(read))
	metricReadSeconds.Add(elapsed.Seconds())
	metricFetches.Inc()

	if err := bm.Admit(lead); err != nil {
		bm.pm.Release(lead)
		return nil, nil, err
	}

	return lead, lead.ChainData(), nil
}

/*
DeleteNode removes the node table entry of a node.
*/
func (bm *Manager) DeleteNode(gid uint32, nid uint64) error {
	if err := bm.conn.Delete(storage.TableNode, storage.NodeKey(gid, nid)); err != nil {
		return util.NewGraphError(util.ErrWriting, err.Error())
	}
	return nil
}

/*
Stats returns a copy of the current counters.
*/
func (bm *Manager) Stats() Stats {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	return bm.stats
}

/*
writeOut encodes a subgraph and writes its pages and the node table entries
of its nodes.
*/
func (bm *Manager) writeOut(lead *page.Page, owner Owner) error {
	start := time.Now()

	data, nodes, err := owner.SerializeSubGraph(lead)
	if err != nil {
		return err
	}

	pids := bm.pm.WriteChain(lead, data)

	keys := make([][]byte, 0, len(pids))
	values := make([][]byte, 0, len(pids))

	for _, c := range lead.Chain() {
		if c.Data() != nil {
			keys = append(keys, storage.BlockKey(c.ID()))
			values = append(values, c.Data())
		}
	}

	if err := bm.conn.PutBatch(storage.TableBlock, keys, values); err != nil {
		return util.NewGraphError(util.ErrWriting, err.Error())
	}

	// All nodes of the subgraph point to the same page list

	pageList := page.EncodePageList(pids, lead.Partitioned())

	keys = make([][]byte, 0, len(nodes))
	values = make([][]byte, 0, len(nodes))

	for _, nid := range nodes {
		keys = append(keys, storage.NodeKey(lead.GraphID(), nid))
		values = append(values, pageList)
	}

	if len(keys) > 0 {
		if err := bm.conn.PutBatch(storage.TableNode, keys, values); err != nil {
			return util.NewGraphError(util.ErrWriting, err.Error())
		}
	}

	// Make sure no written page id is ever allocated again

	if err := bm.pm.SaveSysProps(); err != nil {
		return err
	}

	lead.SetDirty(false)

	elapsed := time.Since(start)

	bm.mutex.Lock()
	bm.stats.BytesWritten += uint64(len(data))
	bm.stats.WriteTime += elapsed
	bm.mutex.Unlock()

	metricBytesWritten.Add(float64(len(data)))
	metricWriteSeconds.Add(elapsed.Seconds())

	return nil
}
