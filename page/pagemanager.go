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
	"encoding/json"
	"fmt"
	"sync"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/pagegraph/graph/util"
	"devt.de/krotik/pagegraph/storage"
	"github.com/google/uuid"
)

/*
SysProps are the engine wide properties which are persisted in the graph
table of the connector.
*/
type SysProps struct {
	PageIDCount  uint64 `json:"pageIdCount"`  // Next free page id
	GraphIDCount uint32 `json:"graphIdCount"` // Next free graph id
	StoreID      string `json:"storeId"`      // Unique id of the store
}

/*
Manager data structure
*/
type Manager struct {
	conn      storage.Connector // Connector which holds the system properties
	blockSize int               // Maximum size of a single page
	sysprops  *SysProps         // System properties
	pages     map[uint64]*Page  // Resident pages
	mutex     *sync.Mutex       // Mutex to protect id allocation and page map
}

/*
NewManager creates a new page manager. The system properties are read from
the given connector. A new store id is generated if the connector is empty.
*/
func NewManager(conn storage.Connector, blockSize int) (*Manager, error) {

	if blockSize < MinBlockSize {
		return nil, util.NewGraphError(util.ErrCapacityExceeded,
			"Block size %v is too small - minimum is %v", blockSize, MinBlockSize)
	}

	pm := &Manager{conn, blockSize, &SysProps{PageIDCount: 1, GraphIDCount: 1},
		make(map[uint64]*Page), &sync.Mutex{}}

	val, err := conn.Get(storage.TableGraph, storage.GraphKey(storage.SysPropsGraphID))
	if err != nil {
		return nil, util.NewGraphError(util.ErrOpening, err.Error())
	}

	if val == nil {
		pm.sysprops.StoreID = uuid.New().String()

		if err := pm.SaveSysProps(); err != nil {
			return nil, err
		}

		LogInfo("Created new store ", pm.sysprops.StoreID)

	} else {

		if err := json.Unmarshal(val, pm.sysprops); err != nil {
			return nil, util.NewGraphError(util.ErrCorruption,
				"Could not read system properties: %v", err)
		}

		LogInfo("Opened store ", pm.sysprops.StoreID, " (next page id: ",
			pm.sysprops.PageIDCount, ")")
	}

	return pm, nil
}

/*
BlockSize returns the maximum size of a single page.
*/
func (pm *Manager) BlockSize() int {
	return pm.blockSize
}

/*
StoreID returns the unique id of the store.
*/
func (pm *Manager) StoreID() string {
	return pm.sysprops.StoreID
}

/*
NextGraphID allocates a new graph id.
*/
func (pm *Manager) NextGraphID() uint32 {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	ret := pm.sysprops.GraphIDCount
	pm.sysprops.GraphIDCount++

	return ret
}

/*
EnsureGraphID makes sure that the given graph id is never allocated again.
*/
func (pm *Manager) EnsureGraphID(gid uint32) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if pm.sysprops.GraphIDCount <= gid {
		pm.sysprops.GraphIDCount = gid + 1
	}
}

/*
SaveSysProps writes the system properties to the connector.
*/
func (pm *Manager) SaveSysProps() error {
	pm.mutex.Lock()
	val, err := json.Marshal(pm.sysprops)
	pm.mutex.Unlock()

	errorutil.AssertOk(err)

	if err = pm.conn.Put(storage.TableGraph,
		storage.GraphKey(storage.SysPropsGraphID), val); err != nil {

		return util.NewGraphError(util.ErrWriting, err.Error())
	}

	return nil
}

/*
NewPage creates a new lead page with a unique id.
*/
func (pm *Manager) NewPage(gid uint32) *Page {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	p := &Page{id: pm.allocID(), graphID: gid, dirty: true}
	pm.pages[p.id] = p

	return p
}

/*
NewChainedPage appends a new page with a unique id to the chain of a given page.
*/
func (pm *Manager) NewChainedPage(p *Page) *Page {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	last := p.Last()

	np := &Page{id: pm.allocID(), graphID: last.graphID, lead: p.Lead()}
	last.next = np
	pm.pages[np.id] = np

	return np
}

/*
ChainFromIDs rebuilds the chain of a subgraph from a list of page ids. The
first id is the lead page. No ids are allocated. A chain of more than one
page is always partitioned.
*/
func (pm *Manager) ChainFromIDs(gid uint32, pids []uint64, partitioned bool) (*Page, error) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if len(pids) == 0 {
		return nil, util.NewGraphError(util.ErrCorruption, "Empty page list")
	}

	for _, pid := range pids {
		if _, ok := pm.pages[pid]; ok {
			return nil, util.NewGraphError(util.ErrCorruption,
				"Page %v is already resident", pid)
		}
	}

	lead := &Page{id: pids[0], graphID: gid, partitioned: partitioned || len(pids) > 1}
	pm.pages[lead.id] = lead

	last := lead
	for _, pid := range pids[1:] {
		np := &Page{id: pid, graphID: gid, lead: lead}
		last.next = np
		last = np
		pm.pages[pid] = np
	}

	return lead, nil
}

/*
Page returns a resident page.
*/
func (pm *Manager) Page(pid uint64) *Page {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	return pm.pages[pid]
}

/*
ResidentPages returns the number of resident pages.
*/
func (pm *Manager) ResidentPages() int {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	return len(pm.pages)
}

/*
Release forgets all pages of a chain.
*/
func (pm *Manager) Release(p *Page) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	for _, c := range p.Chain() {
		delete(pm.pages, c.id)
	}
}

/*
WriteChain distributes an encoded stream over the pages of a chain. New pages
are appended to the chain if required. Returns the ids of all pages which
hold data. Pages which are not needed are emptied but stay in the chain.
*/
func (pm *Manager) WriteChain(p *Page, data []byte) []uint64 {
	lead := p.Lead()

	chunks := (len(data) + pm.blockSize - 1) / pm.blockSize
	if chunks == 0 {
		chunks = 1
	}

	if chunks > 1 && !lead.partitioned {
		LogDebug(fmt.Sprintf("Page %v spans %v blocks", lead.id, chunks))
		lead.SetPartitioned()
	}

	for lead.ChainLen() < chunks {
		pm.NewChainedPage(lead)
	}

	var pids []uint64

	for i, c := range lead.Chain() {

		if i >= chunks {
			c.data = nil
			continue
		}

		end := (i + 1) * pm.blockSize
		if end > len(data) {
			end = len(data)
		}

		c.data = data[i*pm.blockSize : end]
		pids = append(pids, c.id)
	}

	return pids
}

/*
allocID allocates a new page id. The caller must hold the mutex.
*/
func (pm *Manager) allocID() uint64 {
	ret := pm.sysprops.PageIDCount
	pm.sysprops.PageIDCount++
	return ret
}
