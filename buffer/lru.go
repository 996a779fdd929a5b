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
	"sync"

	"devt.de/krotik/pagegraph/page"
)

/*
lruEntry is an entry in the LRU list of resident lead pages.
*/
type lruEntry struct {
	lead *page.Page // Lead page of a resident subgraph
	pins int        // Number of pins which prevent eviction
	prev *lruEntry  // Pointer to previous (older) entry in the linked list
	next *lruEntry  // Pointer to next (newer) entry in the linked list
}

/*
Pool for list entries
*/
var entryPool = &sync.Pool{New: func() interface{} { return &lruEntry{} }}

/*
lruList is a map of lead pages combined with a linked list which keeps the
least recently used page at the beginning. The list is not thread safe.
*/
type lruList struct {
	entries    map[uint64]*lruEntry // Map of entries by lead page id
	firstentry *lruEntry            // Pointer to first (least recently used) entry
	lastentry  *lruEntry            // Pointer to last (most recently used) entry
}

/*
newLRUList creates a new empty list.
*/
func newLRUList() *lruList {
	return &lruList{make(map[uint64]*lruEntry), nil, nil}
}

/*
len returns the number of entries in the list.
*/
func (l *lruList) len() int {
	return len(l.entries)
}

/*
contains checks if a lead page is in the list.
*/
func (l *lruList) contains(lead *page.Page) bool {
	_, ok := l.entries[lead.ID()]
	return ok
}

/*
add appends a lead page as the most recently used entry.
*/
func (l *lruList) add(lead *page.Page) {
	entry := entryPool.Get().(*lruEntry)
	entry.lead = lead
	entry.pins = 0

	l.llAppendEntry(entry)
	l.entries[lead.ID()] = entry
}

/*
touch makes a lead page the most recently used entry. Returns false if the
page is not in the list.
*/
func (l *lruList) touch(lead *page.Page) bool {
	entry, ok := l.entries[lead.ID()]
	if ok {
		l.llTouchEntry(entry)
	}
	return ok
}

/*
remove removes a lead page from the list. Returns false if the page is not
in the list.
*/
func (l *lruList) remove(lead *page.Page) bool {
	entry, ok := l.entries[lead.ID()]
	if !ok {
		return false
	}

	l.llRemoveEntry(entry)
	delete(l.entries, lead.ID())

	entry.lead = nil
	entryPool.Put(entry)

	return true
}

/*
pin changes the pin count of a lead page. Returns false if the page is not
in the list.
*/
func (l *lruList) pin(lead *page.Page, delta int) bool {
	entry, ok := l.entries[lead.ID()]
	if ok {
		entry.pins += delta
		if entry.pins < 0 {
			entry.pins = 0
		}
	}
	return ok
}

/*
oldest returns the least recently used lead page which is not pinned or nil
if there is no such page.
*/
func (l *lruList) oldest() *page.Page {
	for e := l.firstentry; e != nil; e = e.next {
		if e.pins == 0 {
			return e.lead
		}
	}
	return nil
}

/*
pages returns all lead pages from least to most recently used.
*/
func (l *lruList) pages() []*page.Page {
	ret := make([]*page.Page, 0, len(l.entries))

	for e := l.firstentry; e != nil; e = e.next {
		ret = append(ret, e.lead)
	}

	return ret
}

/*
llTouchEntry puts an entry to the last position of the linked list.
Calling llTouchEntry on all requested items ensures that the oldest used
entry is at the beginning of the list.
*/
func (l *lruList) llTouchEntry(entry *lruEntry) {
	if l.lastentry == entry {
		return
	}

	l.llRemoveEntry(entry)
	l.llAppendEntry(entry)
}

/*
llAppendEntry appends an entry to the end of the linked list.
*/
func (l *lruList) llAppendEntry(entry *lruEntry) {
	if l.firstentry == nil {
		l.firstentry = entry
		l.lastentry = entry
		entry.prev = nil
	} else {
		l.lastentry.next = entry
		entry.prev = l.lastentry
		l.lastentry = entry
	}
	entry.next = nil
}

/*
llRemoveEntry removes an entry from the linked list.
*/
func (l *lruList) llRemoveEntry(entry *lruEntry) {
	if entry == l.firstentry {
		l.firstentry = entry.next
	}
	if l.lastentry == entry {
		l.lastentry = entry.prev
	}

	if entry.prev != nil {
		entry.prev.next = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	}

	entry.prev = nil
	entry.next = nil
}
