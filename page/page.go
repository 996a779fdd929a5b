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

import "fmt"

/*
Page data structure. A page is either the lead page of a chain or a member
page which delegates its state queries to the lead page.
*/
type Page struct {
	id          uint64 // Unique id of the page
	graphID     uint32 // Graph which owns the page
	data        []byte // Raw page data
	lead        *Page  // Lead page of the chain (nil for a lead page)
	next        *Page  // Next page in the chain
	dirty       bool   // Dirty flag (lead page only)
	partitioned bool   // Flag if the chain holds more than one block (lead page only)
}

/*
ID returns the id of this page.
*/
func (p *Page) ID() uint64 {
	return p.id
}

/*
GraphID returns the id of the graph which owns this page.
*/
func (p *Page) GraphID() uint32 {
	return p.graphID
}

/*
SubGraphID returns the id of the subgraph stored in this page. A subgraph is
identified by the id of its lead page.
*/
func (p *Page) SubGraphID() uint64 {
	return p.Lead().id
}

/*
Data returns the raw data of this page.
*/
func (p *Page) Data() []byte {
	return p.data
}

/*
SetData sets the raw data of this page.
*/
func (p *Page) SetData(data []byte) {
	p.data = data
}

/*
IsLead returns if this page is the lead page of its chain.
*/
func (p *Page) IsLead() bool {
	return p.lead == nil
}

/*
Lead returns the lead page of the chain.
*/
func (p *Page) Lead() *Page {
	if p.lead == nil {
		return p
	}
	return p.lead
}

/*
Next returns the next page in the chain or nil.
*/
func (p *Page) Next() *Page {
	return p.next
}

/*
Chain returns all pages of the chain starting with the lead page.
*/
func (p *Page) Chain() []*Page {
	var ret []*Page

	for c := p.Lead(); c != nil; c = c.next {
		ret = append(ret, c)
	}

	return ret
}

/*
ChainLen returns the number of pages in the chain.
*/
func (p *Page) ChainLen() int {
	i := 0

	for c := p.Lead(); c != nil; c = c.next {
		i++
	}

	return i
}

/*
Last returns the last page of the chain.
*/
func (p *Page) Last() *Page {
	c := p.Lead()

	for c.next != nil {
		c = c.next
	}

	return c
}

/*
Dirty returns if the chain was modified since it was last written.
*/
func (p *Page) Dirty() bool {
	return p.Lead().dirty
}

/*
SetDirty sets the dirty flag of the chain.
*/
func (p *Page) SetDirty(dirty bool) {
	p.Lead().dirty = dirty
}

/*
Partitioned returns if the chain was allowed to span more than one block.
*/
func (p *Page) Partitioned() bool {
	return p.Lead().partitioned
}

/*
SetPartitioned marks the chain as partitioned. A chain stays partitioned
for its whole lifetime.
*/
func (p *Page) SetPartitioned() {
	p.Lead().partitioned = true
}

/*
ChainData returns the data of all pages of the chain concatenated.
*/
func (p *Page) ChainData() []byte {
	var size int

	chain := p.Chain()
	for _, c := range chain {
		size += len(c.data)
	}

	ret := make([]byte, 0, size)
	for _, c := range chain {
		ret = append(ret, c.data...)
	}

	return ret
}

/*
String returns a string representation of this page.
*/
func (p *Page) String() string {
	if p.IsLead() {
		return fmt.Sprintf("Page %v (graph: %v, chain: %v, dirty: %v, partitioned: %v, bytes: %v)",
			p.id, p.graphID, p.ChainLen(), p.dirty, p.partitioned, len(p.data))
	}

	return fmt.Sprintf("Page %v (graph: %v, lead: %v, bytes: %v)",
		p.id, p.graphID, p.lead.id, len(p.data))
}
