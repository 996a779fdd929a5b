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
Package data contains the data containers which are attached to nodes and
edges of the graph.

Property

A property is an ordered bag of key / value pairs. Values can be any type
which can be encoded with encoding/gob. Custom types must be registered with
gob.Register before they can be stored. A property keeps track of its encoded
size which is used for the size accounting of subgraphs.
*/
package data

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
	"sort"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/pools"
)

func init() {

	// It is possible to store nested structures in properties

	gob.Register(make(map[string]interface{}))
	gob.Register(make([]interface{}, 0))
}

/*
bufferPool is a pool of byte buffers used for encoding.
*/
var bufferPool = pools.NewByteBufferPool()

/*
Copier is implemented by values which provide their own deep copy.
*/
type Copier interface {

	/*
		Copy returns a deep copy of this value.
	*/
	Copy() interface{}
}

/*
Property data structure
*/
type Property struct {
	keys   []string               // Keys in insertion order
	values map[string]interface{} // Values by key
	size   int                    // Encoded size of the property
}

/*
encodedProperty is the gob encoded form of a property.
*/
type encodedProperty struct {
	Keys   []string
	Values []interface{}
}

/*
NewProperty creates a new empty property.
*/
func NewProperty() *Property {
	p := &Property{nil, make(map[string]interface{}), 0}
	p.size = p.encodedSize()
	return p
}

/*
NewPropertyCopy creates a deep copy of a given property. Values which
implement Copier are copied with their own Copy method. Other values are
copied with a gob round trip. Values which cannot be copied are shared.
*/
func NewPropertyCopy(p *Property) *Property {
	c := &Property{make([]string, len(p.keys)), make(map[string]interface{}, len(p.values)), p.size}

	copy(c.keys, p.keys)

	for k, v := range p.values {
		c.values[k] = copyValue(v)
	}

	return c
}

/*
copyValue creates a deep copy of a single value.
*/
func copyValue(v interface{}) interface{} {

	switch cv := v.(type) {
	case Copier:
		return cv.Copy()
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16,
		uint32, uint64, float32, float64:
		return v
	}

	ptr := reflect.New(reflect.TypeOf(v))

	if err := datautil.CopyObject(v, ptr.Interface()); err == nil {
		return ptr.Elem().Interface()
	}

	return v
}

/*
Get returns the value of a key or nil.
*/
func (p *Property) Get(key string) interface{} {
	return p.values[key]
}

/*
Has checks if a key exists.
*/
func (p *Property) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

/*
Set sets the value of a key. Setting a nil value removes the key. Returns the
change of the encoded size. The property stays unchanged if the value cannot
be encoded.
*/
func (p *Property) Set(key string, val interface{}) (int, error) {
	oldVal, exists := p.values[key]

	if val == nil {
		if !exists {
			return 0, nil
		}
		p.removeKey(key)
	} else {
		if !exists {
			p.keys = append(p.keys, key)
		}
		p.values[key] = val
	}

	newSize, err := p.encode(nil)

	if err != nil {

		// Restore the old state

		if exists {
			p.values[key] = oldVal
			if val == nil {
				p.keys = append(p.keys, key)
			}
		} else {
			p.removeKey(key)
		}

		return 0, fmt.Errorf("Cannot store value of key %v: %v", key, err)
	}

	delta := newSize - p.size
	p.size = newSize

	return delta, nil
}

/*
Keys returns all keys in insertion order.
*/
func (p *Property) Keys() []string {
	ret := make([]string, len(p.keys))
	copy(ret, p.keys)
	return ret
}

/*
Len returns the number of keys.
*/
func (p *Property) Len() int {
	return len(p.keys)
}

/*
Size returns the encoded size of this property in bytes.
*/
func (p *Property) Size() int {
	return p.size
}

/*
Encode encodes this property into bytes.
*/
func (p *Property) Encode() ([]byte, error) {
	var ret []byte

	_, err := p.encode(func(b []byte) {
		ret = make([]byte, len(b))
		copy(ret, b)
	})

	return ret, err
}

/*
DecodeProperty decodes a property from bytes.
*/
func DecodeProperty(b []byte) (*Property, error) {
	var ep encodedProperty

	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&ep); err != nil {
		return nil, err
	}

	if len(ep.Keys) != len(ep.Values) {
		return nil, fmt.Errorf("Property has %v keys but %v values", len(ep.Keys), len(ep.Values))
	}

	p := &Property{ep.Keys, make(map[string]interface{}, len(ep.Keys)), len(b)}

	for i, k := range ep.Keys {
		p.values[k] = ep.Values[i]
	}

	return p, nil
}

/*
Equal compares the keys and values of two properties. The order of keys is
not relevant.
*/
func (p *Property) Equal(other *Property) bool {
	if p == nil || other == nil {
		return p == other
	}

	return reflect.DeepEqual(p.values, other.values)
}

/*
String returns a string representation of this property.
*/
func (p *Property) String() string {
	keys := p.Keys()
	sort.Strings(keys)

	buf := new(bytes.Buffer)
	buf.WriteString("{")

	for i, k := range keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(fmt.Sprintf("%v: %v", k, p.values[k]))
	}

	buf.WriteString("}")

	return buf.String()
}

/*
encode encodes this property and calls a given function with the result.
Returns the encoded size.
*/
func (p *Property) encode(fn func([]byte)) (int, error) {
	ep := encodedProperty{p.keys, make([]interface{}, len(p.keys))}

	for i, k := range p.keys {
		ep.Values[i] = p.values[k]
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := gob.NewEncoder(buf).Encode(&ep); err != nil {
		return 0, err
	}

	if fn != nil {
		fn(buf.Bytes())
	}

	return buf.Len(), nil
}

/*
encodedSize returns the encoded size of this property.
*/
func (p *Property) encodedSize() int {
	size, err := p.encode(nil)
	if err != nil {
		return 0
	}
	return size
}

/*
removeKey removes a key from this property.
*/
func (p *Property) removeKey(key string) {
	delete(p.values, key)

	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}
