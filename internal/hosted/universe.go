// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hosted

import (
	"fmt"

	"buf.build/go/imageheap/internal/layout"
)

// Universe is the heap builder's view of the static analysis results: type
// lookup, object replacement, identity hashes, and the immutability
// registries.
type Universe struct {
	// StringType and CharArrayType are the well-known types backing host
	// strings. StringType must declare a "value" field (the char-array
	// payload) and a "hash" field (the cached content hash).
	StringType    *Type
	CharArrayType *Type

	// HubType is the type of every [Hub].
	HubType *Type

	// Replacer is the analysis-time substitution hook. Objects are
	// replaced on every edge before admission.
	Replacer func(Value) Value

	hashes   map[Value]int32
	nextHash int32

	immutableTypes   map[*Type]struct{}
	immutableObjects map[Value]struct{}
}

// NewUniverse returns an empty universe.
func NewUniverse() *Universe {
	return &Universe{
		hashes:           make(map[Value]int32),
		immutableTypes:   make(map[*Type]struct{}),
		immutableObjects: make(map[Value]struct{}),
	}
}

// ReplaceObject applies the analysis-time substitution hook to v.
func (u *Universe) ReplaceObject(v Value) Value {
	if u.Replacer == nil || v == nil {
		return v
	}
	return u.Replacer(v)
}

// IdentityHash returns the host identity hash of v. Hashes are assigned on
// first request, are never zero, and are stable for the life of the
// universe, so a build that admits objects in a fixed order sees fixed
// hashes.
func (u *Universe) IdentityHash(v Value) int32 {
	if hub, ok := v.(*Hub); ok && hub.Class != nil {
		// Hubs hash like their class object, so host hash maps keyed on
		// classes survive into the runtime.
		v = hub.Class
	}
	if h, ok := u.hashes[v]; ok {
		return h
	}
	u.nextHash++
	h := u.nextHash * 0x9e37 // Spread hashes; zero is reserved.
	u.hashes[v] = h
	return h
}

// RegisterImmutableType marks every instance of t as immutable.
func (u *Universe) RegisterImmutableType(t *Type) {
	u.immutableTypes[t] = struct{}{}
}

// RegisterImmutableObject marks v itself as immutable.
func (u *Universe) RegisterImmutableObject(v Value) {
	u.immutableObjects[v] = struct{}{}
}

// IsKnownImmutable reports whether v may be placed in a read-only
// partition regardless of its written flags: strings with a nonzero cached
// hash, instances of registered immutable types, and objects registered
// individually.
func (u *Universe) IsKnownImmutable(v Value) bool {
	if s, ok := v.(*Str); ok && s.CachedHash() != 0 {
		return true
	}
	if t := v.TypeOf(); t != nil {
		if _, ok := u.immutableTypes[t]; ok {
			return true
		}
	}
	_, ok := u.immutableObjects[v]
	return ok
}

// NewString allocates a host string with the given text. The payload char
// array is created alongside and shares the string's lifetime.
func (u *Universe) NewString(text string, interned bool) *Str {
	if u.StringType == nil || u.CharArrayType == nil {
		panic("imageheap: universe has no string types")
	}
	chars := make([]Constant, 0, len(text))
	for _, c := range text {
		chars = append(chars, Constant{Kind: layout.Int16, Bits: uint64(uint16(c))})
	}
	payload := NewArray(u.CharArrayType, chars...)

	s := &Str{Text: text, Interned: interned}
	s.Type = u.StringType
	s.slots = make([]Constant, len(u.StringType.Fields))
	s.SetField("value", RefConstant(payload))
	return s
}

// NewHub allocates the hub for t and wires it into the type. The hub's
// fields are zeroed; callers populate them like any other instance.
func (u *Universe) NewHub(t *Type, class *Class, initialized bool) *Hub {
	if u.HubType == nil {
		panic("imageheap: universe has no hub type")
	}
	h := &Hub{Described: t, Class: class, HasInitInfo: initialized}
	h.Instance = *NewInstance(u.HubType)
	t.Hub = h
	return h
}

// String implements [fmt.Stringer].
func (u *Universe) String() string {
	return fmt.Sprintf("universe(%d hashed)", len(u.hashes))
}
