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

// Value is a live host object. All implementations are pointers, so
// [Value] map keys compare by identity.
type Value interface {
	isValue()

	// TypeOf returns the analysis-time type of this value, or nil if
	// analysis never saw it.
	TypeOf() *Type
}

type object struct{}

func (object) isValue() {}

// Instance is an ordinary host instance with a fixed set of fields.
type Instance struct {
	object
	Type *Type

	slots []Constant
}

// NewInstance allocates an instance of t with all fields zeroed.
func NewInstance(t *Type) *Instance {
	var slots []Constant
	if t != nil {
		slots = make([]Constant, len(t.Fields))
		for i, f := range t.Fields {
			// A zeroed slot carries its field's kind, so an unset
			// reference field reads as null.
			slots[i] = Constant{Kind: f.Kind}
		}
	}
	return &Instance{Type: t, slots: slots}
}

// TypeOf implements [Value].
func (v *Instance) TypeOf() *Type { return v.Type }

// SetField stores c in the field named name. Panics if the type has no
// such field.
func (v *Instance) SetField(name string, c Constant) *Instance {
	f := v.Type.FieldByName(name)
	if f == nil {
		panic(fmt.Sprintf("imageheap: %v has no field %q", v.Type, name))
	}
	v.slots[f.Index] = c
	return v
}

func (v *Instance) fieldSlots() []Constant { return v.slots }

// String implements [fmt.Stringer].
func (v *Instance) String() string { return fmt.Sprintf("%v@%p", v.Type, v) }

// Array is a host array. Primitive arrays store their elements as
// primitive constants; object arrays store references.
type Array struct {
	object
	Type  *Type
	Elems []Constant
}

// NewArray allocates an array of t with the given elements.
func NewArray(t *Type, elems ...Constant) *Array {
	return &Array{Type: t, Elems: elems}
}

// TypeOf implements [Value].
func (v *Array) TypeOf() *Type { return v.Type }

// Len returns the array length.
func (v *Array) Len() int { return len(v.Elems) }

// String implements [fmt.Stringer].
func (v *Array) String() string { return fmt.Sprintf("%v[%d]@%p", v.Type, len(v.Elems), v) }

// Str is a host string: an instance of the universe's string type whose
// payload is a char array, plus the canonical text the build sees.
type Str struct {
	Instance
	Text     string
	Interned bool

	hashed bool
}

// HashCode computes the host string hash, caching it in the string's hash
// field so the cached value is emitted into the image. The hash of a
// nonempty string is almost always nonzero; a zero hash simply stays
// uncached, exactly like on the host.
func (v *Str) HashCode() int32 {
	if !v.hashed {
		var h int32
		for _, c := range v.Text {
			h = 31*h + int32(c)
		}
		v.hashed = true
		if f := v.Type.FieldByName("hash"); f != nil {
			v.slots[f.Index] = Int32Constant(h)
		}
	}
	f := v.Type.FieldByName("hash")
	if f == nil {
		return 0
	}
	return int32(v.slots[f.Index].Bits)
}

// String implements [fmt.Stringer].
func (v *Str) String() string { return fmt.Sprintf("%q@%p", v.Text, v) }

// CachedHash returns the hash stored in the string's hash field, without
// computing it.
func (v *Str) CachedHash() int32 {
	if f := v.Type.FieldByName("hash"); f != nil {
		return int32(v.slots[f.Index].Bits)
	}
	return 0
}

// Hub is the runtime metadata object for a type. Hubs are themselves heap
// objects: they are instances of the universe's hub type.
type Hub struct {
	Instance

	// Described is the type this hub describes.
	Described *Type

	// Class is the host-language class object backing this hub. Hubs
	// take their identity hash from it so host-side hash maps keyed on
	// classes stay valid at runtime.
	Class *Class

	// HasInitInfo records whether class-initialization info was
	// populated by analysis. A hub without it was never seen as a type.
	HasInitInfo bool
}

// String implements [fmt.Stringer].
func (v *Hub) String() string { return fmt.Sprintf("hub:%v", v.Described) }

// Class is a host-language class handle. Classes are represented in the
// image by their hubs and must never be admitted directly.
type Class struct {
	object
	Name string
}

// TypeOf implements [Value].
func (v *Class) TypeOf() *Type { return nil }

// String implements [fmt.Stringer].
func (v *Class) String() string { return "class:" + v.Name }

// MethodPointer is a word-typed pointer to a compiled method. It is a
// relocation-bearing constant, not a heap object.
type MethodPointer struct {
	object
	Method *Method
}

// TypeOf implements [Value].
func (v *MethodPointer) TypeOf() *Type { return nil }

// String implements [fmt.Stringer].
func (v *MethodPointer) String() string { return "&" + v.Method.Name }

// Word is a raw word-typed host value. Words carry integers, not
// references, and must never be admitted as objects.
type Word struct {
	object
	Bits uint64
}

// TypeOf implements [Value].
func (v *Word) TypeOf() *Type { return nil }

// Constant is a build-time snapshot of one field or element value.
type Constant struct {
	Kind layout.Kind

	// Bits is the raw payload for primitive kinds.
	Bits uint64

	// Object is the referenced host value for Ref constants (nil for
	// null), or the [MethodPointer] for relocated word constants.
	Object Value
}

// BoolConstant returns a bool constant.
func BoolConstant(b bool) Constant {
	var bits uint64
	if b {
		bits = 1
	}
	return Constant{Kind: layout.Bool, Bits: bits}
}

// Int8Constant returns an int8 constant.
func Int8Constant(v int8) Constant { return Constant{Kind: layout.Int8, Bits: uint64(uint8(v))} }

// Int16Constant returns an int16 constant.
func Int16Constant(v int16) Constant { return Constant{Kind: layout.Int16, Bits: uint64(uint16(v))} }

// Int32Constant returns an int32 constant.
func Int32Constant(v int32) Constant { return Constant{Kind: layout.Int32, Bits: uint64(uint32(v))} }

// Int64Constant returns an int64 constant.
func Int64Constant(v int64) Constant { return Constant{Kind: layout.Int64, Bits: uint64(v)} }

// RefConstant returns a reference constant. v may be nil for null.
func RefConstant(v Value) Constant { return Constant{Kind: layout.Ref, Object: v} }

// MethodConstant returns a relocated method-pointer constant.
func MethodConstant(mp *MethodPointer) Constant {
	return Constant{Kind: layout.Word, Object: mp}
}

// IsNull reports whether this is a null reference.
func (c Constant) IsNull() bool { return c.Kind == layout.Ref && c.Object == nil }

// IsRelocatable reports whether this constant is a relocation-bearing
// pointer, i.e. a method pointer that the dynamic linker patches at load.
func (c Constant) IsRelocatable() bool {
	_, ok := c.Object.(*MethodPointer)
	return ok
}
