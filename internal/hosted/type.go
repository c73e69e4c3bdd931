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

// Package hosted models the build-time side of the image: live host
// objects, their analysis-time type metadata, and the universe that maps
// one to the other.
//
// Host objects are compared by identity, never structurally. Every
// container in this module that is keyed on a [Value] relies on the fact
// that all values are pointers, so Go map equality degenerates to pointer
// identity.
package hosted

import (
	"buf.build/go/imageheap/internal/layout"
)

// TypeKind classifies a [Type].
type TypeKind uint8

const (
	InstanceType TypeKind = iota
	ArrayType
	PrimitiveType
)

// Type is the analysis-time metadata for a host type.
//
// Types are produced by static analysis before heap building begins; the
// heap builder only reads them.
type Type struct {
	Name string
	Kind TypeKind

	// Hub is the runtime metadata object for this type. Every admitted
	// object's header references its type's hub.
	Hub *Hub

	// Fields are the instance fields, in declaration order. Field.Index
	// matches the position in this slice.
	Fields []*Field

	// Component is the element type for array types.
	Component *Type
	// ComponentKind is the element storage kind for array types.
	ComponentKind layout.Kind

	// RawSize is the layout encoding's instance size, before alignment.
	RawSize int

	// IsInstantiated records whether analysis saw an instance of this
	// type. Admitting an object of a non-instantiated type is the
	// canonical sign of a hosted cache mutated during build.
	IsInstantiated bool

	// IsHybrid marks types that inline a tail array (and optional bit
	// set) into the instance.
	IsHybrid          bool
	HybridArrayField  *Field
	HybridBitsetField *Field
	// HybridElementKind is the storage kind of the inlined tail's
	// elements.
	HybridElementKind layout.Kind
	// HybridBitsetBytes is the number of bytes reserved for the inlined
	// bit set.
	HybridBitsetBytes int

	// MonitorOffset is the offset of the runtime monitor slot, or 0 if
	// the type has none. The monitor is a reference written at runtime.
	MonitorOffset int

	// IdentityHashOffset is the offset of the identity hash field
	// declared by this type's hub, or 0 if instances carry no hash.
	IdentityHashOffset int
}

// FieldByName returns the field with the given name, or nil.
func (t *Type) FieldByName(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// String implements [fmt.Stringer].
func (t *Type) String() string { return t.Name }

// Field is the analysis-time metadata for one instance field.
type Field struct {
	Name string
	Kind layout.Kind

	// Index is the position of this field in Type.Fields.
	Index int

	// Location is the byte offset of this field within the instance.
	// Only meaningful when HasLocation is set; fields that analysis
	// folded away have no location and are never materialized.
	Location    int
	HasLocation bool

	IsAccessed bool
	IsWritten  bool
	IsFinal    bool
}

// ReadValue reads the build-time constant stored in this field of recv.
func (f *Field) ReadValue(recv Value) Constant {
	h, ok := recv.(interface{ fieldSlots() []Constant })
	if !ok {
		panic("imageheap: field read on a host value without fields")
	}
	return h.fieldSlots()[f.Index]
}

// Method is a compiled-method handle. Method pointers stored in the heap
// must refer to methods with known compilation status.
type Method struct {
	Name     string
	Compiled bool
}
