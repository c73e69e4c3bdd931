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

// Package hostedtest builds small analyzed universes for heap-builder
// tests: a hub type, string machinery, and helpers for declaring
// instance and array types with their hubs wired up.
package hostedtest

import (
	"buf.build/go/imageheap/internal/hosted"
	"buf.build/go/imageheap/internal/layout"
)

// World is a miniature analysis universe.
type World struct {
	Universe *hosted.Universe

	HubType         *hosted.Type
	StringType      *hosted.Type
	CharArrayType   *hosted.Type
	StringArrayType *hosted.Type
	ByteArrayType   *hosted.Type
}

// FieldSpec declares one instance field for [World.NewInstanceType].
type FieldSpec struct {
	Name    string
	Kind    layout.Kind
	Offset  int
	Written bool
	Final   bool
}

// New returns a world with the well-known types populated.
func New() *World {
	u := hosted.NewUniverse()
	w := &World{Universe: u}

	w.HubType = &hosted.Type{
		Name:           "hub",
		Kind:           hosted.InstanceType,
		RawSize:        16,
		IsInstantiated: true,
	}
	u.HubType = w.HubType
	u.NewHub(w.HubType, &hosted.Class{Name: "hub"}, true)

	w.CharArrayType = w.NewArrayType("char[]", layout.Int16, nil)
	w.StringType = w.NewInstanceType("string",
		FieldSpec{Name: "value", Kind: layout.Ref, Offset: 8, Final: true},
		FieldSpec{Name: "hash", Kind: layout.Int32, Offset: 16, Written: true},
	)
	u.StringType = w.StringType
	u.CharArrayType = w.CharArrayType

	w.StringArrayType = w.NewArrayType("string[]", layout.Ref, w.StringType)
	w.ByteArrayType = w.NewArrayType("byte[]", layout.Int8, nil)

	return w
}

// NewInstanceType declares an instantiated instance type with the given
// fields and a fresh hub. The raw size is derived from the last field
// unless the caller overrides it.
func (w *World) NewInstanceType(name string, fields ...FieldSpec) *hosted.Type {
	t := &hosted.Type{
		Name:           name,
		Kind:           hosted.InstanceType,
		IsInstantiated: true,
	}
	size := 8
	for i, fs := range fields {
		t.Fields = append(t.Fields, &hosted.Field{
			Name:        fs.Name,
			Kind:        fs.Kind,
			Index:       i,
			Location:    fs.Offset,
			HasLocation: true,
			IsAccessed:  true,
			IsWritten:   fs.Written,
			IsFinal:     fs.Final,
		})
		size = max(size, fs.Offset+8)
	}
	t.RawSize = size
	w.Universe.NewHub(t, &hosted.Class{Name: name}, true)
	return t
}

// NewArrayType declares an array type with a fresh hub.
func (w *World) NewArrayType(name string, kind layout.Kind, component *hosted.Type) *hosted.Type {
	t := &hosted.Type{
		Name:           name,
		Kind:           hosted.ArrayType,
		Component:      component,
		ComponentKind:  kind,
		IsInstantiated: true,
	}
	w.Universe.NewHub(t, &hosted.Class{Name: name}, true)
	return t
}

// NewBoundaryType declares the partition-boundary singleton type with its
// eight patchable reference fields.
func (w *World) NewBoundaryType() *hosted.Type {
	names := []string{
		"firstReadOnlyPrimitiveObject", "lastReadOnlyPrimitiveObject",
		"firstReadOnlyReferenceObject", "lastReadOnlyReferenceObject",
		"firstWritablePrimitiveObject", "lastWritablePrimitiveObject",
		"firstWritableReferenceObject", "lastWritableReferenceObject",
	}
	fields := make([]FieldSpec, len(names))
	for i, name := range names {
		fields[i] = FieldSpec{Name: name, Kind: layout.Ref, Offset: 8 + 8*i, Written: true}
	}
	return w.NewInstanceType("imageHeapInfo", fields...)
}

// NewInternTableType declares the interned-strings singleton type.
func (w *World) NewInternTableType() *hosted.Type {
	return w.NewInstanceType("stringInternSupport",
		FieldSpec{Name: "imageInternedStrings", Kind: layout.Ref, Offset: 8},
	)
}

// Oracle returns the standard test oracle: 8-byte references, 8-byte
// alignment, and the given compression shift and heap-base setting.
func Oracle(shift uint32, hasBase bool) *layout.Oracle {
	return &layout.Oracle{
		ReferenceSize: 8,
		Alignment:     8,
		Compression:   layout.Encoding{Shift: shift, HasBase: hasBase},
	}
}
