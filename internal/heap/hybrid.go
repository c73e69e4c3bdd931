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

package heap

import (
	"fmt"

	"buf.build/go/imageheap/internal/hosted"
	"buf.build/go/imageheap/internal/layout"
)

// hybridLayout describes a type that inlines a tail array and optional bit
// set into the instance, so the whole structure occupies one contiguous
// region. Layouts are cached per type.
type hybridLayout struct {
	arrayField  *hosted.Field
	bitsetField *hosted.Field // nil if the type has no bit set

	elementKind layout.Kind

	bitFieldOffset    int
	arrayLengthOffset int
	elementBase       int
}

func (h *Heap) hybridLayoutFor(t *hosted.Type) *hybridLayout {
	if hl, ok := h.hybrids[t]; ok {
		return hl
	}
	if t.HybridArrayField == nil {
		panic(fmt.Sprintf("imageheap: hybrid type %v has no tail array field", t))
	}

	o := h.oracle
	hl := &hybridLayout{
		arrayField:  t.HybridArrayField,
		bitsetField: t.HybridBitsetField,
		elementKind: t.HybridElementKind,
	}

	// The bit set sits after the declared instance fields; the length
	// word and tail elements follow it.
	hl.bitFieldOffset = t.RawSize
	bitsetBytes := 0
	if hl.bitsetField != nil {
		bitsetBytes = t.HybridBitsetBytes
	}
	hl.arrayLengthOffset = layout.RoundUp(hl.bitFieldOffset+bitsetBytes, 4)
	hl.elementBase = layout.RoundUp(hl.arrayLengthOffset+4, o.SizeOf(hl.elementKind))

	h.hybrids[t] = hl
	return hl
}

// elementOffset returns the instance-relative offset of tail element i.
func (hl *hybridLayout) elementOffset(o *layout.Oracle, i int) int {
	return hl.elementBase + i*o.SizeOf(hl.elementKind)
}

// totalSize returns the aligned size of a hybrid instance with an
// n-element tail.
func (hl *hybridLayout) totalSize(o *layout.Oracle, n int) int {
	return o.Align(hl.elementBase + n*o.SizeOf(hl.elementKind))
}
