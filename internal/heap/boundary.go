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
	"buf.build/go/imageheap/internal/relocbuf"
)

// patchBoundaries overwrites the boundary singleton's fields with the
// first and last objects of each partition, now that every offset is
// known. Runtime code walks partition ranges through these fields.
func (h *Heap) patchBoundaries(ro, w *relocbuf.Buffer) error {
	if h.boundary == nil {
		return nil
	}
	info := h.objects[h.boundary]
	if info == nil {
		h.log("boundary", "singleton not admitted, skipped")
		return nil
	}
	buf := ro
	if info.partition.writable {
		buf = w
	}

	first := func(p *Partition) *ObjectInfo { return p.first }
	last := func(p *Partition) *ObjectInfo { return p.last }
	or := func(a, b *ObjectInfo) *ObjectInfo {
		if a != nil {
			return a
		}
		return b
	}

	// The read-only-reference boundaries span the union of the reference
	// and relocatable partitions; if one is empty, the other's
	// boundaries stand in.
	patches := []struct {
		field  string
		object *ObjectInfo
	}{
		{"firstReadOnlyPrimitiveObject", first(h.readOnlyPrimitive)},
		{"lastReadOnlyPrimitiveObject", last(h.readOnlyPrimitive)},
		{"firstReadOnlyReferenceObject", or(first(h.readOnlyReference), first(h.readOnlyRelocatable))},
		{"lastReadOnlyReferenceObject", or(last(h.readOnlyRelocatable), last(h.readOnlyReference))},
		{"firstWritablePrimitiveObject", first(h.writablePrimitive)},
		{"lastWritablePrimitiveObject", last(h.writablePrimitive)},
		{"firstWritableReferenceObject", first(h.writableReference)},
		{"lastWritableReferenceObject", last(h.writableReference)},
	}

	for _, patch := range patches {
		f := h.boundary.Type.FieldByName(patch.field)
		if f == nil || !f.HasLocation || patch.object == nil {
			h.log("boundary", "%s is null, skipped", patch.field)
			continue
		}
		idx := info.OffsetInSection() + f.Location
		if err := h.writeReference(buf, idx, patch.object.Object, info); err != nil {
			return err
		}
	}
	return nil
}
