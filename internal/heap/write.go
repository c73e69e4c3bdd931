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
	"buf.build/go/imageheap/internal/relocbuf"
)

// Write emits every admitted object into the read-only or writable buffer
// and then patches the partition boundary fields. Admission must be
// closed; the object set is frozen from here on.
func (h *Heap) Write(ro, w *relocbuf.Buffer) error {
	if !h.addObjects.Closed() {
		panic("imageheap: heap written before admission was closed")
	}

	for _, info := range h.order {
		buf := ro
		if info.partition.writable {
			buf = w
		}
		if err := h.writeObject(buf, info); err != nil {
			return err
		}
	}

	return h.patchBoundaries(ro, w)
}

func (h *Heap) writeObject(buf *relocbuf.Buffer, info *ObjectInfo) error {
	o := h.oracle
	base := info.OffsetInSection()

	hubInfo, err := h.admitted(info.Type.Hub, info)
	if err != nil {
		return err
	}

	// The header word encodes the hub reference. Without a heap base the
	// loader patches it; the addend carries the reserved header bits.
	if o.Compression.HasBase {
		buf.PutUint(base+o.HubOffset(), o.ReferenceSize, o.ObjectHeader(hubInfo.OffsetInSection()))
	} else {
		h.emitRelocation(buf, base+o.HubOffset(), hubInfo, int64(o.ReservedHeaderBits), true)
	}

	switch info.Type.Kind {
	case hosted.InstanceType:
		for _, f := range info.Type.Fields {
			if !f.IsAccessed || !f.HasLocation {
				continue
			}
			if f == info.Type.HybridArrayField || f == info.Type.HybridBitsetField {
				continue
			}
			if err := h.writeConstant(buf, base+f.Location, f.ReadValue(info.Object), info); err != nil {
				return err
			}
		}

		if info.Type.IsHybrid {
			if err := h.writeHybrid(buf, base, info); err != nil {
				return err
			}
		}

		if off := info.Type.IdentityHashOffset; off > 0 {
			buf.PutU32(base+off, uint32(info.IdentityHash))
		}

	case hosted.ArrayType:
		arr := info.Object.(*hosted.Array)
		buf.PutU32(base+o.ArrayLengthOffset(), uint32(arr.Len()))
		buf.PutU32(base+o.ArrayHashOffset(), uint32(info.IdentityHash))
		for i, c := range arr.Elems {
			idx := base + o.ArrayElementOffset(info.Type.ComponentKind, i)
			if err := h.writeConstant(buf, idx, c, info); err != nil {
				return err
			}
		}
	}

	return nil
}

// writeHybrid emits the inlined bit set, tail length, and tail elements of
// a hybrid instance.
func (h *Heap) writeHybrid(buf *relocbuf.Buffer, base int, info *ObjectInfo) error {
	o := h.oracle
	hl := h.hybridLayoutFor(info.Type)

	if hl.bitsetField != nil {
		if c := hl.bitsetField.ReadValue(info.Object); !c.IsNull() {
			words := c.Object.(*hosted.Array)
			wordBits := o.SizeOf(words.Type.ComponentKind) * 8
			for wi, wc := range words.Elems {
				for b := 0; b < wordBits; b++ {
					if wc.Bits&(1<<b) == 0 {
						continue
					}
					bit := wi*wordBits + b
					buf.OrU8(base+hl.bitFieldOffset+bit/8, 1<<(bit%8))
				}
			}
		}
	}

	c := hl.arrayField.ReadValue(info.Object)
	if c.IsNull() {
		buf.PutU32(base+hl.arrayLengthOffset, 0)
		return nil
	}
	tail := c.Object.(*hosted.Array)
	buf.PutU32(base+hl.arrayLengthOffset, uint32(tail.Len()))
	for i, e := range tail.Elems {
		if err := h.writeConstant(buf, base+hl.elementOffset(o, i), e, info); err != nil {
			return err
		}
	}
	return nil
}

// writeConstant serializes one field or element value: primitives as
// endian-correct fixed-width stores, method pointers as relocations, and
// object references through [Heap.writeReference].
func (h *Heap) writeConstant(buf *relocbuf.Buffer, idx int, c hosted.Constant, src *ObjectInfo) error {
	if c.IsRelocatable() {
		mp := c.Object.(*hosted.MethodPointer)
		if !mp.Method.Compiled {
			panic(fmt.Sprintf("imageheap: relocated pointer to method %s without compiled code", mp.Method.Name))
		}
		h.emitRelocation(buf, idx, mp.Method, 0, false)
		return nil
	}
	if c.Kind == layout.Ref {
		return h.writeReference(buf, idx, c.Object, src)
	}
	buf.PutUint(idx, h.oracle.SizeOf(c.Kind), c.Bits)
	return nil
}

// writeReference stores a reference to target at idx: the shifted section
// offset under a heap base, a direct relocation otherwise. Null references
// stay zero.
func (h *Heap) writeReference(buf *relocbuf.Buffer, idx int, target hosted.Value, src *ObjectInfo) error {
	o := h.oracle
	if !layout.IsAligned(idx, o.ReferenceSize) {
		panic(fmt.Sprintf("imageheap: unaligned reference write at %#x", idx))
	}
	if target == nil {
		return nil
	}
	tInfo, err := h.admitted(target, src)
	if err != nil {
		return err
	}
	if o.Compression.HasBase {
		buf.PutUint(idx, o.ReferenceSize, uint64(tInfo.OffsetInSection())>>o.Compression.Shift)
	} else {
		h.emitRelocation(buf, idx, tInfo, 0, false)
	}
	return nil
}

// emitRelocation records a direct relocation and enforces the relocation
// accounting: under a heap base every relocation must land inside the
// relocatable partition so the dynamic linker touches a minimal page
// range.
func (h *Heap) emitRelocation(buf *relocbuf.Buffer, idx int, target any, addend int64, hasAddend bool) {
	o := h.oracle
	if hasAddend {
		buf.AddDirectRelocationWithAddend(idx, o.ReferenceSize, addend, target)
	} else {
		buf.AddDirectRelocationWithoutAddend(idx, o.ReferenceSize, target)
	}

	if o.Compression.HasBase {
		start := h.readOnlyRelocatable.OffsetInSection(0)
		end := start + h.readOnlyRelocatable.size
		if idx < start || idx+o.ReferenceSize > end {
			panic(fmt.Sprintf(
				"imageheap: relocation at %#x outside the relocatable partition [%#x, %#x)", idx, start, end))
		}
	}
	if h.firstRelocPtr < 0 {
		h.firstRelocPtr = idx
	}
}

// admitted returns the descriptor of target, or a post-analysis drift
// error: a reference to an unadmitted object means the source object was
// mutated after analysis.
func (h *Heap) admitted(target hosted.Value, src *ObjectInfo) (*ObjectInfo, error) {
	info := h.objects[target]
	if info == nil {
		return nil, &BuildError{
			Object: target,
			Cause: fmt.Sprintf(
				"%v was not discovered during analysis but is referenced from %v; the source object changed after analysis",
				target, src.Object),
			chain: src.ReasonChain(),
		}
	}
	return info, nil
}
