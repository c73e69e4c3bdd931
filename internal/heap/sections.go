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

	"buf.build/go/imageheap/internal/layout"
)

// SetReadOnlySection binds the read-only partitions into the named
// section, each at the byte offset immediately following its predecessor.
func (h *Heap) SetReadOnlySection(name string, base int) {
	h.bindSection(name, base, h.readOnlyPrimitive, h.readOnlyReference, h.readOnlyRelocatable)
}

// SetWritableSection binds the writable partitions into the named section.
func (h *Heap) SetWritableSection(name string, base int) {
	h.bindSection(name, base, h.writablePrimitive, h.writableReference)
}

func (h *Heap) bindSection(name string, base int, parts ...*Partition) {
	if !h.oracle.IsAligned(base) {
		panic(fmt.Sprintf("imageheap: section %s base %#x is not aligned", name, base))
	}
	offset := base
	for _, p := range parts {
		p.setSection(name, offset)
		offset += p.size
	}
}

// AlignRelocatablePartition pads the read-only partitions so the
// relocatable region starts and ends on an alignment boundary. This keeps
// the page range the dynamic linker must patch as small as possible.
//
// Must be called after admission is closed and before the read-only
// section is bound.
func (h *Heap) AlignRelocatablePartition(alignment int) {
	pre := layout.Padding(h.readOnlyPrimitive.size+h.readOnlyReference.size, alignment)
	h.readOnlyPrimitive.addPrePad(pre)
	post := layout.Padding(h.readOnlyRelocatable.size, alignment)
	h.readOnlyRelocatable.addPostPad(post)
}

// ReadOnlySectionSize returns the total size of the read-only partitions.
func (h *Heap) ReadOnlySectionSize() int {
	return h.readOnlyPrimitive.size + h.readOnlyReference.size + h.readOnlyRelocatable.size
}

// WritableSectionSize returns the total size of the writable partitions.
func (h *Heap) WritableSectionSize() int {
	return h.writablePrimitive.size + h.writableReference.size
}

// ReadOnlyRelocatablePartitionSize returns the size of the relocatable
// partition.
func (h *Heap) ReadOnlyRelocatablePartitionSize() int {
	return h.readOnlyRelocatable.size
}

// FirstRelocatablePointerOffsetInSection returns the section offset of the
// first emitted relocation, or -1 if none were emitted.
func (h *Heap) FirstRelocatablePointerOffsetInSection() int {
	return h.firstRelocPtr
}
