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

package imageheap

import (
	"os"

	"buf.build/go/imageheap/internal/heap"
	"buf.build/go/imageheap/internal/hosted"
	"buf.build/go/imageheap/internal/layout"
	"buf.build/go/imageheap/internal/manifest"
	"buf.build/go/imageheap/internal/relocbuf"
)

// Builder drives one image heap build for a universe of analyzed host
// objects.
type Builder struct {
	opts   Options
	oracle *layout.Oracle
	heap   *heap.Heap
}

// NewBuilder returns a builder over the given analysis universe.
func NewBuilder(u *hosted.Universe, opts Options) *Builder {
	oracle := &layout.Oracle{
		ReferenceSize:      opts.ReferenceSize,
		Alignment:          opts.Alignment,
		ReservedHeaderBits: opts.ReservedHeaderBits,
		Compression: layout.Encoding{
			Shift:   opts.CompressionShift,
			HasBase: opts.SpawnIsolates,
		},
	}
	return &Builder{
		opts:   opts,
		oracle: oracle,
		heap: heap.New(u, oracle, heap.Config{
			UseOnlyWritableHeap: opts.UseOnlyWritableBootImageHeap,
		}),
	}
}

// RegisterBoundarySingleton registers the runtime singleton whose fields
// are patched with each partition's first and last object.
func (b *Builder) RegisterBoundarySingleton(v *hosted.Instance) {
	b.heap.RegisterBoundarySingleton(v)
}

// RegisterInternSupport registers the runtime singleton that publishes the
// canonical interned-strings array.
func (b *Builder) RegisterInternSupport(table *hosted.Instance, arrayType *hosted.Type) {
	b.heap.RegisterInternSupport(table, arrayType)
}

// RegisterAsImmutable marks v as immutable for partition selection.
func (b *Builder) RegisterAsImmutable(v hosted.Value) { b.heap.RegisterAsImmutable(v) }

// AddInitialObjects opens admission and seeds the discovery traversal.
func (b *Builder) AddInitialObjects(roots ...heap.Root) error {
	return b.heap.AddInitialObjects(roots...)
}

// AddObject schedules one more object for admission; label names the root
// for diagnostics. Errors surface on the next drain.
func (b *Builder) AddObject(v hosted.Value, immutable bool, label string) {
	b.heap.AddObject(v, immutable, label)
}

// ProcessWorklist drains pending admissions.
func (b *Builder) ProcessWorklist() error { return b.heap.ProcessWorklist() }

// AddTrailingObjects publishes the interned-strings table and closes
// admission.
func (b *Builder) AddTrailingObjects() error { return b.heap.AddTrailingObjects() }

// AlignRelocatablePartition pads partitions so the relocatable region
// starts and ends on an alignment boundary.
func (b *Builder) AlignRelocatablePartition(alignment int) {
	b.heap.AlignRelocatablePartition(alignment)
}

// SetReadOnlySection binds the read-only partitions into the named linker
// section at the given base offset.
func (b *Builder) SetReadOnlySection(name string, base int) {
	b.heap.SetReadOnlySection(name, base)
}

// SetWritableSection binds the writable partitions into the named linker
// section at the given base offset.
func (b *Builder) SetWritableSection(name string, base int) {
	b.heap.SetWritableSection(name, base)
}

// ReadOnlySectionSize returns the total read-only section size.
func (b *Builder) ReadOnlySectionSize() int { return b.heap.ReadOnlySectionSize() }

// WritableSectionSize returns the total writable section size.
func (b *Builder) WritableSectionSize() int { return b.heap.WritableSectionSize() }

// ReadOnlyRelocatablePartitionSize returns the relocatable partition size.
func (b *Builder) ReadOnlyRelocatablePartitionSize() int {
	return b.heap.ReadOnlyRelocatablePartitionSize()
}

// FirstRelocatablePointerOffsetInSection returns the section offset of the
// first emitted relocation, or -1.
func (b *Builder) FirstRelocatablePointerOffsetInSection() int {
	return b.heap.FirstRelocatablePointerOffsetInSection()
}

// ObjectInfo returns the descriptor of an admitted object, or nil.
func (b *Builder) ObjectInfo(v hosted.Value) *heap.ObjectInfo { return b.heap.ObjectInfo(v) }

// Partitions returns the five partitions in section order.
func (b *Builder) Partitions() []*heap.Partition { return b.heap.Partitions() }

// NewBuffers allocates output buffers sized for the bound sections.
func (b *Builder) NewBuffers() (ro, w *relocbuf.Buffer) {
	return relocbuf.New(b.heap.ReadOnlySectionSize()), relocbuf.New(b.heap.WritableSectionSize())
}

// Write emits every admitted object into the buffers, patches partition
// boundaries, and returns the build manifest.
func (b *Builder) Write(ro, w *relocbuf.Buffer) (*manifest.Manifest, error) {
	if err := b.heap.Write(ro, w); err != nil {
		return nil, err
	}

	m := manifest.New()
	for _, p := range b.heap.Partitions() {
		pre, post := p.Padding()
		m.Partitions = append(m.Partitions, manifest.Partition{
			Name: p.Name(), Size: p.Size(), PrePad: pre, PostPad: post, Count: p.Count(),
		})
	}
	m.Relocations = len(ro.Relocations()) + len(w.Relocations())
	m.FirstRelocatableOffset = b.heap.FirstRelocatablePointerOffsetInSection()

	out := b.opts.ReportWriter
	if out == nil {
		out = os.Stdout
	}
	if b.opts.PrintHeapHistogram {
		b.heap.Histogram().Print(out)
	}
	if b.opts.PrintImageHeapPartitionSizes {
		b.heap.PrintPartitionSizes(out)
	}
	return m, nil
}
