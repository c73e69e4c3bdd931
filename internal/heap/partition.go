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

import "fmt"

// Partition is one homogeneous sub-region of the emitted heap: an
// append-only arena whose objects all share writability and content kind.
type Partition struct {
	name     string
	writable bool

	size            int
	prePad, postPad int
	count           int
	first, last     *ObjectInfo
	sectionName     string
	sectionOffset   int
	bound           bool
}

func newPartition(name string, writable bool) *Partition {
	return &Partition{name: name, writable: writable}
}

// Name returns the partition name.
func (p *Partition) Name() string { return p.name }

// Writable reports whether objects in this partition are mutated at
// runtime.
func (p *Partition) Writable() bool { return p.writable }

// Size returns the partition size in bytes, including padding.
func (p *Partition) Size() int { return p.size }

// Padding returns the pre- and post-padding inserted for section-boundary
// alignment.
func (p *Partition) Padding() (pre, post int) { return p.prePad, p.postPad }

// Count returns the number of objects allocated into this partition.
func (p *Partition) Count() int { return p.count }

// First returns the first object allocated into this partition, or nil.
func (p *Partition) First() *ObjectInfo { return p.first }

// Last returns the last object allocated into this partition, or nil.
func (p *Partition) Last() *ObjectInfo { return p.last }

// allocate hands out the next offset in this partition and grows it by
// info's size.
func (p *Partition) allocate(info *ObjectInfo) int {
	offset := p.size
	p.size += info.Size
	p.count++
	p.last = info
	if p.first == nil {
		p.first = info
	}
	return offset
}

func (p *Partition) addPrePad(n int) {
	p.prePad += n
	p.size += n
}

func (p *Partition) addPostPad(n int) {
	p.postPad += n
	p.size += n
}

// setSection binds this partition into its enclosing linker section.
func (p *Partition) setSection(name string, offset int) {
	if p.bound {
		panic(fmt.Sprintf("imageheap: partition %s assigned to section twice", p.name))
	}
	p.bound = true
	p.sectionName = name
	p.sectionOffset = offset
}

// Section returns the enclosing section name and this partition's offset
// within it. Panics if the partition was never bound.
func (p *Partition) Section() (string, int) {
	if !p.bound {
		panic(fmt.Sprintf("imageheap: partition %s not assigned to a section", p.name))
	}
	return p.sectionName, p.sectionOffset
}

// OffsetInSection converts a partition-relative offset to a
// section-relative one.
func (p *Partition) OffsetInSection(offset int) int {
	_, base := p.Section()
	return base + offset
}

// String implements [fmt.Stringer].
func (p *Partition) String() string {
	return fmt.Sprintf("%s(%d objects, %d bytes)", p.name, p.count, p.size)
}
