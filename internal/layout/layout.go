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

// Package layout answers all byte-layout questions for the image heap:
// alignment, object sizes, and the offsets of the header, hash code, and
// array elements.
//
// Everything in this package is a pure function of the [Oracle]'s
// configuration; nothing here carries build state.
package layout

// RoundUp rounds n up to the next multiple of align. align must be a power
// of two.
func RoundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// Padding returns the number of bytes needed to round n up to the next
// multiple of align. align must be a power of two.
func Padding(n, align int) int {
	return RoundUp(n, align) - n
}

// IsAligned reports whether n is a multiple of align. align must be a power
// of two.
func IsAligned(n, align int) bool {
	return n&(align-1) == 0
}

// Kind classifies the storage of a single field or array element.
type Kind uint8

const (
	Bool Kind = iota
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	Ref  // A reference to another heap object.
	Word // A raw machine word; never a reference.
)

// String implements [fmt.Stringer].
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Ref:
		return "ref"
	case Word:
		return "word"
	default:
		return "invalid"
	}
}

// Encoding describes how references are compressed in the emitted heap.
//
// When HasBase is set, references are stored as section offsets shifted
// right by Shift, and the loader reconstructs them by a shift-and-add
// against the heap base. When unset, every reference is backed by a
// relocation record instead.
type Encoding struct {
	Shift   uint32
	HasBase bool
}

// Oracle answers layout queries for a fixed target configuration.
type Oracle struct {
	// ReferenceSize is the width of an object reference: 4 or 8.
	ReferenceSize int

	// Alignment is the alignment of every object start and size.
	Alignment int

	// ReservedHeaderBits are bits the runtime reserves in the object
	// header word. When nonzero, the compression shift is not applied to
	// the header, because the reserved bits occupy the low end.
	ReservedHeaderBits uint64

	Compression Encoding
}

// SizeOf returns the storage size of a value of kind k in bytes.
func (o *Oracle) SizeOf(k Kind) int {
	switch k {
	case Bool, Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	case Ref, Word:
		return o.ReferenceSize
	default:
		panic("imageheap: unknown storage kind")
	}
}

// Align rounds n up to the object alignment.
func (o *Oracle) Align(n int) int { return RoundUp(n, o.Alignment) }

// IsAligned reports whether n is object-aligned.
func (o *Oracle) IsAligned(n int) bool { return IsAligned(n, o.Alignment) }

// HubOffset returns the offset of the hub header word. The header is the
// first word of every object.
func (o *Oracle) HubOffset() int { return 0 }

// ArrayLengthOffset returns the offset of an array's length field.
func (o *Oracle) ArrayLengthOffset() int { return o.ReferenceSize }

// ArrayHashOffset returns the offset of an array's identity hash field.
func (o *Oracle) ArrayHashOffset() int { return o.ReferenceSize + 4 }

// ArrayBaseOffset returns the offset of the first element of an array with
// elements of kind k.
func (o *Oracle) ArrayBaseOffset(k Kind) int {
	return RoundUp(o.ReferenceSize+8, o.SizeOf(k))
}

// ArrayElementOffset returns the offset of element i of an array with
// elements of kind k.
func (o *Oracle) ArrayElementOffset(k Kind, i int) int {
	return o.ArrayBaseOffset(k) + i*o.SizeOf(k)
}

// ArraySize returns the total aligned size of an array of n elements of
// kind k.
func (o *Oracle) ArraySize(k Kind, n int) int {
	return o.Align(o.ArrayBaseOffset(k) + n*o.SizeOf(k))
}

// InstanceSize returns the total aligned size of an instance whose layout
// encoding declares the given raw size.
func (o *Oracle) InstanceSize(encoded int) int {
	return o.Align(encoded)
}

// ObjectHeader packs the hub's section offset into the header word stored
// at [Oracle.HubOffset].
//
// When the runtime reserves header bits the offset is stored unshifted and
// OR'd with the reserved bits; otherwise it is shifted like any other
// compressed reference.
func (o *Oracle) ObjectHeader(hubOffsetInSection int) uint64 {
	bits := uint64(hubOffsetInSection)
	if o.ReservedHeaderBits != 0 {
		return bits | o.ReservedHeaderBits
	}
	return bits >> o.Compression.Shift
}
