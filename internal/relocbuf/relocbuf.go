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

// Package relocbuf provides the output buffer the heap emitter writes
// into: byte-addressed primitive stores plus relocation records for the
// dynamic linker to resolve at load time.
package relocbuf

import (
	"encoding/binary"
	"fmt"
)

// Buffer is a fixed-size output region with relocation accounting.
//
// All primitive stores are little-endian and byte-addressed; the caller is
// responsible for alignment.
type Buffer struct {
	data []byte
	rels []Relocation
}

// Relocation is one record for the dynamic linker: patch Size bytes at
// Offset with the final address of Target (plus Addend, if present).
type Relocation struct {
	Offset int
	Size   int
	Target any

	Addend    int64
	HasAddend bool
}

// New returns a zeroed buffer of the given size.
func New(size int) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Len returns the buffer size.
func (b *Buffer) Len() int { return len(b.data) }

// Bytes returns the underlying bytes. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.data }

// Relocations returns all recorded relocations in emission order.
func (b *Buffer) Relocations() []Relocation { return b.rels }

// PutU8 stores an 8-bit value at index.
func (b *Buffer) PutU8(index int, v uint8) { b.data[index] = v }

// OrU8 ORs bits into the byte at index.
func (b *Buffer) OrU8(index int, bits uint8) { b.data[index] |= bits }

// PutU16 stores a 16-bit value at index.
func (b *Buffer) PutU16(index int, v uint16) {
	binary.LittleEndian.PutUint16(b.data[index:], v)
}

// PutU32 stores a 32-bit value at index.
func (b *Buffer) PutU32(index int, v uint32) {
	binary.LittleEndian.PutUint32(b.data[index:], v)
}

// PutU64 stores a 64-bit value at index.
func (b *Buffer) PutU64(index int, v uint64) {
	binary.LittleEndian.PutUint64(b.data[index:], v)
}

// PutUint stores a size-byte value at index. size must be 1, 2, 4 or 8.
func (b *Buffer) PutUint(index, size int, v uint64) {
	switch size {
	case 1:
		b.PutU8(index, uint8(v))
	case 2:
		b.PutU16(index, uint16(v))
	case 4:
		b.PutU32(index, uint32(v))
	case 8:
		b.PutU64(index, v)
	default:
		panic(fmt.Sprintf("imageheap: invalid store width %d", size))
	}
}

// U64 reads back a 64-bit value; used by tests.
func (b *Buffer) U64(index int) uint64 {
	return binary.LittleEndian.Uint64(b.data[index:])
}

// U32 reads back a 32-bit value.
func (b *Buffer) U32(index int) uint32 {
	return binary.LittleEndian.Uint32(b.data[index:])
}

// AddDirectRelocationWithoutAddend records a relocation at index whose
// patched value is the final address of target.
func (b *Buffer) AddDirectRelocationWithoutAddend(index, size int, target any) {
	b.rels = append(b.rels, Relocation{Offset: index, Size: size, Target: target})
}

// AddDirectRelocationWithAddend records a relocation at index whose
// patched value is the final address of target plus addend.
func (b *Buffer) AddDirectRelocationWithAddend(index, size int, addend int64, target any) {
	b.rels = append(b.rels, Relocation{
		Offset: index, Size: size, Target: target,
		Addend: addend, HasAddend: true,
	})
}
