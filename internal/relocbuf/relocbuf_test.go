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

package relocbuf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/imageheap/internal/relocbuf"
)

func TestPuts(t *testing.T) {
	t.Parallel()

	b := relocbuf.New(32)
	require.Equal(t, 32, b.Len())

	b.PutU8(0, 0xab)
	b.PutU16(2, 0x1234)
	b.PutU32(4, 0xdeadbeef)
	b.PutU64(8, 0x0102030405060708)

	assert.Equal(t, []byte{0xab, 0, 0x34, 0x12, 0xef, 0xbe, 0xad, 0xde}, b.Bytes()[:8])
	assert.Equal(t, uint64(0x0102030405060708), b.U64(8))

	b.PutUint(16, 4, 0x44332211)
	assert.Equal(t, uint32(0x44332211), b.U32(16))

	b.OrU8(1, 0x09)
	b.OrU8(1, 0x02)
	assert.Equal(t, byte(0x0b), b.Bytes()[1])
}

func TestRelocations(t *testing.T) {
	t.Parallel()

	b := relocbuf.New(64)
	b.AddDirectRelocationWithoutAddend(8, 8, "target-a")
	b.AddDirectRelocationWithAddend(24, 8, 3, "target-b")

	rels := b.Relocations()
	require.Len(t, rels, 2)
	assert.Equal(t, relocbuf.Relocation{Offset: 8, Size: 8, Target: "target-a"}, rels[0])
	assert.Equal(t, relocbuf.Relocation{
		Offset: 24, Size: 8, Target: "target-b", Addend: 3, HasAddend: true,
	}, rels[1])
}

func TestInvalidWidth(t *testing.T) {
	t.Parallel()

	b := relocbuf.New(8)
	assert.Panics(t, func() { b.PutUint(0, 3, 1) })
}
