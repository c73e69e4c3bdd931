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

package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"buf.build/go/imageheap/internal/layout"
)

func TestAlign(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 8, layout.RoundUp(8, 8))
	assert.Equal(t, 16, layout.RoundUp(9, 8))
	assert.Equal(t, 16, layout.RoundUp(15, 8))
	assert.Equal(t, 16, layout.RoundUp(16, 8))

	assert.Equal(t, 0, layout.Padding(8, 8))
	assert.Equal(t, 7, layout.Padding(9, 8))
	assert.Equal(t, 1, layout.Padding(15, 8))
	assert.Equal(t, 0, layout.Padding(16, 8))

	assert.True(t, layout.IsAligned(0, 8))
	assert.True(t, layout.IsAligned(64, 8))
	assert.False(t, layout.IsAligned(4, 8))
}

func TestOracleOffsets(t *testing.T) {
	t.Parallel()

	o := &layout.Oracle{ReferenceSize: 8, Alignment: 8}

	assert.Equal(t, 0, o.HubOffset())
	assert.Equal(t, 8, o.ArrayLengthOffset())
	assert.Equal(t, 12, o.ArrayHashOffset())

	assert.Equal(t, 16, o.ArrayBaseOffset(layout.Int8))
	assert.Equal(t, 16, o.ArrayBaseOffset(layout.Ref))
	assert.Equal(t, 19, o.ArrayElementOffset(layout.Int8, 3))
	assert.Equal(t, 32, o.ArrayElementOffset(layout.Ref, 2))

	// Three bytes of elements round up to a full alignment unit.
	assert.Equal(t, 24, o.ArraySize(layout.Int8, 3))
	assert.Equal(t, 16, o.ArraySize(layout.Int8, 0))
	assert.Equal(t, 32, o.ArraySize(layout.Ref, 2))

	assert.Equal(t, 24, o.InstanceSize(17))
	assert.Equal(t, 16, o.InstanceSize(16))
}

func TestOracleNarrowReferences(t *testing.T) {
	t.Parallel()

	o := &layout.Oracle{ReferenceSize: 4, Alignment: 8}
	assert.Equal(t, 4, o.ArrayLengthOffset())
	assert.Equal(t, 8, o.ArrayHashOffset())
	assert.Equal(t, 12, o.ArrayBaseOffset(layout.Ref))
	assert.Equal(t, 4, o.SizeOf(layout.Word))
}

func TestObjectHeader(t *testing.T) {
	t.Parallel()

	shifted := &layout.Oracle{
		ReferenceSize: 8,
		Alignment:     8,
		Compression:   layout.Encoding{Shift: 3, HasBase: true},
	}
	assert.Equal(t, uint64(0x100>>3), shifted.ObjectHeader(0x100))

	// Reserved header bits suppress the shift: the reserved bits occupy
	// the low end of the word.
	reserved := &layout.Oracle{
		ReferenceSize:      8,
		Alignment:          8,
		ReservedHeaderBits: 0b101,
		Compression:        layout.Encoding{Shift: 3, HasBase: true},
	}
	assert.Equal(t, uint64(0x100|0b101), reserved.ObjectHeader(0x100))
}
