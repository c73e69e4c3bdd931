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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseGate(t *testing.T) {
	t.Parallel()

	g := PhaseGate{name: "test"}
	assert.False(t, g.Active())
	assert.Panics(t, func() { g.Check() })
	assert.Panics(t, func() { g.Disallow() })

	g.Allow()
	assert.True(t, g.Active())
	assert.NotPanics(t, func() { g.Check() })
	assert.Panics(t, func() { g.Allow() })

	g.Disallow()
	assert.False(t, g.Active())
	assert.True(t, g.Closed())
	assert.Panics(t, func() { g.Check() })
	assert.Panics(t, func() { g.Allow() })
	assert.Panics(t, func() { g.Disallow() })
}

func TestPartitionAllocate(t *testing.T) {
	t.Parallel()

	p := newPartition("test", false)
	a := &ObjectInfo{Size: 24}
	b := &ObjectInfo{Size: 16}

	assert.Equal(t, 0, p.allocate(a))
	assert.Equal(t, 24, p.allocate(b))
	assert.Equal(t, 40, p.Size())
	assert.Equal(t, 2, p.Count())
	assert.Same(t, a, p.First())
	assert.Same(t, b, p.Last())
}

func TestPartitionPadding(t *testing.T) {
	t.Parallel()

	p := newPartition("test", true)
	p.addPrePad(8)
	info := &ObjectInfo{Size: 16}
	assert.Equal(t, 8, p.allocate(info))
	p.addPostPad(4)

	pre, post := p.Padding()
	assert.Equal(t, 8, pre)
	assert.Equal(t, 4, post)
	assert.Equal(t, 28, p.Size())
}

func TestPartitionSection(t *testing.T) {
	t.Parallel()

	p := newPartition("test", false)
	assert.Panics(t, func() { p.Section() })

	info := &ObjectInfo{Size: 8}
	info.assign(p)
	p.setSection("ro", 64)

	name, base := p.Section()
	assert.Equal(t, "ro", name)
	assert.Equal(t, 64, base)
	assert.Equal(t, 64, info.OffsetInSection())
	assert.Panics(t, func() { p.setSection("ro", 128) })
	assert.Panics(t, func() { info.assign(p) })
}
