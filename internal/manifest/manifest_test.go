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

package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/imageheap/internal/manifest"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	m := manifest.New()
	m.Partitions = []manifest.Partition{
		{Name: "readOnlyPrimitive", Size: 4096, PrePad: 8, Count: 12},
		{Name: "writableReference", Size: 128, PostPad: 64, Count: 3},
	}
	m.Relocations = 7
	m.FirstRelocatableOffset = 0x40

	parsed, err := manifest.Parse(m.Append(nil))
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestNoRelocations(t *testing.T) {
	t.Parallel()

	m := manifest.New()
	parsed, err := manifest.Parse(m.Append(nil))
	require.NoError(t, err)
	assert.Equal(t, -1, parsed.FirstRelocatableOffset)
	assert.Equal(t, m.BuildID, parsed.BuildID)
}

func TestTruncated(t *testing.T) {
	t.Parallel()

	b := manifest.New().Append(nil)
	_, err := manifest.Parse(b[:len(b)-1])
	assert.Error(t, err)
}
