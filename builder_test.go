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

package imageheap_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/imageheap"
	"buf.build/go/imageheap/internal/heap"
	"buf.build/go/imageheap/internal/hosted"
	"buf.build/go/imageheap/internal/hostedtest"
	"buf.build/go/imageheap/internal/layout"
	"buf.build/go/imageheap/internal/testdata"
)

func testOptions() imageheap.Options {
	return imageheap.Options{
		SpawnIsolates: true,
		ReferenceSize: 8,
		Alignment:     8,
	}
}

func TestScenarios(t *testing.T) {
	t.Parallel()

	testdata.RunAll(t, func(t *testing.T, s *testdata.Scenario) {
		w := hostedtest.New()
		b := imageheap.NewBuilder(w.Universe, testOptions())

		table := hosted.NewInstance(w.NewInternTableType())
		b.RegisterInternSupport(table, w.StringArrayType)

		var roots []heap.Root
		for _, spec := range s.Strings {
			roots = append(roots, heap.Root{
				Label:  fmt.Sprintf("string %q", spec.Text),
				Object: w.Universe.NewString(spec.Text, spec.Interned),
			})
		}
		arrays := make(map[string]*hosted.Array)
		for _, spec := range s.Arrays {
			var elems []hosted.Constant
			for _, x := range spec.Bytes(t) {
				elems = append(elems, hosted.Int8Constant(int8(x)))
			}
			arr := hosted.NewArray(w.ByteArrayType, elems...)
			arrays[spec.Name] = arr
			roots = append(roots, heap.Root{Label: "array " + spec.Name, Object: arr})
		}

		require.NoError(t, b.AddInitialObjects(roots...))
		require.NoError(t, b.AddTrailingObjects())
		b.SetReadOnlySection("ro", 0)
		b.SetWritableSection("rw", 0)

		ro, wb := b.NewBuffers()
		m, err := b.Write(ro, wb)
		require.NoError(t, err)
		require.Len(t, m.Partitions, 5)

		if len(s.Strings) > 0 {
			c := table.Type.FieldByName("imageInternedStrings").ReadValue(table)
			require.False(t, c.IsNull())

			var texts []string
			for _, e := range c.Object.(*hosted.Array).Elems {
				texts = append(texts, e.Object.(*hosted.Str).Text)
			}
			assert.Equal(t, s.Sorted, texts)
		}

		for name, arr := range arrays {
			info := b.ObjectInfo(arr)
			require.NotNil(t, info, "array %s", name)
			// Roots are admitted without immutability and arrays count as
			// written, so the arrays may live in the writable section.
			buf := ro
			if info.Partition().Writable() {
				buf = wb
			}
			base := info.OffsetInSection() + 16
			var want []byte
			for _, e := range arr.Elems {
				want = append(want, byte(e.Bits))
			}
			assert.Equal(t, want, buf.Bytes()[base:base+len(want)], "array %s", name)
		}
	})
}

func TestReports(t *testing.T) {
	t.Parallel()

	w := hostedtest.New()
	opts := testOptions()
	var report bytes.Buffer
	opts.PrintHeapHistogram = true
	opts.PrintImageHeapPartitionSizes = true
	opts.ReportWriter = &report

	b := imageheap.NewBuilder(w.Universe, opts)
	arr := imageheap.NewArray(w.ByteArrayType, hosted.Int8Constant(1))
	require.NoError(t, b.AddInitialObjects(heap.Root{Label: "root", Object: arr}))
	require.NoError(t, b.AddTrailingObjects())
	b.SetReadOnlySection("ro", 0)
	b.SetWritableSection("rw", 0)

	ro, wb := b.NewBuffers()
	m, err := b.Write(ro, wb)
	require.NoError(t, err)

	assert.Contains(t, report.String(), "byte[]")
	assert.Contains(t, report.String(), "readOnlyPrimitive")
	assert.NotZero(t, m.BuildID)
	assert.Equal(t, -1, m.FirstRelocatableOffset)
}

func TestManifestRelocations(t *testing.T) {
	t.Parallel()

	w := hostedtest.New()
	b := imageheap.NewBuilder(w.Universe, testOptions())

	cType := w.NewInstanceType("c", hostedtest.FieldSpec{Name: "code", Kind: layout.Word, Offset: 8})
	mp := &hosted.MethodPointer{Method: &hosted.Method{Name: "entry", Compiled: true}}
	c := imageheap.NewInstance(cType).SetField("code", imageheap.MethodConstant(mp))

	require.NoError(t, b.AddInitialObjects(heap.Root{Label: "root", Object: c}))
	require.NoError(t, b.AddTrailingObjects())
	b.AlignRelocatablePartition(16)
	b.SetReadOnlySection("ro", 0)
	b.SetWritableSection("rw", 0)

	ro, wb := b.NewBuffers()
	m, err := b.Write(ro, wb)
	require.NoError(t, err)

	assert.Equal(t, 1, m.Relocations)
	assert.Equal(t, b.FirstRelocatablePointerOffsetInSection(), m.FirstRelocatableOffset)
	assert.NotZero(t, b.ReadOnlyRelocatablePartitionSize())
}

func TestDefaultOptions(t *testing.T) {
	opts := imageheap.DefaultOptions()
	assert.Equal(t, 8, opts.ReferenceSize)
	assert.Equal(t, 8, opts.Alignment)
	assert.True(t, opts.SpawnIsolates)

	t.Setenv("IMAGEHEAP_NO_ISOLATES", "1")
	t.Setenv("IMAGEHEAP_PRINT_HISTOGRAM", "1")
	opts = imageheap.DefaultOptions()
	assert.False(t, opts.SpawnIsolates)
	assert.True(t, opts.PrintHeapHistogram)
}
