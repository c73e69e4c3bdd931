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
	"io"

	"github.com/xyproto/env/v2"
)

// Options configure a [Builder].
type Options struct {
	// SpawnIsolates enables the compressed heap base: references are
	// stored as shifted section offsets instead of relocations.
	SpawnIsolates bool

	// UseOnlyWritableBootImageHeap forces every object into the writable
	// reference partition. Only honored when SpawnIsolates is off.
	UseOnlyWritableBootImageHeap bool

	// PrintHeapHistogram prints a per-type object histogram after
	// writing.
	PrintHeapHistogram bool

	// PrintImageHeapPartitionSizes prints one line per partition after
	// writing.
	PrintImageHeapPartitionSizes bool

	// ReferenceSize is the width of an object reference: 4 or 8.
	ReferenceSize int

	// Alignment is the alignment of every object start and size.
	Alignment int

	// CompressionShift is the right-shift applied to stored references
	// under a heap base.
	CompressionShift uint32

	// ReservedHeaderBits are bits the runtime reserves in the object
	// header word.
	ReservedHeaderBits uint64

	// ReportWriter receives the histogram and partition-size reports.
	// Defaults to [os.Stdout].
	ReportWriter io.Writer
}

// DefaultOptions returns the default build options, with overrides taken
// from the environment.
func DefaultOptions() Options {
	// env caches the environment; reload it so variables set since
	// process start are honored.
	env.Load()
	return Options{
		SpawnIsolates:                !env.Bool("IMAGEHEAP_NO_ISOLATES"),
		UseOnlyWritableBootImageHeap: env.Bool("IMAGEHEAP_ONLY_WRITABLE"),
		PrintHeapHistogram:           env.Bool("IMAGEHEAP_PRINT_HISTOGRAM"),
		PrintImageHeapPartitionSizes: env.Bool("IMAGEHEAP_PRINT_PARTITION_SIZES"),
		ReferenceSize:                env.Int("IMAGEHEAP_REFERENCE_SIZE", 8),
		Alignment:                    8,
	}
}
