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
	"cmp"
	"fmt"
	"io"
	"slices"

	"buf.build/go/imageheap/internal/hosted"
)

// Histogram aggregates admitted objects per type.
type Histogram struct {
	rows []HistogramRow
}

// HistogramRow is the per-type aggregate.
type HistogramRow struct {
	Type  *hosted.Type
	Count int
	Bytes int
}

// Histogram returns the per-type histogram of all admitted objects, sorted
// by descending byte total, ties broken by type name.
func (h *Heap) Histogram() *Histogram {
	byType := make(map[*hosted.Type]int)
	var rows []HistogramRow
	for _, info := range h.order {
		i, ok := byType[info.Type]
		if !ok {
			i = len(rows)
			byType[info.Type] = i
			rows = append(rows, HistogramRow{Type: info.Type})
		}
		rows[i].Count++
		rows[i].Bytes += info.Size
	}
	slices.SortFunc(rows, func(a, b HistogramRow) int {
		return cmp.Or(cmp.Compare(b.Bytes, a.Bytes), cmp.Compare(a.Type.Name, b.Type.Name))
	})
	return &Histogram{rows: rows}
}

// Rows returns the aggregated rows.
func (hg *Histogram) Rows() []HistogramRow { return hg.rows }

// Print writes the histogram in a fixed-width table.
func (hg *Histogram) Print(w io.Writer) {
	var count, bytes int
	fmt.Fprintf(w, "%8s %12s  %s\n", "count", "bytes", "type")
	for _, row := range hg.rows {
		fmt.Fprintf(w, "%8d %12d  %s\n", row.Count, row.Bytes, row.Type.Name)
		count += row.Count
		bytes += row.Bytes
	}
	fmt.Fprintf(w, "%8d %12d  (total)\n", count, bytes)
}

// PrintPartitionSizes writes one line per partition with its padding and
// total size.
func (h *Heap) PrintPartitionSizes(w io.Writer) {
	for _, p := range h.Partitions() {
		pre, post := p.Padding()
		fmt.Fprintf(w, "%s: %d objects, %d pre-pad, %d post-pad, %d bytes\n",
			p.Name(), p.Count(), pre, post, p.Size())
	}
}
