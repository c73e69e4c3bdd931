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
	"fmt"
	"strings"

	"buf.build/go/imageheap/internal/hosted"
)

// ObjectInfo is the descriptor of one admitted object. It survives for the
// whole build; the partition assignment is immutable once made.
type ObjectInfo struct {
	Object       hosted.Value
	Type         *hosted.Type
	Size         int
	IdentityHash int32

	// Reason is the back-edge of the reverse reachability graph: either
	// the *ObjectInfo this object was first reached from, or a string
	// root label. It exists for diagnostics only.
	Reason any

	partition *Partition
	offset    int
}

// Partition returns the partition this object was assigned to, or nil
// before assignment.
func (i *ObjectInfo) Partition() *Partition { return i.partition }

// OffsetInPartition returns the object's partition-relative offset.
func (i *ObjectInfo) OffsetInPartition() int { return i.offset }

// OffsetInSection returns the object's section-relative offset.
func (i *ObjectInfo) OffsetInSection() int {
	return i.partition.OffsetInSection(i.offset)
}

// assign places this object into p. Assigning twice is a programmer
// error.
func (i *ObjectInfo) assign(p *Partition) {
	if i.partition != nil {
		panic(fmt.Sprintf("imageheap: object %v assigned to a partition twice", i.Object))
	}
	i.partition = p
	i.offset = p.allocate(i)
}

// String implements [fmt.Stringer].
func (i *ObjectInfo) String() string {
	return fmt.Sprintf("%v (%d bytes)", i.Object, i.Size)
}

// ReasonChain renders the reverse reachability chain from this object back
// to its root label, one line per hop. The root cause of a build failure
// is nearly always an accidental dependency introduced by host-side code
// executed during the build, and this chain is how users find it.
func (i *ObjectInfo) ReasonChain() string {
	var out strings.Builder
	out.WriteString("object reachable via:\n")
	reason := any(i)
	for reason != nil {
		switch r := reason.(type) {
		case *ObjectInfo:
			fmt.Fprintf(&out, "\t%v of type %v\n", r.Object, r.Type)
			reason = r.Reason
		case string:
			fmt.Fprintf(&out, "\troot: %s\n", r)
			reason = nil
		default:
			fmt.Fprintf(&out, "\t%v\n", r)
			reason = nil
		}
	}
	return out.String()
}
