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

// Package heap materializes a closed graph of host objects into the binary
// image heap: it discovers every reachable object, classifies it into one
// of five partitions, and emits its bytes and relocations into the
// read-only and writable output buffers.
//
// The whole build is single-threaded. Admission order and partition layout
// are reproducible: the worklist is drained deterministically and objects
// are emitted in admission order.
package heap

import (
	"fmt"
	"maps"
	"slices"

	"buf.build/go/imageheap/internal/debug"
	"buf.build/go/imageheap/internal/hosted"
	"buf.build/go/imageheap/internal/layout"
)

// Config carries the build options the heap core observes.
type Config struct {
	// UseOnlyWritableHeap forces every object into the writable
	// reference partition. Only honored without a compressed heap base.
	UseOnlyWritableHeap bool
}

// Root is a seed object for the discovery traversal, labeled for
// diagnostics.
type Root struct {
	Label  string
	Object hosted.Value
}

// Heap is the image heap under construction.
type Heap struct {
	universe *hosted.Universe
	oracle   *layout.Oracle
	cfg      Config

	// objects is keyed by host identity; order preserves admission order
	// so that emission is deterministic.
	objects map[hosted.Value]*ObjectInfo
	order   []*ObjectInfo

	// blacklist holds host values whose bytes are inlined into a parent
	// (hybrid tails and bit sets); they must never become standalone
	// objects.
	blacklist map[hosted.Value]struct{}

	interned map[string]*hosted.Str
	hybrids  map[*hosted.Type]*hybridLayout

	worklist []task

	addObjects    PhaseGate
	internStrings PhaseGate

	readOnlyPrimitive   *Partition
	readOnlyReference   *Partition
	readOnlyRelocatable *Partition
	writablePrimitive   *Partition
	writableReference   *Partition

	boundary        *hosted.Instance
	internTable     *hosted.Instance
	stringArrayType *hosted.Type

	// firstRelocPtr is the section offset of the first emitted
	// relocation, or -1.
	firstRelocPtr int
}

type task struct {
	object    hosted.Value
	immutable bool
	reason    any
}

// New returns an empty heap for the given universe and layout.
func New(u *hosted.Universe, o *layout.Oracle, cfg Config) *Heap {
	h := &Heap{
		universe:  u,
		oracle:    o,
		cfg:       cfg,
		objects:   make(map[hosted.Value]*ObjectInfo),
		blacklist: make(map[hosted.Value]struct{}),
		interned:  make(map[string]*hosted.Str),
		hybrids:   make(map[*hosted.Type]*hybridLayout),

		addObjects:    PhaseGate{name: "add objects"},
		internStrings: PhaseGate{name: "intern strings"},

		readOnlyPrimitive:   newPartition("readOnlyPrimitive", false),
		readOnlyReference:   newPartition("readOnlyReference", false),
		readOnlyRelocatable: newPartition("readOnlyRelocatable", false),
		writablePrimitive:   newPartition("writablePrimitive", true),
		writableReference:   newPartition("writableReference", true),

		firstRelocPtr: -1,
	}

	if o.Compression.HasBase {
		// Object offset zero stays reserved for the null reference.
		h.readOnlyPrimitive.addPrePad(o.Alignment)
	}
	return h
}

// RegisterBoundarySingleton registers the runtime singleton whose fields
// are patched with the first and last objects of each partition.
func (h *Heap) RegisterBoundarySingleton(v *hosted.Instance) { h.boundary = v }

// RegisterInternSupport registers the runtime singleton that publishes the
// canonical interned-strings array, and the array type to build it with.
func (h *Heap) RegisterInternSupport(table *hosted.Instance, arrayType *hosted.Type) {
	h.internTable = table
	h.stringArrayType = arrayType
}

// AddInitialObjects opens the admission phases and seeds the traversal
// with the given roots, then drains the worklist.
func (h *Heap) AddInitialObjects(roots ...Root) error {
	h.addObjects.Allow()
	h.internStrings.Allow()

	if h.boundary != nil {
		h.AddObject(h.boundary, false, "partition boundary table")
	}
	for _, r := range roots {
		h.AddObject(r.Object, false, r.Label)
	}
	return h.ProcessWorklist()
}

// AddObject schedules v for admission. immutable propagates immutability
// from a parent (a string admitting its payload); reason is either a root
// label or the admitting [*ObjectInfo].
//
// Admission is idempotent: adding the same host object twice is equivalent
// to adding it once.
func (h *Heap) AddObject(v hosted.Value, immutable bool, reason any) {
	h.addObjects.Check()
	switch v.(type) {
	case nil:
		panic("imageheap: must not add null to the image heap")
	case *hosted.Word, *hosted.MethodPointer:
		panic("imageheap: word-typed values carry raw integers and must not be added as objects")
	case *hosted.Class:
		panic("imageheap: class handles are represented by their hubs and must not be added directly")
	}
	h.push(v, immutable, reason)
}

// RegisterAsImmutable marks v as immutable for partition selection.
func (h *Heap) RegisterAsImmutable(v hosted.Value) {
	h.universe.RegisterImmutableObject(v)
}

// push enqueues one admission task, applying the analysis-time
// substitution hook and filtering the blacklist.
func (h *Heap) push(v hosted.Value, immutable bool, reason any) {
	v = h.universe.ReplaceObject(v)
	if v == nil {
		return
	}
	if _, ok := h.blacklist[v]; ok {
		h.log("skip", "blacklisted %v", v)
		return
	}
	if _, ok := h.objects[v]; ok {
		return
	}
	h.worklist = append(h.worklist, task{object: v, immutable: immutable, reason: reason})
}

// ProcessWorklist drains the worklist. Each admission may enqueue the
// object's hub, fields, and elements; the traversal never recurses on the
// call stack because object graphs may be hundreds of thousands of nodes
// deep.
func (h *Heap) ProcessWorklist() error {
	for len(h.worklist) > 0 {
		t := h.worklist[len(h.worklist)-1]
		h.worklist = h.worklist[:len(h.worklist)-1]
		if err := h.add(t); err != nil {
			return err
		}
	}
	return nil
}

// add admits one object: validates it, computes its size, enqueues
// everything it references, and assigns it to a partition.
func (h *Heap) add(t task) error {
	v := t.object
	if _, ok := h.blacklist[v]; ok {
		return nil
	}
	if _, ok := h.objects[v]; ok {
		return nil
	}

	if s, ok := v.(*hosted.Str); ok {
		// Materialize the content hash so the cached-hash field is
		// emitted nonzero and the string classifies as immutable.
		s.HashCode()
		if s.Interned {
			if h.internStrings.Active() {
				h.interned[s.Text] = s
			} else if _, seen := h.interned[s.Text]; !seen {
				panic(fmt.Sprintf("imageheap: interned string %q seen after intern table was built", s.Text))
			}
		}
	}

	typ := v.TypeOf()
	if typ == nil {
		return h.analysisGap(v, nil, t.reason, "type was not found by analysis")
	}
	if hub, ok := v.(*hosted.Hub); ok && !hub.HasInitInfo {
		return h.analysisGap(v, typ, t.reason,
			fmt.Sprintf("hub of %v has no class initialization info; the type was missed by analysis", hub.Described))
	}

	info := &ObjectInfo{
		Object:       v,
		Type:         typ,
		IdentityHash: h.universe.IdentityHash(v),
		Reason:       t.reason,
	}

	var written, references, relocatable bool
	immutable := t.immutable || h.universe.IsKnownImmutable(v)

	switch typ.Kind {
	case hosted.InstanceType:
		if !typ.IsInstantiated {
			return h.analysisGap(v, typ, t.reason,
				fmt.Sprintf("class %v was not seen as instantiated during analysis; a hosted cache was probably mutated during the build", typ))
		}
		if typ.MonitorOffset != 0 {
			// The monitor slot is a reference written at runtime.
			written, references = true, true
		}

		var hl *hybridLayout
		var tail *hosted.Array
		if typ.IsHybrid {
			hl = h.hybridLayoutFor(typ)
			// Blacklist the inlined host values before any field
			// recursion so enqueues filter them.
			if c := hl.arrayField.ReadValue(v); !c.IsNull() {
				tail = c.Object.(*hosted.Array)
				h.blacklist[tail] = struct{}{}
			}
			if hl.bitsetField != nil {
				if c := hl.bitsetField.ReadValue(v); !c.IsNull() {
					h.blacklist[c.Object] = struct{}{}
				}
			}
			tailLen := 0
			if tail != nil {
				tailLen = tail.Len()
			}
			info.Size = hl.totalSize(h.oracle, tailLen)
		} else {
			info.Size = h.oracle.InstanceSize(typ.RawSize)
		}

		h.push(typ.Hub, false, info)

		_, isString := v.(*hosted.Str)
		for _, f := range typ.Fields {
			if !f.IsAccessed || !f.HasLocation {
				continue
			}
			if f == typ.HybridArrayField || f == typ.HybridBitsetField {
				continue
			}
			c := f.ReadValue(v)

			fieldRelocatable := h.oracle.Compression.HasBase && c.IsRelocatable()
			if f.Kind == layout.Ref && !c.IsNull() && !c.IsRelocatable() {
				// Strings propagate immutability to their payload.
				h.push(c.Object, isString, info)
				references = true
			}
			relocatable = relocatable || fieldRelocatable
			// Relocation targets are patched once by the dynamic
			// linker and are read-only for partitioning.
			written = written || (f.IsWritten && !f.IsFinal && !fieldRelocatable)
		}

		if hl != nil && hl.elementKind == layout.Ref && tail != nil {
			for _, c := range tail.Elems {
				if c.IsRelocatable() {
					relocatable = relocatable || h.oracle.Compression.HasBase
					continue
				}
				if !c.IsNull() {
					h.push(c.Object, false, info)
					references = true
				}
			}
		}

	case hosted.ArrayType:
		arr, ok := v.(*hosted.Array)
		if !ok {
			panic(fmt.Sprintf("imageheap: %v has array type %v but is not an array", v, typ))
		}
		info.Size = h.oracle.ArraySize(typ.ComponentKind, arr.Len())
		h.push(typ.Hub, false, info)

		// No per-element write tracking exists, so arrays are
		// conservatively writable.
		written = true
		if typ.ComponentKind == layout.Ref {
			for _, c := range arr.Elems {
				if c.IsRelocatable() {
					relocatable = relocatable || h.oracle.Compression.HasBase
					continue
				}
				if !c.IsNull() {
					h.push(c.Object, false, info)
					references = true
				}
			}
		}

	default:
		panic(fmt.Sprintf("imageheap: cannot admit value of primitive type %v", typ))
	}

	debug.Assert(h.oracle.IsAligned(info.Size), "unaligned object size %d for %v", info.Size, v)
	debug.Assert(info.IdentityHash != 0, "identity hash 0 is reserved")

	h.objects[v] = info
	h.order = append(h.order, info)

	writable := written && !immutable
	var p *Partition
	switch {
	case relocatable:
		if writable {
			panic(fmt.Sprintf("imageheap: relocatable object %v is not immutable", v))
		}
		p = h.readOnlyRelocatable
	case writable && references:
		p = h.writableReference
	case writable:
		p = h.writablePrimitive
	case references:
		p = h.readOnlyReference
	default:
		p = h.readOnlyPrimitive
	}
	if h.cfg.UseOnlyWritableHeap && !h.oracle.Compression.HasBase {
		p = h.writableReference
	}
	info.assign(p)

	h.log("admit", "%v -> %s+%#x", v, p.name, info.offset)
	return nil
}

// AddTrailingObjects publishes the canonical interned-strings table and
// closes the admission phases. The intern gate closes strictly before the
// table array is admitted, because admitting it would otherwise grow the
// very collection being serialized.
func (h *Heap) AddTrailingObjects() error {
	if err := h.ProcessWorklist(); err != nil {
		return err
	}

	field := h.internTableField()
	if field != nil && field.IsAccessed {
		const reason = "interned strings table"
		h.push(h.stringArrayType.Hub, false, reason)

		h.internStrings.Disallow()

		// Sort so the image contents are independent of discovery
		// order.
		texts := slices.Sorted(maps.Keys(h.interned))
		elems := make([]hosted.Constant, len(texts))
		for i, text := range texts {
			elems[i] = hosted.RefConstant(h.interned[text])
		}
		arr := hosted.NewArray(h.stringArrayType, elems...)

		h.internTable.SetField(field.Name, hosted.RefConstant(arr))
		// Registered rather than flagged, so the classification cannot
		// depend on whether the table or the array drains first.
		h.universe.RegisterImmutableObject(arr)
		h.AddObject(arr, true, reason)
		h.AddObject(h.internTable, false, reason)
		if err := h.ProcessWorklist(); err != nil {
			return err
		}
	} else {
		h.internStrings.Disallow()
	}

	h.addObjects.Disallow()
	return nil
}

func (h *Heap) internTableField() *hosted.Field {
	if h.internTable == nil {
		return nil
	}
	return h.internTable.Type.FieldByName("imageInternedStrings")
}

// ObjectInfo returns the descriptor of an admitted object, or nil.
func (h *Heap) ObjectInfo(v hosted.Value) *ObjectInfo { return h.objects[v] }

// Objects returns all admitted descriptors in admission order.
func (h *Heap) Objects() []*ObjectInfo { return h.order }

// Partitions returns the five partitions in section order.
func (h *Heap) Partitions() []*Partition {
	return []*Partition{
		h.readOnlyPrimitive, h.readOnlyReference, h.readOnlyRelocatable,
		h.writablePrimitive, h.writableReference,
	}
}

// analysisGap reports a user-visible failure: an object whose type was not
// seen by analysis, meaning a cache or static field mutated after analysis
// ran.
func (h *Heap) analysisGap(v hosted.Value, typ *hosted.Type, reason any, cause string) error {
	return &BuildError{Object: v, Type: typ, Cause: cause, chain: reasonChain(v, typ, reason)}
}

// BuildError is a user-visible build failure carrying the reverse
// reachability chain of the offending object.
type BuildError struct {
	Object hosted.Value
	Type   *hosted.Type
	Cause  string

	chain string
}

// Error implements [error].
func (e *BuildError) Error() string {
	return fmt.Sprintf("imageheap: %s\n%s", e.Cause, e.chain)
}

// reasonChain renders the reachability chain for an object that has no
// descriptor yet.
func reasonChain(v hosted.Value, typ *hosted.Type, reason any) string {
	head := &ObjectInfo{Object: v, Type: typ, Reason: reason}
	return head.ReasonChain()
}

func (h *Heap) log(op, format string, args ...any) {
	debug.Log([]any{"%p", h}, op, format, args...)
}
