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
	"buf.build/go/imageheap/internal/heap"
	"buf.build/go/imageheap/internal/hosted"
	"buf.build/go/imageheap/internal/manifest"
	"buf.build/go/imageheap/internal/relocbuf"
)

// The host object model and build outputs, re-exported for drivers. See
// the respective internal packages for the full documentation.
type (
	Universe      = hosted.Universe
	Value         = hosted.Value
	Type          = hosted.Type
	Field         = hosted.Field
	Instance      = hosted.Instance
	Array         = hosted.Array
	Str           = hosted.Str
	Hub           = hosted.Hub
	Class         = hosted.Class
	Method        = hosted.Method
	MethodPointer = hosted.MethodPointer
	Constant      = hosted.Constant

	Root       = heap.Root
	ObjectInfo = heap.ObjectInfo
	Partition  = heap.Partition
	BuildError = heap.BuildError

	Buffer   = relocbuf.Buffer
	Manifest = manifest.Manifest
)

// NewUniverse returns an empty analysis universe.
func NewUniverse() *Universe { return hosted.NewUniverse() }

// NewInstance allocates an instance of t with all fields zeroed.
func NewInstance(t *Type) *Instance { return hosted.NewInstance(t) }

// NewArray allocates an array of t with the given elements.
func NewArray(t *Type, elems ...Constant) *Array { return hosted.NewArray(t, elems...) }

// RefConstant returns a reference constant. v may be nil for null.
func RefConstant(v Value) Constant { return hosted.RefConstant(v) }

// MethodConstant returns a relocated method-pointer constant.
func MethodConstant(mp *MethodPointer) Constant { return hosted.MethodConstant(mp) }
