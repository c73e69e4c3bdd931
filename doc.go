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

// Package imageheap builds the initial object heap of an ahead-of-time
// compiled native image.
//
// The builder takes a closed graph of live host objects, discovered by a
// prior static analysis, and materializes a byte-exact, relocatable binary
// representation of that graph: object headers, fields, hybrid tails,
// identity hashes, and relocation records, partitioned into read-only and
// writable sections.
//
// A build proceeds in a fixed order: seed roots with
// [Builder.AddInitialObjects], finish discovery with
// [Builder.AddTrailingObjects], bind partitions to linker sections, and
// finally emit with [Builder.Write]. The whole build is single-threaded
// and deterministic: the same object graph always produces the same
// bytes.
package imageheap
