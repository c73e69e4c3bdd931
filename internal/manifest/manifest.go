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

// Package manifest encodes a compact summary of a finished heap build for
// downstream tooling. The encoding is plain protowire, so any protoscope-
// style dumper can read it without generated code.
package manifest

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the manifest message.
const (
	fieldBuildID          = 1 // bytes
	fieldPartition        = 2 // repeated message
	fieldRelocations      = 3 // varint
	fieldFirstRelocatable = 4 // varint, offset+1 so that 0 means "none"
)

// Field numbers of the partition submessage.
const (
	fieldName    = 1 // string
	fieldSize    = 2 // varint
	fieldPrePad  = 3 // varint
	fieldPostPad = 4 // varint
	fieldCount   = 5 // varint
)

// Manifest summarizes one build.
type Manifest struct {
	BuildID    uuid.UUID
	Partitions []Partition

	Relocations int

	// FirstRelocatableOffset is the section offset of the first emitted
	// relocation, or -1.
	FirstRelocatableOffset int
}

// Partition is the per-partition summary.
type Partition struct {
	Name            string
	Size            int
	PrePad, PostPad int
	Count           int
}

// New returns a manifest with a fresh build id.
func New() *Manifest {
	return &Manifest{BuildID: uuid.New(), FirstRelocatableOffset: -1}
}

// Append encodes m onto b and returns the result.
func (m *Manifest) Append(b []byte) []byte {
	b = protowire.AppendTag(b, fieldBuildID, protowire.BytesType)
	b = protowire.AppendBytes(b, m.BuildID[:])

	for _, p := range m.Partitions {
		var sub []byte
		sub = protowire.AppendTag(sub, fieldName, protowire.BytesType)
		sub = protowire.AppendString(sub, p.Name)
		sub = protowire.AppendTag(sub, fieldSize, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(p.Size))
		sub = protowire.AppendTag(sub, fieldPrePad, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(p.PrePad))
		sub = protowire.AppendTag(sub, fieldPostPad, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(p.PostPad))
		sub = protowire.AppendTag(sub, fieldCount, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(p.Count))

		b = protowire.AppendTag(b, fieldPartition, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}

	b = protowire.AppendTag(b, fieldRelocations, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Relocations))
	b = protowire.AppendTag(b, fieldFirstRelocatable, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.FirstRelocatableOffset+1))
	return b
}

// Parse decodes a manifest previously produced by [Manifest.Append].
func Parse(b []byte) (*Manifest, error) {
	m := &Manifest{FirstRelocatableOffset: -1}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch num {
		case fieldBuildID:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			if len(raw) != len(m.BuildID) {
				return nil, errors.New("imageheap: malformed build id")
			}
			copy(m.BuildID[:], raw)
			b = b[n:]

		case fieldPartition:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			p, err := parsePartition(raw)
			if err != nil {
				return nil, err
			}
			m.Partitions = append(m.Partitions, p)
			b = b[n:]

		case fieldRelocations:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Relocations = int(v)
			b = b[n:]

		case fieldFirstRelocatable:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.FirstRelocatableOffset = int(v) - 1
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return m, nil
}

func parsePartition(b []byte) (Partition, error) {
	var p Partition
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return p, protowire.ParseError(n)
		}
		b = b[n:]

		switch num {
		case fieldName:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			p.Name = s
			b = b[n:]
		case fieldSize, fieldPrePad, fieldPostPad, fieldCount:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			switch num {
			case fieldSize:
				p.Size = int(v)
			case fieldPrePad:
				p.PrePad = int(v)
			case fieldPostPad:
				p.PostPad = int(v)
			case fieldCount:
				p.Count = int(v)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return p, nil
}

// String implements [fmt.Stringer].
func (m *Manifest) String() string {
	return fmt.Sprintf("build %s: %d partitions, %d relocations", m.BuildID, len(m.Partitions), m.Relocations)
}
