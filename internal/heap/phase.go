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

import "fmt"

type phaseState uint8

const (
	phaseBefore phaseState = iota
	phaseAllowed
	phaseAfter
)

func (s phaseState) String() string {
	switch s {
	case phaseBefore:
		return "before"
	case phaseAllowed:
		return "allowed"
	case phaseAfter:
		return "after"
	default:
		return "invalid"
	}
}

// PhaseGate is a forward-only tri-state lifecycle guard. Admission entry
// points consult the gate instead of sprinkling defensive checks over
// every operation.
type PhaseGate struct {
	name  string
	state phaseState
}

// Allow transitions the gate from before to allowed.
func (g *PhaseGate) Allow() {
	if g.state != phaseBefore {
		panic(fmt.Sprintf("imageheap: phase %s allowed while %s", g.name, g.state))
	}
	g.state = phaseAllowed
}

// Disallow transitions the gate from allowed to after.
func (g *PhaseGate) Disallow() {
	if g.state != phaseAllowed {
		panic(fmt.Sprintf("imageheap: phase %s disallowed while %s", g.name, g.state))
	}
	g.state = phaseAfter
}

// Active reports whether the gate is currently allowed.
func (g *PhaseGate) Active() bool { return g.state == phaseAllowed }

// Closed reports whether the gate has been disallowed.
func (g *PhaseGate) Closed() bool { return g.state == phaseAfter }

// Check panics unless the gate is allowed.
func (g *PhaseGate) Check() {
	if g.state != phaseAllowed {
		panic(fmt.Sprintf("imageheap: %s while phase %s is %s", g.name, g.name, g.state))
	}
}
