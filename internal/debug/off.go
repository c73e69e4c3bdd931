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

//go:build !debug

// Package debug includes debugging helpers for the heap builder.
package debug

import "testing"

// Enabled is true when the builder is compiled with the debug tag.
const Enabled = false

// Log records one build step. A no-op without the debug tag.
func Log(context []any, op, format string, args ...any) {}

// WithTesting redirects debug logs to t until the returned closure is
// called. A no-op without the debug tag.
func WithTesting(t testing.TB) func() { return func() {} }

// Assert panics if cond is false. Assertions compile away without the
// debug tag.
func Assert(cond bool, format string, args ...any) {}
