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

//go:build debug

// Package debug includes debugging helpers for the heap builder.
//
// A build is single-threaded, so with the debug tag on the log reads as a
// linear trace of the build: one line per admission, emission, and patch
// step. The goroutine id distinguishes concurrent builds driven from
// parallel tests.
package debug

import (
	"flag"
	"fmt"
	"os"
	"path"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/timandy/routine"
)

// Enabled is true when the builder is compiled with the debug tag.
const Enabled = true

var (
	filter    *regexp.Regexp
	nocapture = flag.Bool("imageheap.nocapture", false, "print debug logs to stderr even while a test is capturing them")

	tls = routine.NewInheritableThreadLocal[testing.TB]()
)

func init() {
	flag.Func("imageheap.filter", "regexp selecting which debug log lines to keep", func(s string) (err error) {
		filter, err = regexp.Compile(s)
		return err
	})
}

// Log records one build step. context is optional printf arguments that
// identify the heap or buffer the step belongs to; op is a short verb
// such as "admit", "skip", or "boundary".
func Log(context []any, op, format string, args ...any) {
	line := new(strings.Builder)
	fmt.Fprintf(line, "%s g%d", caller(), routine.Goid())
	if len(context) > 0 {
		fmt.Fprintf(line, " "+context[0].(string), context[1:]...)
	}
	fmt.Fprintf(line, " %s: ", op)
	fmt.Fprintf(line, format, args...)

	if filter != nil && !filter.MatchString(line.String()) {
		return
	}

	if t := tls.Get(); t != nil && !*nocapture {
		t.Log(line.String())
		return
	}
	fmt.Fprintln(os.Stderr, line.String())
}

// caller resolves the first stack frame outside this package, as
// "pkg/file.go:line". Thin `log` wrapper methods on the callers' side are
// stepped over too, so the line points at the build step itself.
func caller() string {
	pcs := make([]uintptr, 8)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(2, pcs)])
	for {
		frame, more := frames.Next()
		inside := strings.Contains(frame.File, "internal/debug") ||
			strings.HasSuffix(frame.Function, ".log")
		if !inside {
			return fmt.Sprintf("%s/%s:%d",
				path.Base(path.Dir(frame.File)), path.Base(frame.File), frame.Line)
		}
		if !more {
			return "?"
		}
	}
}

// WithTesting redirects debug logs to t until the returned closure is
// called.
func WithTesting(t testing.TB) func() {
	prev := tls.Get()
	tls.Set(t)
	return func() { tls.Set(prev) }
}

// Assert panics if cond is false. Assertions compile away without the
// debug tag; they guard invariants the release build trusts, like aligned
// object sizes and nonzero identity hashes.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("imageheap: assertion failed: "+format, args...))
	}
}
