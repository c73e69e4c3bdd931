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

// Package testdata loads the YAML-described heap scenarios the build
// tests run against.
package testdata

import (
	"embed"
	"encoding/hex"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tiendc/go-deepcopy"
	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var testdata embed.FS

// Scenario is one heap-building scenario from the corpus.
type Scenario struct {
	Name string `yaml:"name"`

	// Strings are host strings admitted as roots.
	Strings []StringSpec `yaml:"strings"`
	// Sorted is the expected canonical interned-strings table.
	Sorted []string `yaml:"sorted"`

	// Arrays are primitive byte arrays admitted as roots.
	Arrays []ArraySpec `yaml:"arrays"`
}

// StringSpec describes one host string.
type StringSpec struct {
	Text     string `yaml:"text"`
	Interned bool   `yaml:"interned"`
}

// ArraySpec describes one primitive byte array.
type ArraySpec struct {
	Name string `yaml:"name"`
	Hex  string `yaml:"hex"`
}

// Bytes decodes the array payload.
func (a ArraySpec) Bytes(t testing.TB) []byte {
	b, err := hex.DecodeString(a.Hex)
	require.NoError(t, err, "scenario array %q", a.Name)
	return b
}

// RunAll runs every scenario in the corpus as a subtest.
func RunAll(t *testing.T, f func(*testing.T, *Scenario)) {
	t.Helper()

	err := fs.WalkDir(testdata, ".", func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err, "loading scenarios from %q", path)
		if d.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}

		data, err := fs.ReadFile(testdata, path)
		require.NoError(t, err)

		var scenarios []*Scenario
		require.NoError(t, yaml.Unmarshal(data, &scenarios), "parsing %q", path)

		for _, s := range scenarios {
			t.Run(s.Name, func(t *testing.T) {
				t.Parallel()

				// Hand every subtest its own copy so corpus state
				// cannot leak across parallel runs.
				var scenario Scenario
				require.NoError(t, deepcopy.Copy(&scenario, s))
				f(t, &scenario)
			})
		}
		return nil
	})
	require.NoError(t, err)
}
