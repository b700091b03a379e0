// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package perf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zintix-labs/dicelab/errs"
)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": Off, "CPU": CPU, " heap ": Heap, "allocs": Allocs} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q)=%q,%v", in, got, err)
		}
	}
	if _, err := ParseMode("trace"); !errs.IsKind(err, errs.Validation) {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestRunOff(t *testing.T) {
	called := false
	path, err := Run(Off, t.TempDir(), func() { called = true })
	if err != nil || path != "" || !called {
		t.Fatalf("path=%q err=%v called=%v", path, err, called)
	}
}

func TestRunWritesProfile(t *testing.T) {
	for _, m := range []Mode{CPU, Heap, Allocs} {
		dir := t.TempDir()
		called := false
		path, err := Run(m, dir, func() {
			called = true
			s := make([]int, 0)
			for i := range 1000 {
				s = append(s, i)
			}
			_ = s
		})
		if err != nil || !called {
			t.Fatalf("%s: err=%v called=%v", m, err, called)
		}
		if path != filepath.Join(dir, string(m)+".pprof") {
			t.Fatalf("%s: path=%q", m, path)
		}
		if st, err := os.Stat(path); err != nil || st.Size() == 0 {
			t.Fatalf("%s: profile not written: %v", m, err)
		}
	}
}
