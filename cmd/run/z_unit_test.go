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

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zintix-labs/dicelab/errs"
)

func TestBindVar(t *testing.T) {
	cfg, err := bindVar([]string{"-name", "letters", "-worker", "2", "-format", "JSON"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.name != "letters" || cfg.worker != 2 || cfg.format != "json" || cfg.seed != -1 {
		t.Fatalf("cfg=%+v", cfg)
	}
	for _, args := range [][]string{
		{},
		{"-id", "1", "-name", "x"},
		{"-id", "1", "-worker", "0"},
		{"-id", "1", "-format", "csv"},
		{"-id", "1", "-rounds", "-3"},
		{"-bogus"},
	} {
		if _, err := bindVar(args); !errs.IsKind(err, errs.Validation) {
			t.Fatalf("%v: expected validation, got %v", args, err)
		}
	}
}

func TestExecuteJSON(t *testing.T) {
	cfg, err := bindVar([]string{"-id", "1", "-rounds", "600", "-seed", "5", "-worker", "3", "-format", "json"})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := executeSimulator(&buf, cfg); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Report struct {
			Summary struct {
				Name   string `json:"name"`
				Rounds int    `json:"rounds"`
				Seed   int64  `json:"seed"`
			} `json:"summary"`
		} `json:"report"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if got.Report.Summary.Name != "fair_pair" || got.Report.Summary.Rounds != 600 || got.Report.Summary.Seed != 5 {
		t.Fatalf("summary=%+v", got.Report.Summary)
	}
}

func TestExecuteTextBatchesWithArchive(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	cfg, err := bindVar([]string{"-name", "coin_triplet", "-rounds", "200", "-batches", "4", "-worker", "2", "-seed", "1", "-archive", db})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := executeSimulator(&buf, cfg); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"coin_triplet", "Batch Estimate", "saved run #1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	if _, err := os.Stat(db); err != nil {
		t.Fatalf("archive not created: %v", err)
	}
}

func TestExecuteConfigDir(t *testing.T) {
	dir := t.TempDir()
	yml := "name: local\nid: 9\nrounds: 100\ndice:\n  - faces: [1, 2]\n    count: 2\n"
	if err := os.WriteFile(filepath.Join(dir, "local.yaml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := bindVar([]string{"-id", "9", "-seed", "2", "-format", "yaml", "-dir", dir})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := executeSimulator(&buf, cfg); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "name: local") {
		t.Fatalf("yaml output:\n%s", buf.String())
	}

	cfg.id, cfg.name = 0, "missing"
	if err := executeSimulator(&buf, cfg); !errs.IsKind(err, errs.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
